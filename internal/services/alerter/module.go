package alerter

import (
	"context"
	"log/slog"

	"github.com/admin/astro-agent/internal/adapters/secondary/alerter"
	"github.com/admin/astro-agent/internal/ports/service"
)

// Service реализует IAlerterService для отправки алертов
type Service struct {
	client *alerter.Client
	log    *slog.Logger
}

// New создаёт новый сервис для отправки алертов
func New(client *alerter.Client, log *slog.Logger) service.IAlerterService {
	return &Service{
		client: client,
		log:    log,
	}
}

// SendAlert отправляет алерт, без настроенного клиента только пишет в лог
func (s *Service) SendAlert(ctx context.Context, message string) error {
	if s.client == nil {
		s.log.Warn("alert", "message", message)
		return nil
	}

	return s.client.SendAlert(ctx, message)
}
