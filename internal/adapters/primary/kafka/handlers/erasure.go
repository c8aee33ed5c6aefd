package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"log/slog"

	"github.com/admin/astro-agent/internal/domain"
	kafkaPorts "github.com/admin/astro-agent/internal/ports/kafka"
	"github.com/admin/astro-agent/internal/ports/service"
)

// ErasureHandler удаляет данные пользователя по запросу из Kafka
type ErasureHandler struct {
	UserData service.IUserDataService
	Log      *slog.Logger
}

// NewErasureHandler создаёт handler запросов на удаление
func NewErasureHandler(userData service.IUserDataService, log *slog.Logger) kafkaPorts.MessageHandler {
	return &ErasureHandler{
		UserData: userData,
		Log:      log,
	}
}

// HandleMessage обрабатывает запрос на удаление, ключ сообщения используется, если user_id пуст
func (h *ErasureHandler) HandleMessage(ctx context.Context, key string, value []byte) error {
	var request domain.ErasureRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.Log.Warn("skipping malformed erasure request", "key", key, "error", err)
		return domain.WrapBusinessError(fmt.Errorf("failed to unmarshal erasure request: %w", err))
	}
	if request.UserID == "" {
		request.UserID = key
	}
	if request.UserID == "" {
		h.Log.Warn("skipping erasure request without user_id")
		return domain.WrapBusinessError(fmt.Errorf("user_id is required in erasure request"))
	}

	h.Log.Debug("processing erasure request",
		"user_id", request.UserID,
		"reason", request.Reason,
		"requested_at", request.RequestedAt,
	)

	if err := h.UserData.Erase(ctx, request.UserID); err != nil {
		return fmt.Errorf("failed to erase user data: %w", err)
	}

	h.Log.Info("user data erased by request", "user_id", request.UserID)
	return nil
}
