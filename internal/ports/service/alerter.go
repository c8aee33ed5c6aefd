package service

import (
	"context"
)

// IAlerterService отправка алертов дежурным
type IAlerterService interface {
	SendAlert(ctx context.Context, message string) error
}
