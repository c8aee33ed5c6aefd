package repository

import (
	"context"

	"github.com/admin/astro-agent/internal/domain"
)

// IProfileRepo хранилище профилей пользователей
type IProfileRepo interface {
	// Get возвращает domain.ErrProfileNotFound, если профиля нет
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	Create(ctx context.Context, profile *domain.UserProfile) error
	// Save перезаписывает профиль целиком, last write wins
	Save(ctx context.Context, profile *domain.UserProfile) error
	Delete(ctx context.Context, userID string) error
}
