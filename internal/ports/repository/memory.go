package repository

import (
	"context"

	"github.com/admin/astro-agent/internal/domain"
)

// IMemoryRepo хранилище памяти с поиском по эмбеддингам
type IMemoryRepo interface {
	Add(ctx context.Context, memory *domain.Memory) error
	// Query ищет ближайшие по косинусу записи только среди памяти userID
	Query(ctx context.Context, userID string, embedding []float32, limit int, memoryType *domain.MemoryType) ([]domain.MemorySearchResult, error)
	// ListByUser память пользователя, новые первыми
	ListByUser(ctx context.Context, userID string) ([]domain.Memory, error)
	Delete(ctx context.Context, userID string, ids []string) (int, error)
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
	CountByType(ctx context.Context, userID string) (map[domain.MemoryType]int, error)
	// ListUserIDs пользователи, у которых есть хотя бы одна запись
	ListUserIDs(ctx context.Context) ([]string, error)
}
