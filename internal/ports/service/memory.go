package service

import (
	"context"
	"time"

	"github.com/admin/astro-agent/internal/domain"
)

// IMemoryService долговременная память о пользователе
type IMemoryService interface {
	Store(ctx context.Context, userID, content string, memoryType domain.MemoryType, metadata domain.Metadata) (*domain.Memory, error)
	Search(ctx context.Context, userID, query string, limit int) ([]domain.MemorySearchResult, error)
	// ScheduleExtraction откладывает извлечение памяти из окна диалога, новая заявка заменяет старую
	ScheduleExtraction(userID, conversationID string, window []domain.Message, delay time.Duration)
	// FlushExtraction немедленно выполняет отложенное извлечение пользователя, если оно есть
	FlushExtraction(ctx context.Context, userID string) bool
	Consolidate(ctx context.Context, userID string) (int, error)
	Stats(ctx context.Context, userID string) (*domain.MemoryStats, error)
	StoreConversationSummary(ctx context.Context, userID, conversationID string, messages []domain.Message) error
}

// IProfileService профиль пользователя и его изменение в диалоге
type IProfileService interface {
	GetOrCreate(ctx context.Context, userID string) (*domain.UserProfile, error)
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// IUserDataService выгрузка и удаление всех данных пользователя
type IUserDataService interface {
	// Export выгружает снимок в объектное хранилище и возвращает временную ссылку
	Export(ctx context.Context, userID string) (string, error)
	Erase(ctx context.Context, userID string) error
}
