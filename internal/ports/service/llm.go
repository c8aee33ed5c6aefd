package service

import (
	"context"

	"github.com/admin/astro-agent/internal/domain"
)

// ILLMClient провайдер генерации с вызовом инструментов
type ILLMClient interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error)
	Provider() string
}

// IEmbedder векторизация текста для поиска по памяти
type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}
