package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/admin/astro-agent/internal/ports/service"
)

// New создаёт клиента выбранного провайдера
func New(ctx context.Context, cfg *Config, log *slog.Logger) (service.ILLMClient, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "groq", "":
		return NewOpenAIClient(cfg, log), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
