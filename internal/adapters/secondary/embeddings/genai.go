package embeddings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/admin/astro-agent/internal/pkg/vector"
	"github.com/admin/astro-agent/internal/ports/service"
	"google.golang.org/genai"
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GenAIEmbedder эмбеддинги Gemini
type GenAIEmbedder struct {
	cfg    *Config
	models contentEmbedder
	Log    *slog.Logger
}

func NewGenAIEmbedder(ctx context.Context, cfg *Config, log *slog.Logger) (*GenAIEmbedder, error) {
	if cfg.ApiKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.ApiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIEmbedder{cfg: cfg, models: client.Models, Log: log}, nil
}

var _ service.IEmbedder = (*GenAIEmbedder)(nil)

func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *GenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout())
	defer cancel()

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(e.cfg.Dimensions)
	result, err := e.models.EmbedContent(ctx, e.cfg.Model, contents, &genai.EmbedContentConfig{
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: &dims,
	})
	if err != nil {
		e.Log.Error("failed to embed texts", "error", err, "count", len(texts))
		return nil, fmt.Errorf("genai embed failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		// урезанная размерность приходит ненормализованной
		vector.Normalize(emb.Values)
		out[i] = emb.Values
	}
	return out, nil
}

func (e *GenAIEmbedder) Dimensions() int {
	return e.cfg.Dimensions
}
