package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
	"google.golang.org/genai"
)

// contentGenerator часть genai.Models, которой пользуется клиент
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient провайдер Gemini через google.golang.org/genai
type GeminiClient struct {
	cfg    *Config
	models contentGenerator
	Log    *slog.Logger
}

func NewGeminiClient(ctx context.Context, cfg *Config, log *slog.Logger) (*GeminiClient, error) {
	if cfg.ApiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.ApiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{cfg: cfg, models: client.Models, Log: log}, nil
}

var _ service.ILLMClient = (*GeminiClient)(nil)

func (c *GeminiClient) Provider() string {
	return ProviderGemini
}

func (c *GeminiClient) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.cfg.Model, toGeminiContents(req.Messages), c.buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	out := &domain.CompletionResponse{Model: c.cfg.Model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.Usage = domain.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}

	var text strings.Builder
	for i, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", i)
			}
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, domain.ToolCall{ID: id, Name: part.FunctionCall.Name, Arguments: args})
		case part.Text != "" && !part.Thought:
			text.WriteString(part.Text)
		}
	}
	out.Content = strings.TrimSpace(text.String())

	c.Log.Debug("llm completion finished",
		"model", out.Model,
		"tool_calls", len(out.ToolCalls),
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
		"duration", time.Since(start))
	return out, nil
}

func (c *GeminiClient) buildConfig(req domain.CompletionRequest) *genai.GenerateContentConfig {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxTokens
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.Parameters,
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return cfg
}

// toGeminiContents переводит диалог в роли user/model, результаты инструментов идут как FunctionResponse
func toGeminiContents(messages []domain.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleUser:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		case domain.RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if m.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: tc.Arguments,
				}})
			}
			if len(content.Parts) > 0 {
				out = append(out, content)
			}
		case domain.RoleTool:
			out = append(out, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolCallID,
					Name:     m.Name,
					Response: map[string]any{"output": m.Content},
				}}},
			})
		}
	}
	return out
}
