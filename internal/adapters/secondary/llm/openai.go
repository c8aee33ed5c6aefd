package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
)

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAITool struct {
	Type     string             `json:"type"`
	Function openAIToolFunction `json:"function"`
}

type openAIToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIClient клиент OpenAI-совместимого /chat/completions (OpenAI, Groq)
type OpenAIClient struct {
	cfg        *Config
	HTTPClient *http.Client
	Log        *slog.Logger
	backoff    time.Duration
}

func NewOpenAIClient(cfg *Config, log *slog.Logger) *OpenAIClient {
	return &OpenAIClient{
		cfg:        cfg,
		HTTPClient: &http.Client{Timeout: cfg.Timeout()},
		Log:        log,
		backoff:    time.Second,
	}
}

var _ service.ILLMClient = (*OpenAIClient)(nil)

// Provider openai или groq, от него зависит тариф
func (c *OpenAIClient) Provider() string {
	if c.cfg.Provider == "" {
		return ProviderOpenAI
	}
	return c.cfg.Provider
}

// Complete один вызов модели, 429 и 5xx повторяются с экспоненциальной задержкой
func (c *OpenAIClient) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if c.cfg.ApiKey == "" {
		return nil, fmt.Errorf("llm api key not configured")
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff * time.Duration(1<<uint(attempt-1))):
			}
		}

		resp, retry, err := c.do(ctx, body)
		if err == nil {
			c.Log.Debug("llm completion finished",
				"model", resp.Model,
				"tool_calls", len(resp.ToolCalls),
				"input_tokens", resp.Usage.InputTokens,
				"output_tokens", resp.Usage.OutputTokens,
				"duration", time.Since(start))
			return resp, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		c.Log.Warn("llm request failed, retrying", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *OpenAIClient) do(ctx context.Context, body []byte) (*domain.CompletionResponse, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.ApiKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("llm api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("llm api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, false, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, false, fmt.Errorf("llm api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, false, fmt.Errorf("no completion returned")
	}
	out, err := fromOpenAIMessage(parsed.Choices[0].Message)
	if err != nil {
		return nil, false, err
	}
	out.Model = parsed.Model
	out.Usage = domain.Usage{InputTokens: parsed.Usage.PromptTokens, OutputTokens: parsed.Usage.CompletionTokens}
	return out, false, nil
}

func (c *OpenAIClient) buildRequest(req domain.CompletionRequest) openAIRequest {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxTokens
	}

	out := openAIRequest{
		Model:       c.cfg.Model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if req.System != "" {
		out.Messages = append(out.Messages, openAIMessage{Role: string(domain.RoleSystem), Content: strPtr(req.System)})
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, toOpenAIMessage(m))
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openAITool{
			Type:     "function",
			Function: openAIToolFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}
	if len(out.Tools) > 0 {
		out.ToolChoice = "auto"
	}
	return out
}

func toOpenAIMessage(m domain.Message) openAIMessage {
	out := openAIMessage{
		Role:       string(m.Role),
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	// assistant с вызовами инструментов может прийти без текста, content тогда null
	if m.Content != "" || len(m.ToolCalls) == 0 {
		out.Content = strPtr(m.Content)
	}
	for _, tc := range m.ToolCalls {
		call := openAIToolCall{ID: tc.ID, Type: "function"}
		call.Function.Name = tc.Name
		call.Function.Arguments = tc.ArgumentsJSON()
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out
}

func fromOpenAIMessage(m openAIMessage) (*domain.CompletionResponse, error) {
	out := &domain.CompletionResponse{}
	if m.Content != nil {
		out.Content = strings.TrimSpace(*m.Content)
	}
	for _, tc := range m.ToolCalls {
		args := map[string]any{}
		if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments of tool %s: %w", tc.Function.Name, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return out, nil
}

func strPtr(s string) *string {
	return &s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
