package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenAIClient_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "system", req.Messages[0].Role)
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "get_moon_phase", req.Tools[0].Function.Name)
		assert.Equal(t, "auto", req.ToolChoice)

		_, _ = w.Write([]byte(`{
			"model": "gpt-test",
			"choices": [{"message": {"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "get_moon_phase", "arguments": "{\"date\":\"2024-03-01\"}"}}
			]}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 15}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(&Config{BaseURL: srv.URL, ApiKey: "key", Model: "gpt-test"}, testLogger())
	resp, err := c.Complete(context.Background(), domain.CompletionRequest{
		System:   "you are an astrologer",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "moon?"}},
		Tools:    []domain.ToolDefinition{{Name: "get_moon_phase", Parameters: map[string]any{"type": "object"}}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "2024-03-01", resp.ToolCalls[0].Arguments["date"])
	assert.Equal(t, domain.Usage{InputTokens: 120, OutputTokens: 15}, resp.Usage)
	assert.Empty(t, resp.Content)
}

func TestOpenAIClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Hello "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(&Config{BaseURL: srv.URL, ApiKey: "key", MaxRetries: 2}, testLogger())
	c.backoff = 0
	resp, err := c.Complete(context.Background(), domain.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Hello", resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewOpenAIClient(&Config{BaseURL: srv.URL, ApiKey: "key", MaxRetries: 3}, testLogger())
	_, err := c.Complete(context.Background(), domain.CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestToOpenAIMessage(t *testing.T) {
	t.Run("assistant with tool calls has null content", func(t *testing.T) {
		m := toOpenAIMessage(domain.Message{
			Role:      domain.RoleAssistant,
			ToolCalls: []domain.ToolCall{{ID: "c1", Name: "get_moon_phase"}},
		})
		assert.Nil(t, m.Content)
		require.Len(t, m.ToolCalls, 1)
		assert.Equal(t, "{}", m.ToolCalls[0].Function.Arguments)
	})

	t.Run("tool result keeps call id", func(t *testing.T) {
		m := toOpenAIMessage(domain.Message{Role: domain.RoleTool, Content: "ok", ToolCallID: "c1", Name: "get_moon_phase"})
		require.NotNil(t, m.Content)
		assert.Equal(t, "ok", *m.Content)
		assert.Equal(t, "c1", m.ToolCallID)
	})
}
