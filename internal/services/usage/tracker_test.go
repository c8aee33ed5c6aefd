package usage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/admin/astro-agent/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/astro-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCost(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		in, out  int
		want     float64
		known    bool
	}{
		{"free groq", "groq", "llama3-70b-8192", 5000, 1000, 0, true},
		{"mini", "openai", "gpt-4o-mini", 1_000_000, 1_000_000, 0.75, true},
		{"dated model version", "openai", "gpt-4o-mini-2024-07-18", 1_000_000, 0, 0.15, true},
		{"case insensitive provider", "Gemini", "gemini-2.0-flash", 0, 1_000_000, 0.40, true},
		{"unknown provider", "acme", "x", 100, 100, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := Cost(tt.provider, tt.model, tt.in, tt.out)
			assert.Equal(t, tt.known, known)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTracker_DailyLimit(t *testing.T) {
	ctx := context.Background()
	tr := New(inmemory.NewUsageStore(), 0.50, slog.New(slog.NewTextHandler(io.Discard, nil)))
	day := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return day }

	require.NoError(t, tr.CheckLimit(ctx, "u1"))

	_, err := tr.Record(ctx, "u1", "openai", "gpt-4o", domain.Usage{InputTokens: 100_000, OutputTokens: 30_000})
	require.NoError(t, err)
	assert.ErrorIs(t, tr.CheckLimit(ctx, "u1"), domain.ErrDailyLimit)
	assert.NoError(t, tr.CheckLimit(ctx, "u2"))

	tr.now = func() time.Time { return day.Add(24 * time.Hour) }
	assert.NoError(t, tr.CheckLimit(ctx, "u1"))
}

func TestTracker_NoLimit(t *testing.T) {
	tr := New(inmemory.NewUsageStore(), 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := tr.Record(context.Background(), "u1", "openai", "gpt-4o", domain.Usage{InputTokens: 10_000_000})
	require.NoError(t, err)
	assert.NoError(t, tr.CheckLimit(context.Background(), "u1"))
}
