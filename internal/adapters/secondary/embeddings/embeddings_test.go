package embeddings

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/admin/astro-agent/internal/pkg/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestHashingEmbedder(t *testing.T) {
	e := NewHashingEmbedder(128)
	ctx := context.Background()

	a, err := e.Embed(ctx, "I work as a nurse at the hospital")
	require.NoError(t, err)
	b, _ := e.Embed(ctx, "I work as a nurse at the hospital")
	c, _ := e.Embed(ctx, "My favourite colour is green")
	d, _ := e.Embed(ctx, "she works as a nurse in a hospital")

	assert.Len(t, a, 128)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, vector.Cosine(a, b), 1e-6)
	assert.Greater(t, vector.Cosine(a, d), vector.Cosine(a, c))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"i'm", "a", "leo", "rising"}, Tokenize("I'm a Leo-rising!"))
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedContent(_ context.Context, _ string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	out := &genai.EmbedContentResponse{}
	for range contents {
		out.Embeddings = append(out.Embeddings, &genai.ContentEmbedding{Values: []float32{3, 4}})
	}
	return out, nil
}

func TestGenAIEmbedder_Normalizes(t *testing.T) {
	e := &GenAIEmbedder{cfg: &Config{Dimensions: 2}, models: fakeEmbedder{}, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.6, out[0][0], 1e-6)
	assert.InDelta(t, 0.8, out[1][1], 1e-6)
}
