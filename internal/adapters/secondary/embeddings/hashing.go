package embeddings

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/admin/astro-agent/internal/pkg/vector"
	"github.com/admin/astro-agent/internal/ports/service"
)

// HashingEmbedder локальные детерминированные эмбеддинги без внешнего API:
// слова и биграммы символов хэшируются в корзины вектора
type HashingEmbedder struct {
	dims int
}

func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashingEmbedder{dims: dims}
}

var _ service.IEmbedder = (*HashingEmbedder)(nil)

func (e *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func (e *HashingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *HashingEmbedder) Dimensions() int {
	return e.dims
}

func (e *HashingEmbedder) embed(text string) []float32 {
	v := make([]float32, e.dims)
	for _, word := range Tokenize(text) {
		e.add(v, "w:"+word, 1)
		runes := []rune(word)
		for i := 0; i+1 < len(runes); i++ {
			e.add(v, "b:"+string(runes[i:i+2]), 0.25)
		}
	}
	vector.Normalize(v)
	return v
}

func (e *HashingEmbedder) add(v []float32, token string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

// Tokenize слова в нижнем регистре без пунктуации
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
