package embedding

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"

	"github.com/medivault/recall/internal/math32"
)

// Mock is a deterministic offline embedder.
//
// Each text maps to a pseudo-random unit vector seeded from its hash, so the
// same text always yields the same vector and different texts almost surely
// yield different ones. Useful in tests and local development where no API
// key is available.
type Mock struct {
	dimension int
}

// NewMock creates a mock embedder producing vectors of the given width.
func NewMock(dimension int) *Mock {
	if dimension <= 0 {
		dimension = 8
	}
	return &Mock{dimension: dimension}
}

// Dimension returns the vector width.
func (m *Mock) Dimension() int {
	return m.dimension
}

// Embed returns the unit vector derived from the text's hash.
func (m *Mock) Embed(_ context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64()))) // nolint gosec

	vec := make([]float32, m.dimension)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}

	if norm := math32.Norm(vec); norm > 0 {
		math32.ScaleInPlace(vec, 1/norm)
	}

	return vec, nil
}

// EmbedBatch embeds each text independently.
func (m *Mock) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}

	return out, nil
}
