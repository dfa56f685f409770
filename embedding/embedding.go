// Package embedding turns text into fixed-dimension float32 vectors.
//
// The package offers a remote client for Google's Generative Language
// embedding API, a deterministic mock for tests and offline work, and a
// memoizing wrapper that caches vectors for repeated texts. All
// implementations satisfy Embedder, so callers can swap them freely.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when a text to embed is empty or whitespace-only.
var ErrEmptyText = errors.New("embedding: cannot embed empty text")

// Embedder converts text into dense vectors.
//
// Implementations must be deterministic for the same input text and safe for
// concurrent use. Every returned vector has exactly Dimension() components.
type Embedder interface {
	// Embed converts a single text into a vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts many texts at once, preserving input order.
	// It fails as a whole if any text cannot be embedded.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the length of the vectors this embedder produces.
	Dimension() int
}
