// Package vectorstore provides the append-only dense vector store used by
// every index unit. Vectors are stored row-major in a single contiguous
// float32 slice, identifiers are row offsets, and search is an exact
// brute-force scan under the squared Euclidean metric.
package vectorstore

import (
	"context"
	"fmt"
	"io"

	"github.com/medivault/recall/internal/math32"
	"github.com/medivault/recall/internal/queue"
	"github.com/medivault/recall/persistence"
)

// Sentinel errors reported by the store. Callers translate these into the
// public error taxonomy at the API boundary.
var (
	// ErrInvalidDimension is returned by New when the requested dimension
	// is not a positive integer.
	ErrInvalidDimension = fmt.Errorf("vectorstore: dimension must be positive")

	// ErrInvalidK is returned by Search when k is not a positive integer.
	ErrInvalidK = fmt.Errorf("vectorstore: k must be positive")
)

// DimensionMismatchError is returned when a vector's length does not match
// the store's fixed dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vectorstore: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// cancelCheckInterval is the number of rows scanned between context checks
// during a search.
const cancelCheckInterval = 1024

// DenseStore is a flat, append-only collection of fixed-dimension float32
// vectors. The vector appended at position i has identifier i; rows are never
// updated or removed, so identifiers are stable for the lifetime of the store.
//
// DenseStore is not safe for concurrent use. The owning index unit serializes
// access.
type DenseStore struct {
	dim  int
	data []float32 // row-major, len(data) == Size()*dim
}

// New creates an empty store for vectors of the given dimension.
func New(dimension int) (*DenseStore, error) {
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	return &DenseStore{dim: dimension}, nil
}

// FromRows constructs a store around existing row-major vector data, taking
// ownership of the slice. It is used when restoring a store from a snapshot.
func FromRows(dimension int, data []float32) (*DenseStore, error) {
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	if len(data)%dimension != 0 {
		return nil, fmt.Errorf("vectorstore: row data length %d is not a multiple of dimension %d", len(data), dimension)
	}

	return &DenseStore{dim: dimension, data: data}, nil
}

// Dimension returns the fixed vector dimension of the store.
func (s *DenseStore) Dimension() int {
	return s.dim
}

// Size returns the number of vectors currently stored.
func (s *DenseStore) Size() int {
	return len(s.data) / s.dim
}

// Append adds the given vectors to the store and returns the identifier
// assigned to the first of them; the i-th vector receives identifier
// offset+i. The append is all-or-nothing: every vector is validated against
// the store dimension before any row is written, so a mismatch anywhere in
// the batch leaves the store unchanged.
func (s *DenseStore) Append(vectors [][]float32) (uint64, error) {
	offset := uint64(s.Size())

	if len(vectors) == 0 {
		return offset, nil
	}

	for i, v := range vectors {
		if len(v) != s.dim {
			return 0, fmt.Errorf("vectorstore: vector %d: %w", i, &DimensionMismatchError{Expected: s.dim, Actual: len(v)})
		}
	}

	if cap(s.data)-len(s.data) < len(vectors)*s.dim {
		grown := make([]float32, len(s.data), len(s.data)+len(vectors)*s.dim)
		copy(grown, s.data)
		s.data = grown
	}

	for _, v := range vectors {
		s.data = append(s.data, v...)
	}

	return offset, nil
}

// Vector returns the stored vector for the given identifier, or false when
// the identifier is out of range. The returned slice aliases internal memory
// and must be treated as read-only.
func (s *DenseStore) Vector(id uint64) ([]float32, bool) {
	if id >= uint64(s.Size()) {
		return nil, false
	}

	start := int(id) * s.dim

	return s.data[start : start+s.dim : start+s.dim], true
}

// Search scans every stored vector and returns the k nearest to the query
// under squared Euclidean distance, ordered by ascending distance with
// ascending identifier breaking ties. Fewer than k candidates are returned
// when the store holds fewer than k vectors; an empty store yields no
// candidates and no error.
func (s *DenseStore) Search(ctx context.Context, query []float32, k int) ([]queue.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return nil, ErrInvalidK
	}

	if len(query) != s.dim {
		return nil, &DimensionMismatchError{Expected: s.dim, Actual: len(query)}
	}

	size := s.Size()
	if size == 0 {
		return nil, nil
	}

	if k > size {
		k = size
	}

	top := queue.NewTopK(k)

	for i := 0; i < size; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row := s.data[i*s.dim : (i+1)*s.dim]
		top.Push(queue.Candidate{ID: uint64(i), Distance: math32.SquaredL2(query, row)})
	}

	return top.Sorted(), nil
}

// WriteTo writes a snapshot of the store to w using the binary vector
// artifact format, compressing the payload with the given codec.
func (s *DenseStore) WriteTo(w io.Writer, compression persistence.CompressionType) error {
	return persistence.WriteVectors(w, uint32(s.dim), uint64(s.Size()), s.data, compression)
}

// Load reads a snapshot previously written by WriteTo and reconstructs the
// store. Errors from the underlying format (bad magic, checksum mismatch,
// truncation) are returned unwrapped so callers can classify corruption.
func Load(r io.Reader) (*DenseStore, error) {
	dimension, data, err := persistence.ReadVectors(r)
	if err != nil {
		return nil, err
	}

	return FromRows(int(dimension), data)
}
