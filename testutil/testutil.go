package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/medivault/recall/internal/math32"
)

// Neighbor is one entry of an exact nearest-neighbor ranking. IDs are row
// offsets into the vector slice the ranking was computed over.
type Neighbor struct {
	ID       uint64
	Distance float64
}

// RNG is a seeded random vector source. It is safe for concurrent use.
type RNG struct {
	mu   sync.Mutex
	rand *rand.Rand
	seed int64
}

// NewRNG creates a new RNG with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Float32 returns a pseudo-random number in [0.0, 1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Intn returns a non-negative pseudo-random number in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// UniformVectors generates num vectors with components in [0, 1), all views
// into a single backing array.
func (r *RNG) UniformVectors(num, dimension int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimension)
	vectors := make([][]float32, num)
	for i := range num {
		vec := data[i*dimension : (i+1)*dimension]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}
	return vectors
}

// UnitVector generates one L2-normalized vector. Components are sampled from
// a Gaussian so the direction is uniform on the hypersphere.
func (r *RNG) UnitVector(dimension int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unitVectorLocked(dimension)
}

// UnitVectors generates num L2-normalized vectors.
func (r *RNG) UnitVectors(num, dimension int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float32, num)
	for i := range num {
		vectors[i] = r.unitVectorLocked(dimension)
	}
	return vectors
}

func (r *RNG) unitVectorLocked(dimension int) []float32 {
	vec := make([]float32, dimension)
	var norm float64
	for j := range vec {
		v := r.rand.NormFloat64()
		vec[j] = float32(v)
		norm += v * v
	}
	if norm == 0 {
		norm = 1
	}
	math32.ScaleInPlace(vec, float32(1/math.Sqrt(norm)))
	return vec
}

// ExactNearest ranks all vectors by squared Euclidean distance to query and
// returns the k nearest, ties broken by lower ID. This is the reference
// answer a search over the same rows must reproduce.
func ExactNearest(vectors [][]float32, query []float32, k int) []Neighbor {
	neighbors := make([]Neighbor, len(vectors))
	for i, v := range vectors {
		neighbors[i] = Neighbor{ID: uint64(i), Distance: float64(math32.SquaredL2(query, v))}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].ID < neighbors[j].ID
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}
