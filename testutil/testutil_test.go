package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Len(t, v, 8)
	assert.Len(t, v[0], 32)
	for _, vec := range v {
		for _, c := range vec {
			assert.GreaterOrEqual(t, c, float32(0))
			assert.Less(t, c, float32(1))
		}
	}
}

func TestUnitVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UnitVectors(8, 32)

	require.Len(t, v, 8)
	for _, vec := range v {
		var norm float64
		for _, c := range vec {
			norm += float64(c) * float64(c)
		}
		assert.InDelta(t, 1.0, norm, 1e-5)
	}
}

func TestSameSeedSameVectors(t *testing.T) {
	a := NewRNG(99).UnitVectors(4, 16)
	b := NewRNG(99).UnitVectors(4, 16)

	assert.Equal(t, a, b)
	assert.EqualValues(t, 99, NewRNG(99).Seed())
}

func TestExactNearest(t *testing.T) {
	vectors := [][]float32{
		{0, 0},
		{3, 0},
		{1, 0},
	}

	got := ExactNearest(vectors, []float32{0, 0}, 2)

	require.Len(t, got, 2)
	assert.Equal(t, Neighbor{ID: 0, Distance: 0}, got[0])
	assert.Equal(t, Neighbor{ID: 2, Distance: 1}, got[1])
}

func TestExactNearestTieBreaksByID(t *testing.T) {
	vectors := [][]float32{
		{1, 0},
		{0, 1},
		{-1, 0},
	}

	got := ExactNearest(vectors, []float32{0, 0}, 3)

	require.Len(t, got, 3)
	assert.Equal(t, uint64(0), got[0].ID)
	assert.Equal(t, uint64(1), got[1].ID)
	assert.Equal(t, uint64(2), got[2].ID)
}

func TestExactNearestShortDataset(t *testing.T) {
	got := ExactNearest([][]float32{{1, 1}}, []float32{0, 0}, 5)

	require.Len(t, got, 1)
	assert.Equal(t, uint64(0), got[0].ID)
}
