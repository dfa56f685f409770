package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatorMonotonic(t *testing.T) {
	a := New()
	assert.Equal(t, uint64(0), a.Next())

	assert.Equal(t, uint64(0), a.Reserve(3))
	assert.Equal(t, uint64(3), a.Next())

	assert.Equal(t, uint64(3), a.Reserve(1))
	assert.Equal(t, uint64(4), a.Reserve(5))
	assert.Equal(t, uint64(9), a.Next())
}

func TestAllocatorSeed(t *testing.T) {
	a := New()
	a.Seed(42)
	assert.Equal(t, uint64(42), a.Reserve(2))
	assert.Equal(t, uint64(44), a.Next())

	a.Seed(0)
	assert.Equal(t, uint64(0), a.Next())
}
