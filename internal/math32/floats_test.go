package math32

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, expected: 0},
		{name: "parallel", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, expected: 14},
		{name: "negative", a: []float32{1, -1}, b: []float32{1, 1}, expected: 0},
		{name: "empty", a: nil, b: nil, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Dot(tt.a, tt.b), 1e-6)
		})
	}
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, expected: 0},
		{name: "unit apart", a: []float32{0, 0}, b: []float32{1, 0}, expected: 1},
		{name: "diagonal", a: []float32{0, 0}, b: []float32{3, 4}, expected: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-6)
		})
	}
}

func TestNorm(t *testing.T) {
	assert.InDelta(t, 5.0, Norm([]float32{3, 4}), 1e-6)
	assert.InDelta(t, 0.0, Norm([]float32{0, 0, 0}), 1e-6)
}

func TestScaleInPlace(t *testing.T) {
	v := []float32{2, 4, 6}
	ScaleInPlace(v, 0.5)
	assert.Equal(t, []float32{1, 2, 3}, v)
}
