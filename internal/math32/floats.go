// Package math32 provides float32 vector primitives for the search path.
// This is an internal package - external users should use the public recall API.
package math32

import "math"

// Dot calculates the dot product of two vectors.
// Both slices must have the same length.
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}

	return ret
}

// SquaredL2 calculates the squared Euclidean distance between two vectors.
// Both slices must have the same length.
func SquaredL2(a, b []float32) float32 {
	var distance float32
	for i := range a {
		d := a[i] - b[i]
		distance += d * d
	}

	return distance
}

// Norm calculates the Euclidean norm (magnitude) of a vector.
func Norm(a []float32) float32 {
	return float32(math.Sqrt(float64(Dot(a, a))))
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}
