// Package geom provides arithmetic over fixed-length physical coordinates.
package geom

import "gonum.org/v1/gonum/floats"

// Add returns a+b over the first len(b) components.
func Add(a, b []float64) []float64 {
	out := make([]float64, len(b))
	floats.AddTo(out, a[:len(b)], b)
	return out
}

// Sub returns a-b over the first len(b) components.
func Sub(a, b []float64) []float64 {
	out := make([]float64, len(b))
	floats.SubTo(out, a[:len(b)], b)
	return out
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Zeros returns an origin of the given dimensionality.
func Zeros(n int) []float64 {
	return make([]float64, n)
}

// OrZeros returns c, or an origin of dimensionality n when c is empty.
func OrZeros(c []float64, n int) []float64 {
	if len(c) == 0 {
		return Zeros(n)
	}
	return c
}
