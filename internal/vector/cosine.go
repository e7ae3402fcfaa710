// Package vector compares embedding vectors.
package vector

import "math"

// CosineSimilarity returns the cosine of the angle between a and b over
// the longer of the two lengths, treating missing trailing components as
// zero. A zero-norm input divides by zero and yields a non-finite result;
// callers must guard against it.
func CosineSimilarity(a, b []float64) float64 {
	n := max(len(a), len(b))

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		var x, y float64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		dot += x * y
		normA += x * x
		normB += y * y
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Finite reports whether s is neither NaN nor infinite.
func Finite(s float64) bool {
	return !math.IsNaN(s) && !math.IsInf(s, 0)
}
