package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 0, 0}, b: []float64{1, 0, 0}, want: 1},
		{name: "orthogonal", a: []float64{1, 0, 0}, b: []float64{0, 1, 0}, want: 0},
		{name: "opposite", a: []float64{1, 2}, b: []float64{-1, -2}, want: -1},
		{name: "scaled", a: []float64{1, 2, 3}, b: []float64{2, 4, 6}, want: 1},
		{name: "zero padded", a: []float64{1, 1}, b: []float64{1, 1, 0, 0}, want: 1},
		{name: "padding counts", a: []float64{1}, b: []float64{1, 1}, want: 1 / math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	for _, v := range [][]float64{{0.3}, {0.1, -0.7, 2.5}, {1e-3, 4, 4, 4, -9}} {
		if got := CosineSimilarity(v, v); math.Abs(got-1) > 1e-9 {
			t.Errorf("CosineSimilarity(%v, itself) = %v, want 1", v, got)
		}
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float64{0.2, 0.4, -0.1, 0.9}
	b := []float64{-0.5, 0.3, 0.3}
	if CosineSimilarity(a, b) != CosineSimilarity(b, a) {
		t.Errorf("CosineSimilarity is not symmetric: %v vs %v", CosineSimilarity(a, b), CosineSimilarity(b, a))
	}
}

func TestCosineSimilarity_ZeroNormIsNotFinite(t *testing.T) {
	got := CosineSimilarity([]float64{0, 0}, []float64{1, 0})
	if Finite(got) {
		t.Errorf("CosineSimilarity(zero, v) = %v, want non-finite", got)
	}
	if Finite(CosineSimilarity(nil, nil)) {
		t.Error("CosineSimilarity(nil, nil) should be non-finite")
	}
}
