package rag

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMMRSelectFirstPickIsMostRelevant(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},            // irrelevant
		{1, 0},            // exact match
		{0.707, 0.707},    // partial
	}

	selected := MMRSelect(query, candidates, 1, DefaultLambda)

	if len(selected) != 1 || selected[0] != 1 {
		t.Fatalf("selected %v, want [1]", selected)
	}
}

func TestMMRSelectPenalizesNearDuplicates(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{1, 0},         // exact match
		{0.999, 0.001}, // near-duplicate of the match
		{0.6, 0.8},     // less relevant but diverse
	}

	selected := MMRSelect(query, candidates, 2, DefaultLambda)

	if len(selected) != 2 {
		t.Fatalf("got %d picks, want 2", len(selected))
	}
	if selected[0] != 0 {
		t.Errorf("first pick = %d, want 0", selected[0])
	}
	if selected[1] != 2 {
		t.Errorf("second pick = %d, want the diverse candidate 2", selected[1])
	}
}

func TestMMRSelectClampsKToCandidates(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{{1, 0}, {0, 1}}

	selected := MMRSelect(query, candidates, 10, DefaultLambda)

	if len(selected) != 2 {
		t.Errorf("got %d picks, want all 2 candidates", len(selected))
	}
}

func TestMMRSelectEmpty(t *testing.T) {
	if got := MMRSelect([]float32{1}, nil, 3, DefaultLambda); got != nil {
		t.Errorf("got %v for no candidates", got)
	}
	if got := MMRSelect([]float32{1}, [][]float32{{1}}, 0, DefaultLambda); got != nil {
		t.Errorf("got %v for k=0", got)
	}
}
