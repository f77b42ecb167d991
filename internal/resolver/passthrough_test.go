package resolver

import (
	"errors"
	"math"
	"testing"
	"time"

	"jordanella.com/subway-runner-go/internal/action"
)

func TestPassthroughArgMax(t *testing.T) {
	tests := []struct {
		probs []float64
		want  action.Label
	}{
		{[]float64{0.1, 0.05, 0.7, 0.1, 0.05}, action.Up},
		{[]float64{0.9, 0.05, 0.02, 0.02, 0.01}, action.Left},
		{[]float64{0.1, 0.6, 0.1, 0.1, 0.1}, action.Right},
		{[]float64{0.1, 0.1, 0.1, 0.6, 0.1}, action.Down},
		{[]float64{0.0, 0.0, 0.0, 0.0, 1.0}, action.Neutral},
		{[]float64{0.3, 0.3, 0.2, 0.1, 0.1}, action.Left}, // tie goes to the lowest index
	}

	var r Resolver = NewPassthrough()
	for _, tt := range tests {
		got, err := r.Resolve(Signal{Probabilities: tt.probs}, time.Time{})
		if err != nil {
			t.Fatalf("Resolve(%v) failed: %v", tt.probs, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%v) = %v, want %v", tt.probs, got, tt.want)
		}
	}
}

func TestArgMaxReturnsConfidence(t *testing.T) {
	label, p, err := ArgMax([]float64{0.1, 0.05, 0.7, 0.1, 0.05})
	if err != nil || label != action.Up || p != 0.7 {
		t.Errorf("ArgMax = %v, %v, %v; want up, 0.7, nil", label, p, err)
	}
}

func TestPassthroughRejectsBadVectors(t *testing.T) {
	bad := [][]float64{
		nil,
		{0.5, 0.5},
		{0.1, 0.1, 0.1, 0.1, 0.1, 0.5},
		{0.1, math.NaN(), 0.1, 0.1, 0.1},
		{0.1, math.Inf(1), 0.1, 0.1, 0.1},
	}

	for _, probs := range bad {
		if _, err := NewPassthrough().Resolve(Signal{Probabilities: probs}, time.Time{}); !errors.Is(err, ErrInvalidPrediction) {
			t.Errorf("Resolve(%v) expected ErrInvalidPrediction, got %v", probs, err)
		}
	}
}
