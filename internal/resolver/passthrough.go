package resolver

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"jordanella.com/subway-runner-go/internal/action"
)

// Passthrough maps a classifier probability vector to its arg-max label.
// It keeps no state and applies no decay; the model is expected to emit
// Neutral itself.
type Passthrough struct{}

// NewPassthrough creates a runtime resolver
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Resolve returns the label at the highest probability. Ties go to the
// lowest index.
func (Passthrough) Resolve(sig Signal, _ time.Time) (action.Label, error) {
	label, _, err := ArgMax(sig.Probabilities)
	return label, err
}

// ArgMax returns the predicted label and its probability
func ArgMax(probs []float64) (action.Label, float64, error) {
	if len(probs) != action.Count {
		return action.Neutral, 0, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidPrediction, action.Count, len(probs))
	}
	if floats.HasNaN(probs) {
		return action.Neutral, 0, fmt.Errorf("%w: NaN in output", ErrInvalidPrediction)
	}
	for _, p := range probs {
		if math.IsInf(p, 0) {
			return action.Neutral, 0, fmt.Errorf("%w: Inf in output", ErrInvalidPrediction)
		}
	}

	idx := floats.MaxIdx(probs)
	label, err := action.FromIndex(idx)
	if err != nil {
		return action.Neutral, 0, err
	}
	return label, probs[idx], nil
}
