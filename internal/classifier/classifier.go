// Package classifier feeds screen captures to the trained action model.
//
// The model itself lives outside this module; Worker talks to a
// long-running model-serving process over length-prefixed msgpack frames.
package classifier

import (
	"context"
	"errors"
)

// ErrClassification wraps every per-cycle prediction failure. The agent
// skips dispatch for that cycle and keeps running.
var ErrClassification = errors.New("classification failed")

// Classifier predicts a probability vector over the five action labels
// in model index order
type Classifier interface {
	Predict(ctx context.Context, tensor Tensor) ([]float64, error)
}
