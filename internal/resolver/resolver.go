// Package resolver turns a cycle's raw signal into exactly one action label.
//
// Two variants share the Resolver interface: EventDecay correlates touch
// events with the sampling instant and decays to Neutral after an idle
// period (recording), Passthrough takes the arg-max of a classifier output
// (runtime).
package resolver

import (
	"errors"
	"time"

	"jordanella.com/subway-runner-go/internal/action"
	"jordanella.com/subway-runner-go/internal/touch"
)

// ErrInvalidPrediction means a classifier output cannot be mapped to a label
var ErrInvalidPrediction = errors.New("invalid prediction vector")

// Signal is the raw input of one cycle. Recording fills Events with the
// touch samples polled since the previous cycle; runtime fills
// Probabilities with the classifier output.
type Signal struct {
	Events        []touch.Event
	Probabilities []float64
}

// Resolver decides the label attached to a cycle sampled at now
type Resolver interface {
	Resolve(sig Signal, now time.Time) (action.Label, error)
}
