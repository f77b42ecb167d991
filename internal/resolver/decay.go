package resolver

import (
	"fmt"
	"time"

	"jordanella.com/subway-runner-go/internal/action"
	"jordanella.com/subway-runner-go/internal/touch"
)

// DefaultIdleThreshold is how long a directional label survives without a
// new directional event
const DefaultIdleThreshold = 500 * time.Millisecond

// ScreenSize is the device resolution used for region zoning
type ScreenSize struct {
	Width  int
	Height int
}

// EventDecay holds the recording-mode state machine. It is owned by a
// single pipeline goroutine and is not safe for concurrent use.
type EventDecay struct {
	screen        ScreenSize
	idleThreshold time.Duration

	label          action.Label
	lastTransition time.Time

	// events that arrived after the instant being resolved
	pending []touch.Event
}

// NewEventDecay creates a resolver in the Neutral state
func NewEventDecay(screen ScreenSize, idleThreshold time.Duration) (*EventDecay, error) {
	if screen.Width <= 0 || screen.Height <= 0 {
		return nil, fmt.Errorf("invalid screen size %dx%d", screen.Width, screen.Height)
	}
	if idleThreshold <= 0 {
		idleThreshold = DefaultIdleThreshold
	}
	return &EventDecay{
		screen:        screen,
		idleThreshold: idleThreshold,
		label:         action.Neutral,
	}, nil
}

// Candidate classifies one event into a directional label. Events in the
// middle third of their axis return ok=false and never change state.
// Bounds are strict: a reading exactly on a third boundary is middle.
func (r *EventDecay) Candidate(ev touch.Event) (action.Label, bool) {
	switch ev.Axis {
	case touch.AxisX:
		switch {
		case ev.Value*3 < r.screen.Width:
			return action.Left, true
		case ev.Value*3 > 2*r.screen.Width:
			return action.Right, true
		}
	case touch.AxisY:
		switch {
		case ev.Value*3 < r.screen.Height:
			return action.Up, true
		case ev.Value*3 > 2*r.screen.Height:
			return action.Down, true
		}
	}
	return action.Neutral, false
}

// Observe applies events in arrival order; the last valid candidate wins
// regardless of axis.
func (r *EventDecay) Observe(events []touch.Event) {
	for _, ev := range events {
		if label, ok := r.Candidate(ev); ok {
			r.label = label
			r.lastTransition = ev.At
		}
	}
}

// Resolve applies the cycle's events that arrived no later than now, then
// decays to Neutral if the last transition is older than the idle
// threshold. Later events are kept for a future call.
func (r *EventDecay) Resolve(sig Signal, now time.Time) (action.Label, error) {
	queue := append(r.pending, sig.Events...)
	r.pending = nil

	ready := make([]touch.Event, 0, len(queue))
	for _, ev := range queue {
		if ev.At.After(now) {
			r.pending = append(r.pending, ev)
			continue
		}
		ready = append(ready, ev)
	}
	r.Observe(ready)

	if r.label != action.Neutral && now.Sub(r.lastTransition) > r.idleThreshold {
		r.label = action.Neutral
	}

	return r.label, nil
}

// Label returns the current state without resolving
func (r *EventDecay) Label() action.Label {
	return r.label
}

// LastTransition returns the arrival time of the last directional event
func (r *EventDecay) LastTransition() time.Time {
	return r.lastTransition
}

// Pending returns how many events are held back for a later instant
func (r *EventDecay) Pending() int {
	return len(r.pending)
}
