package events

import "time"

// EventType represents different types of events emitted by the live loops
type EventType string

const (
	// Session lifecycle
	EventTypeSessionStarted EventType = "session.started"
	EventTypeSessionStopped EventType = "session.stopped"

	// Per-cycle outcomes
	EventTypeFrameSaved        EventType = "frame.saved"
	EventTypeGestureDispatched EventType = "gesture.dispatched"
	EventTypeCycleSkipped      EventType = "cycle.skipped"

	// Input stream
	EventTypeStreamClosed EventType = "stream.closed"
)

// AllEventTypes lists every event type, for subscribers that want everything
var AllEventTypes = []EventType{
	EventTypeSessionStarted,
	EventTypeSessionStopped,
	EventTypeFrameSaved,
	EventTypeGestureDispatched,
	EventTypeCycleSkipped,
	EventTypeStreamClosed,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "recorder", "agent")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish queues an event without blocking; it reports false if the
	// event was dropped because the queue is full or the bus stopped
	Publish(event Event) bool

	// Stop stops the event bus and drains remaining events
	Stop()
}

// NewSessionStartedEvent creates a session started event
func NewSessionStartedEvent(source, sessionID, mode string) Event {
	return Event{
		Type:      EventTypeSessionStarted,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"mode":       mode,
		},
	}
}

// NewSessionStoppedEvent creates a session stopped event carrying the per-label counts
func NewSessionStoppedEvent(source, sessionID string, cycles, skipped int, counts map[string]int) Event {
	data := map[string]interface{}{
		"session_id": sessionID,
		"cycles":     cycles,
		"skipped":    skipped,
	}
	for label, n := range counts {
		data["count_"+label] = n
	}
	return Event{
		Type:      EventTypeSessionStopped,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewFrameSavedEvent creates a frame saved event
func NewFrameSavedEvent(source string, seq int64, label, path string) Event {
	return Event{
		Type:      EventTypeFrameSaved,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"seq":   seq,
			"label": label,
			"path":  path,
		},
	}
}

// NewGestureDispatchedEvent creates a gesture dispatched event
func NewGestureDispatchedEvent(source string, seq int64, label string, confidence float64) Event {
	return Event{
		Type:      EventTypeGestureDispatched,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"seq":        seq,
			"label":      label,
			"confidence": confidence,
		},
	}
}

// NewCycleSkippedEvent creates a cycle skipped event
func NewCycleSkippedEvent(source string, seq int64, reason string, err error) Event {
	data := map[string]interface{}{
		"seq":    seq,
		"reason": reason,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return Event{
		Type:      EventTypeCycleSkipped,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewStreamClosedEvent creates an input stream closed event
func NewStreamClosedEvent(source string, err error) Event {
	data := map[string]interface{}{}
	if err != nil {
		data["error"] = err.Error()
	}
	return Event{
		Type:      EventTypeStreamClosed,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}
