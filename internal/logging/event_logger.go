package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jordanella.com/subway-runner-go/internal/events"
)

// EventLogger subscribes to the event bus and mirrors every event into a
// per-session log file
type EventLogger struct {
	logger          *Logger
	eventBus        events.EventBus
	subscriptionIDs []events.SubscriptionID
	logFile         *os.File
}

// NewEventLogger creates a new event logger writing under logDir
func NewEventLogger(eventBus events.EventBus, logDir string) (*EventLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("events_%s.log", timestamp))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	el := &EventLogger{
		logger:   NewLogger("EventLogger").SetOutputs(logFile).SetMinLevel(LogLevelDebug),
		eventBus: eventBus,
		logFile:  logFile,
	}

	for _, eventType := range events.AllEventTypes {
		el.subscriptionIDs = append(el.subscriptionIDs, eventBus.Subscribe(eventType, el.handleEvent))
	}

	return el, nil
}

// Path returns the log file path
func (el *EventLogger) Path() string {
	return el.logFile.Name()
}

func (el *EventLogger) handleEvent(event events.Event) {
	context := map[string]interface{}{
		"source": event.Source,
	}
	for k, v := range event.Data {
		context[k] = v
	}

	// Per-frame events are noisy; keep them at debug
	switch event.Type {
	case events.EventTypeFrameSaved, events.EventTypeGestureDispatched:
		el.logger.DebugWithContext(string(event.Type), context)
	case events.EventTypeCycleSkipped, events.EventTypeStreamClosed:
		el.logger.WarnWithContext(string(event.Type), nil, context)
	default:
		el.logger.InfoWithContext(string(event.Type), context)
	}
}

// Close unsubscribes and closes the log file. Stop the bus first so every
// queued event is written.
func (el *EventLogger) Close() error {
	for _, id := range el.subscriptionIDs {
		el.eventBus.Unsubscribe(id)
	}
	if el.logFile != nil {
		return el.logFile.Close()
	}
	return nil
}
