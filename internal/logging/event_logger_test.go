package logging

import (
	"os"
	"strings"
	"testing"

	"jordanella.com/subway-runner-go/internal/events"
)

func TestEventLoggerWritesEvents(t *testing.T) {
	bus := events.NewEventBus(8)
	el, err := NewEventLogger(bus, t.TempDir())
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	bus.Publish(events.NewSessionStartedEvent("recorder", "abc", "record"))
	bus.Publish(events.NewCycleSkippedEvent("recorder", 4, "capture", nil))
	bus.Stop()

	if err := el.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(el.Path())
	if err != nil {
		t.Fatalf("Failed to read event log: %v", err)
	}
	out := string(data)

	if !strings.Contains(out, "INFO [EventLogger] session.started") || !strings.Contains(out, "session_id=abc") {
		t.Errorf("Missing session.started line: %q", out)
	}
	if !strings.Contains(out, "WARN [EventLogger] cycle.skipped") || !strings.Contains(out, "reason=capture") {
		t.Errorf("Missing cycle.skipped line: %q", out)
	}
}
