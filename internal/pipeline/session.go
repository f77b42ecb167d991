// Package pipeline runs the two perception-action loops: the Recorder,
// which labels captures from a human's touches, and the Agent, which lets
// the classifier play.
//
// Both loops are single-goroutine: cycle N+1 starts only after cycle N
// has fully completed, and cancellation of the context ends the loop
// within one cycle. Cleanup runs on every exit path.
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"jordanella.com/subway-runner-go/internal/action"
	"jordanella.com/subway-runner-go/internal/events"
	"jordanella.com/subway-runner-go/internal/logging"
	"jordanella.com/subway-runner-go/internal/timeutil"
)

// Journal persists session outcomes. *database.DB satisfies it.
type Journal interface {
	StartSession(mode, deviceSerial string, startedAt time.Time) (string, error)
	RecordFrame(sessionID string, seq int64, label action.Label, path string, capturedAt time.Time) error
	RecordDispatch(sessionID string, seq int64, label action.Label, confidence float64, dispatchErr error, at time.Time) error
	FinishSession(sessionID string, cycles, skipped int64, runErr error, stoppedAt time.Time) error
}

// Summary is reported when a loop stops
type Summary struct {
	SessionID string
	Mode      string
	Started   time.Time
	Stopped   time.Time

	// Cycles counts attempted cycles, Skipped those that produced no
	// frame or no dispatch
	Cycles  int64
	Skipped int64

	// Resolved counts labels per completed cycle
	Resolved map[action.Label]int

	// OnDisk holds the partition counts after recording
	OnDisk map[action.Label]int
}

func newSummary(mode string) *Summary {
	return &Summary{
		Mode:     mode,
		Resolved: make(map[action.Label]int, action.Count),
	}
}

// String renders the summary the way the CLIs print it
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s session %s: %d cycles, %d skipped", s.Mode, s.SessionID, s.Cycles, s.Skipped)
	if !s.Started.IsZero() && !s.Stopped.IsZero() {
		fmt.Fprintf(&b, " in %s", s.Stopped.Sub(s.Started).Round(time.Millisecond))
	}
	b.WriteByte('\n')

	for _, label := range action.All {
		fmt.Fprintf(&b, "  %-8s %6d", label, s.Resolved[label])
		if s.OnDisk != nil {
			fmt.Fprintf(&b, "  (%d on disk)", s.OnDisk[label])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// labelNames keys counts by label name for events
func labelNames(counts map[action.Label]int) map[string]int {
	out := make(map[string]int, len(counts))
	for label, n := range counts {
		out[label.String()] = n
	}
	return out
}

// sortedLabels is used for deterministic log output
func sortedLabels(counts map[action.Label]int) []string {
	names := make([]string, 0, len(counts))
	for label, n := range counts {
		names = append(names, fmt.Sprintf("%s=%d", label, n))
	}
	sort.Strings(names)
	return names
}

// session bundles the collaborators every loop reports through
type session struct {
	source  string
	journal Journal
	bus     events.EventBus
	logger  *logging.Logger
	clock   timeutil.Clock
	summary *Summary
}

func newSession(source, mode string, journal Journal, bus events.EventBus, logger *logging.Logger, clock timeutil.Clock) *session {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &session{
		source:  source,
		journal: journal,
		bus:     bus,
		logger:  logger,
		clock:   clock,
		summary: newSummary(mode),
	}
}

func (s *session) publish(ev events.Event) {
	if s.bus == nil {
		return
	}
	if !s.bus.Publish(ev) {
		s.logger.DebugWithContext("Event dropped", map[string]interface{}{"type": ev.Type})
	}
}

func (s *session) start(deviceSerial string) error {
	s.summary.Started = s.clock.Now()
	if s.journal != nil {
		id, err := s.journal.StartSession(s.summary.Mode, deviceSerial, s.summary.Started)
		if err != nil {
			return fmt.Errorf("failed to start journal session: %w", err)
		}
		s.summary.SessionID = id
	}

	s.logger.InfoWithContext("Session started", map[string]interface{}{
		"session": s.summary.SessionID,
		"mode":    s.summary.Mode,
	})
	s.publish(events.NewSessionStartedEvent(s.source, s.summary.SessionID, s.summary.Mode))
	return nil
}

// skip counts a cycle that produced nothing
func (s *session) skip(seq int64, reason string, err error) {
	s.summary.Skipped++
	s.logger.WarnWithContext("Cycle skipped", err, map[string]interface{}{
		"seq":    seq,
		"reason": reason,
	})
	s.publish(events.NewCycleSkippedEvent(s.source, seq, reason, err))
}

// finish closes the journal session and reports the summary. runErr is
// the loop's terminal error, nil on a clean stop.
func (s *session) finish(runErr error) {
	s.summary.Stopped = s.clock.Now()

	if s.journal != nil && s.summary.SessionID != "" {
		if err := s.journal.FinishSession(s.summary.SessionID, s.summary.Cycles, s.summary.Skipped, runErr, s.summary.Stopped); err != nil {
			s.logger.Error("Failed to close journal session", err)
		}
	}

	counts := s.summary.Resolved
	if s.summary.OnDisk != nil {
		counts = s.summary.OnDisk
	}
	s.publish(events.NewSessionStoppedEvent(s.source, s.summary.SessionID,
		int(s.summary.Cycles), int(s.summary.Skipped), labelNames(counts)))

	s.logger.InfoWithContext("Session stopped", map[string]interface{}{
		"session": s.summary.SessionID,
		"cycles":  s.summary.Cycles,
		"skipped": s.summary.Skipped,
		"labels":  strings.Join(sortedLabels(s.summary.Resolved), " "),
	})
}
