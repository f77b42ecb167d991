package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"jordanella.com/subway-runner-go/internal/action"
	"jordanella.com/subway-runner-go/internal/dataset"
	"jordanella.com/subway-runner-go/internal/events"
	"jordanella.com/subway-runner-go/internal/logging"
	"jordanella.com/subway-runner-go/internal/resolver"
	"jordanella.com/subway-runner-go/internal/sampler"
	"jordanella.com/subway-runner-go/internal/timeutil"
	"jordanella.com/subway-runner-go/internal/touch"
)

// RecorderBridge is the device surface the recorder needs
type RecorderBridge interface {
	sampler.Capturer
	GetWindowSize(ctx context.Context) (width, height int, err error)
	OpenEventStream(ctx context.Context) (io.ReadCloser, error)
}

// EventSource delivers touch events between cycles. *touch.Stream
// satisfies it.
type EventSource interface {
	Poll(max int) []touch.Event
	Closed() bool
	Err() error
	Close() error
}

// RecorderOptions configures a Recorder
type RecorderOptions struct {
	Interval      time.Duration
	IdleThreshold time.Duration
	EventBuffer   int

	// TouchSize zones events; zero queries the window size
	TouchSize resolver.ScreenSize

	ScratchPath  string
	DeviceSerial string

	// Events replaces the getevent stream when set
	Events EventSource

	LabelBook *dataset.LabelBook
	Journal   Journal
	Bus       events.EventBus
	Logger    *logging.Logger
	Clock     timeutil.Clock
}

// Recorder correlates a human's touches with periodic captures and writes
// one labeled frame per successful cycle
type Recorder struct {
	bridge RecorderBridge
	writer *dataset.Writer
	opts   RecorderOptions
}

// NewRecorder creates a recorder writing into writer
func NewRecorder(bridge RecorderBridge, writer *dataset.Writer, opts RecorderOptions) *Recorder {
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = resolver.DefaultIdleThreshold
	}
	return &Recorder{bridge: bridge, writer: writer, opts: opts}
}

// Run records until ctx is cancelled. Startup failures are returned
// before the first cycle; the summary is always non-nil.
func (r *Recorder) Run(ctx context.Context) (summary *Summary, err error) {
	s := newSession("recorder", "record", r.opts.Journal, r.opts.Bus, r.opts.Logger, r.opts.Clock)
	summary = s.summary

	screen, err := r.touchSize(ctx)
	if err != nil {
		return summary, err
	}
	decay, err := resolver.NewEventDecay(screen, r.opts.IdleThreshold)
	if err != nil {
		return summary, err
	}

	if err := r.writer.EnsureLayout(); err != nil {
		return summary, err
	}

	source := r.opts.Events
	if source == nil {
		raw, err := r.bridge.OpenEventStream(ctx)
		if err != nil {
			return summary, fmt.Errorf("failed to open touch event stream: %w", err)
		}
		source = touch.NewStream(raw, s.clock, r.opts.EventBuffer)
	}

	smp := sampler.New(r.bridge, r.opts.ScratchPath, s.clock)

	if err := s.start(r.opts.DeviceSerial); err != nil {
		source.Close()
		return summary, err
	}

	s.logger.InfoWithContext("Recording", map[string]interface{}{
		"width":    screen.Width,
		"height":   screen.Height,
		"interval": r.opts.Interval,
		"idle":     r.opts.IdleThreshold,
		"output":   r.writer.Root(),
	})

	defer func() {
		source.Close()
		if cerr := smp.Cleanup(); cerr != nil {
			s.logger.Warn(cerr.Error())
		}
		if r.opts.LabelBook != nil {
			if cerr := r.opts.LabelBook.Close(); cerr != nil {
				s.logger.Error("Failed to save label book", cerr)
			}
		}
		if counts, cerr := r.writer.Counts(); cerr == nil {
			summary.OnDisk = counts
		} else {
			s.logger.Error("Failed to count partitions", cerr)
		}
		s.finish(err)
	}()

	err = r.loop(ctx, s, smp, decay, source)
	return summary, err
}

func (r *Recorder) touchSize(ctx context.Context) (resolver.ScreenSize, error) {
	if r.opts.TouchSize.Width > 0 && r.opts.TouchSize.Height > 0 {
		return r.opts.TouchSize, nil
	}
	w, h, err := r.bridge.GetWindowSize(ctx)
	if err != nil {
		return resolver.ScreenSize{}, fmt.Errorf("failed to query screen size: %w", err)
	}
	return resolver.ScreenSize{Width: w, Height: h}, nil
}

func (r *Recorder) loop(ctx context.Context, s *session, smp *sampler.Sampler, decay *resolver.EventDecay, source EventSource) error {
	streamReported := false

	for ctx.Err() == nil {
		s.summary.Cycles++

		if err := r.cycle(ctx, s, smp, decay, source); err != nil {
			return err
		}

		if !streamReported && source.Closed() {
			streamReported = true
			s.logger.WarnWithContext("Touch event stream ended, frames will decay to running", source.Err(), nil)
			s.publish(events.NewStreamClosedEvent(s.source, source.Err()))
		}

		if err := s.clock.Sleep(ctx, r.opts.Interval); err != nil {
			break
		}
	}
	return nil
}

// cycle samples, correlates and persists one frame. Only errors that must
// stop the loop are returned.
func (r *Recorder) cycle(ctx context.Context, s *session, smp *sampler.Sampler, decay *resolver.EventDecay, source EventSource) error {
	capture, err := smp.Sample(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.summary.Cycles--
			return nil
		}
		// events stay buffered in the source; the resolver is untouched
		s.skip(s.summary.Cycles, "capture", err)
		return nil
	}

	label, err := decay.Resolve(resolver.Signal{Events: source.Poll(0)}, capture.At)
	if err != nil {
		return err
	}

	path, err := r.writer.Write(dataset.LabeledFrame{Capture: capture, Label: label, Seq: capture.Seq})
	if err != nil {
		if errors.Is(err, action.ErrUnknownLabel) {
			return err
		}
		s.skip(capture.Seq, "write", err)
		return nil
	}

	s.summary.Resolved[label]++

	if r.opts.LabelBook != nil {
		if err := r.opts.LabelBook.Add(path, label); err != nil {
			s.logger.Error("Failed to update label book", err)
		}
	}
	if s.journal != nil {
		if err := s.journal.RecordFrame(s.summary.SessionID, capture.Seq, label, path, capture.At); err != nil {
			s.logger.Error("Failed to journal frame", err)
		}
	}

	s.logger.DebugWithContext("Frame saved", map[string]interface{}{
		"seq":     capture.Seq,
		"label":   label,
		"pending": decay.Pending(),
	})
	s.publish(events.NewFrameSavedEvent(s.source, capture.Seq, label.String(), path))
	return nil
}
