package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jordanella.com/subway-runner-go/internal/action"
	"jordanella.com/subway-runner-go/internal/classifier"
	"jordanella.com/subway-runner-go/internal/events"
	"jordanella.com/subway-runner-go/internal/logging"
	"jordanella.com/subway-runner-go/internal/resolver"
	"jordanella.com/subway-runner-go/internal/sampler"
	"jordanella.com/subway-runner-go/internal/timeutil"
)

// AgentBridge is the device surface the agent needs
type AgentBridge interface {
	sampler.Capturer
	Swipe(ctx context.Context, label action.Label) error
	StartApp(ctx context.Context, packageName, activity string) error
	ForceStop(ctx context.Context, packageName string) error
}

// AgentOptions configures an Agent
type AgentOptions struct {
	Interval    time.Duration
	SettleDelay time.Duration
	Package     string
	Activity    string

	// StopTimeout bounds the force-stop issued after cancellation
	StopTimeout time.Duration

	ScratchPath  string
	DeviceSerial string

	Journal Journal
	Bus     events.EventBus
	Logger  *logging.Logger
	Clock   timeutil.Clock
}

// Agent plays the game: capture, classify, dispatch one gesture per cycle
type Agent struct {
	bridge     AgentBridge
	classifier classifier.Classifier
	resolver   resolver.Resolver
	opts       AgentOptions
}

// NewAgent creates an agent driving bridge with predictions from cls
func NewAgent(bridge AgentBridge, cls classifier.Classifier, opts AgentOptions) *Agent {
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 10 * time.Second
	}
	return &Agent{
		bridge:     bridge,
		classifier: cls,
		resolver:   resolver.NewPassthrough(),
		opts:       opts,
	}
}

// Run launches the app and plays until ctx is cancelled. Startup failures
// are returned before the first cycle; the summary is always non-nil.
func (a *Agent) Run(ctx context.Context) (summary *Summary, err error) {
	s := newSession("agent", "run", a.opts.Journal, a.opts.Bus, a.opts.Logger, a.opts.Clock)
	summary = s.summary

	smp := sampler.New(a.bridge, a.opts.ScratchPath, s.clock)

	if err := s.start(a.opts.DeviceSerial); err != nil {
		return summary, err
	}

	defer func() {
		// ctx is usually cancelled by now
		stopCtx, cancel := context.WithTimeout(context.Background(), a.opts.StopTimeout)
		defer cancel()
		if serr := a.bridge.ForceStop(stopCtx, a.opts.Package); serr != nil {
			s.logger.Error("Failed to stop app", serr)
		}
		if cerr := smp.Cleanup(); cerr != nil {
			s.logger.Warn(cerr.Error())
		}
		s.finish(err)
	}()

	if err = a.bridge.StartApp(ctx, a.opts.Package, a.opts.Activity); err != nil {
		err = fmt.Errorf("failed to start %s: %w", a.opts.Package, err)
		return summary, err
	}

	s.logger.InfoWithContext("Waiting for game to load", map[string]interface{}{
		"package": a.opts.Package,
		"delay":   a.opts.SettleDelay,
	})
	if serr := s.clock.Sleep(ctx, a.opts.SettleDelay); serr != nil {
		return summary, nil
	}

	err = a.loop(ctx, s, smp)
	return summary, err
}

func (a *Agent) loop(ctx context.Context, s *session, smp *sampler.Sampler) error {
	for ctx.Err() == nil {
		s.summary.Cycles++

		if err := a.cycle(ctx, s, smp); err != nil {
			return err
		}

		if err := s.clock.Sleep(ctx, a.opts.Interval); err != nil {
			break
		}
	}
	return nil
}

// cycle performs exactly one dispatch call unless capture or
// classification fails
func (a *Agent) cycle(ctx context.Context, s *session, smp *sampler.Sampler) error {
	capture, err := smp.Sample(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.summary.Cycles--
			return nil
		}
		s.skip(s.summary.Cycles, "capture", err)
		return nil
	}

	probs, err := a.classifier.Predict(ctx, classifier.Preprocess(capture.Image))
	if err != nil {
		if ctx.Err() != nil {
			s.summary.Cycles--
			return nil
		}
		s.skip(capture.Seq, "classify", err)
		return nil
	}

	label, err := a.resolver.Resolve(resolver.Signal{Probabilities: probs}, capture.At)
	if err != nil {
		s.skip(capture.Seq, "classify", predictionError(err))
		return nil
	}
	confidence := 0.0
	if idx, ierr := label.Index(); ierr == nil {
		confidence = probs[idx]
	}

	dispatchErr := a.bridge.Swipe(ctx, label)
	if dispatchErr != nil && errors.Is(dispatchErr, action.ErrUnknownLabel) {
		return dispatchErr
	}

	at := s.clock.Now()
	if s.journal != nil {
		if err := s.journal.RecordDispatch(s.summary.SessionID, capture.Seq, label, confidence, dispatchErr, at); err != nil {
			s.logger.Error("Failed to journal dispatch", err)
		}
	}

	if dispatchErr != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.skip(capture.Seq, "dispatch", dispatchErr)
		return nil
	}

	s.summary.Resolved[label]++
	s.logger.DebugWithContext("Action dispatched", map[string]interface{}{
		"seq":        capture.Seq,
		"label":      label,
		"confidence": fmt.Sprintf("%.3f", confidence),
	})
	s.publish(events.NewGestureDispatchedEvent(s.source, capture.Seq, label.String(), confidence))
	return nil
}

// predictionError marks a rejected model output as a classification
// failure while keeping the resolver's cause matchable
func predictionError(err error) error {
	return fmt.Errorf("%w: %w", classifier.ErrClassification, err)
}
