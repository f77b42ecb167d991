package touch

import (
	"bufio"
	"errors"
	"io"
	"sync"

	"jordanella.com/subway-runner-go/internal/timeutil"
)

// ErrStreamClosed reports that the event producer ended. Recording goes on
// without new events; idle decay still applies.
var ErrStreamClosed = errors.New("touch event stream closed")

// DefaultBufferSize bounds the events held between two polls
const DefaultBufferSize = 1024

// Stream reads a line producer on one goroutine and exposes the parsed
// events to the control loop through a bounded, non-blocking Poll.
type Stream struct {
	source io.ReadCloser
	clock  timeutil.Clock
	events chan Event

	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	err     error
	dropped int64
}

// NewStream starts reading source. bufferSize <= 0 uses DefaultBufferSize.
func NewStream(source io.ReadCloser, clock timeutil.Clock, bufferSize int) *Stream {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	s := &Stream{
		source: source,
		clock:  clock,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	go s.read()
	return s
}

func (s *Stream) read() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.source)
	for scanner.Scan() {
		ev, ok := ParseLine(scanner.Text(), s.clock.Now())
		if !ok {
			continue
		}
		s.push(ev)
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.err = errors.Join(ErrStreamClosed, err)
	s.mu.Unlock()
}

// push enqueues ev, evicting the oldest buffered event when full so the
// most recent input always survives
func (s *Stream) push(ev Event) {
	for {
		select {
		case s.events <- ev:
			return
		default:
		}

		select {
		case <-s.events:
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
		default:
		}
	}
}

// Poll returns up to max buffered events (all of them when max <= 0) in
// arrival order. It never blocks.
func (s *Stream) Poll(max int) []Event {
	var out []Event
	for max <= 0 || len(out) < max {
		select {
		case ev := <-s.events:
			out = append(out, ev)
		default:
			return out
		}
	}
	return out
}

// Err returns a non-nil error wrapping ErrStreamClosed once the producer
// has ended
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Closed reports whether the producer has ended
func (s *Stream) Closed() bool {
	return s.Err() != nil
}

// Dropped returns how many events were evicted by a full buffer
func (s *Stream) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops the producer and waits for the reader goroutine to exit
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.source.Close()
		<-s.done
	})
	return err
}
