package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"jordanella.com/subway-runner-go/internal/action"
	"jordanella.com/subway-runner-go/internal/classifier"
	"jordanella.com/subway-runner-go/internal/timeutil"
	"jordanella.com/subway-runner-go/internal/touch"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// fakeBridge stands in for the adb controller
type fakeBridge struct {
	mu sync.Mutex

	payload      []byte
	width        int
	height       int
	sizeErr      error
	startErr     error
	failCaptures map[int]bool

	captures int
	swipes   []action.Label
	started  []string
	stopped  []string
	stopErr  error
}

func (f *fakeBridge) CaptureFrame(ctx context.Context, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.failCaptures[f.captures] {
		return errors.New("screencap: device offline")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, f.payload, 0644)
}

func (f *fakeBridge) GetWindowSize(ctx context.Context) (int, int, error) {
	return f.width, f.height, f.sizeErr
}

func (f *fakeBridge) OpenEventStream(ctx context.Context) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

func (f *fakeBridge) Swipe(ctx context.Context, label action.Label) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !label.Valid() {
		return action.ErrUnknownLabel
	}
	f.swipes = append(f.swipes, label)
	return nil
}

func (f *fakeBridge) StartApp(ctx context.Context, pkg, activity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, pkg+"/"+activity)
	return f.startErr
}

func (f *fakeBridge) ForceStop(ctx context.Context, pkg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, pkg)
	f.stopErr = ctx.Err()
	return nil
}

// scriptedEvents returns one batch per Poll call. With closeAfter > 0 the
// producer reports ended once that many polls have happened.
type scriptedEvents struct {
	batches    [][]touch.Event
	polls      int
	closeAfter int
	closed     bool
}

func (s *scriptedEvents) Poll(max int) []touch.Event {
	s.polls++
	if s.polls > len(s.batches) {
		return nil
	}
	return s.batches[s.polls-1]
}

func (s *scriptedEvents) Closed() bool {
	return s.closeAfter > 0 && s.polls >= s.closeAfter
}

func (s *scriptedEvents) Err() error {
	if s.Closed() {
		return errors.Join(touch.ErrStreamClosed, io.EOF)
	}
	return nil
}

func (s *scriptedEvents) Close() error {
	s.closed = true
	return nil
}

// fakeClassifier returns canned outputs in order, repeating the last one
type fakeClassifier struct {
	outputs [][]float64
	err     error
	calls   int
	shapes  [][]int
}

func (c *fakeClassifier) Predict(ctx context.Context, tensor classifier.Tensor) ([]float64, error) {
	c.calls++
	c.shapes = append(c.shapes, tensor.Shape())
	if c.err != nil {
		return nil, c.err
	}
	i := c.calls - 1
	if i >= len(c.outputs) {
		i = len(c.outputs) - 1
	}
	return c.outputs[i], nil
}

type frameRow struct {
	seq   int64
	label action.Label
	path  string
}

type dispatchRow struct {
	label      action.Label
	confidence float64
	err        error
}

// memJournal keeps journal calls in memory
type memJournal struct {
	mode       string
	frames     []frameRow
	dispatches []dispatchRow
	finished   bool
	cycles     int64
	skipped    int64
	runErr     error
}

func (j *memJournal) StartSession(mode, serial string, at time.Time) (string, error) {
	j.mode = mode
	return "session-1", nil
}

func (j *memJournal) RecordFrame(id string, seq int64, label action.Label, path string, at time.Time) error {
	j.frames = append(j.frames, frameRow{seq: seq, label: label, path: path})
	return nil
}

func (j *memJournal) RecordDispatch(id string, seq int64, label action.Label, confidence float64, err error, at time.Time) error {
	j.dispatches = append(j.dispatches, dispatchRow{label: label, confidence: confidence, err: err})
	return nil
}

func (j *memJournal) FinishSession(id string, cycles, skipped int64, runErr error, at time.Time) error {
	j.finished = true
	j.cycles = cycles
	j.skipped = skipped
	j.runErr = runErr
	return nil
}

// stopAfterSleeps cancels the loop once the clock has slept n times
func stopAfterSleeps(clock *timeutil.ManualClock, n int, cancel context.CancelFunc) {
	count := 0
	clock.OnSleep(func(time.Time) {
		count++
		if count >= n {
			cancel()
		}
	})
}
