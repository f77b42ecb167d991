// Package sampler produces one screen capture per control-loop cycle.
package sampler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"jordanella.com/subway-runner-go/internal/timeutil"
)

// ErrCaptureUnavailable means the bridge produced no readable image this
// cycle. The caller skips the cycle; the loop continues.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// Capturer is the device capability the sampler needs
type Capturer interface {
	CaptureFrame(ctx context.Context, destPath string) error
}

// Capture is one still image with its sampling instant
type Capture struct {
	Seq     int64
	At      time.Time
	Image   image.Image
	Encoded []byte
	Format  string
}

// Sampler captures into a single scratch file it owns for the loop's lifetime
type Sampler struct {
	bridge      Capturer
	scratchPath string
	clock       timeutil.Clock
	seq         atomic.Int64
}

// New creates a sampler writing captures to scratchPath
func New(bridge Capturer, scratchPath string, clock timeutil.Clock) *Sampler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Sampler{
		bridge:      bridge,
		scratchPath: scratchPath,
		clock:       clock,
	}
}

// ScratchPath returns the transient capture file location
func (s *Sampler) ScratchPath() string {
	return s.scratchPath
}

// Sample captures and decodes one frame. The returned Capture is stamped
// with the instant the image became available.
func (s *Sampler) Sample(ctx context.Context) (*Capture, error) {
	seq := s.seq.Add(1)

	// A stale file from the previous cycle must never be mistaken for a new capture
	os.Remove(s.scratchPath)

	if err := s.bridge.CaptureFrame(ctx, s.scratchPath); err != nil {
		return nil, fmt.Errorf("%w: cycle %d: %v", ErrCaptureUnavailable, seq, err)
	}

	data, err := os.ReadFile(s.scratchPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cycle %d: %v", ErrCaptureUnavailable, seq, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: cycle %d: empty capture", ErrCaptureUnavailable, seq)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cycle %d: %v", ErrCaptureUnavailable, seq, err)
	}

	return &Capture{
		Seq:     seq,
		At:      s.clock.Now(),
		Image:   img,
		Encoded: data,
		Format:  format,
	}, nil
}

// Cleanup removes the scratch file and its directory when left empty
func (s *Sampler) Cleanup() error {
	if err := os.Remove(s.scratchPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove scratch capture: %w", err)
	}
	// Only succeeds when empty, which is the case we want
	os.Remove(filepath.Dir(s.scratchPath))
	return nil
}
