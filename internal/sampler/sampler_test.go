package sampler

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jordanella.com/subway-runner-go/internal/timeutil"
)

// fileBridge writes a fixed payload to the destination path
type fileBridge struct {
	payload []byte
	err     error
	calls   int
}

func (b *fileBridge) CaptureFrame(ctx context.Context, dest string) error {
	b.calls++
	if b.err != nil {
		return b.err
	}
	if b.payload == nil {
		return nil
	}
	os.MkdirAll(filepath.Dir(dest), 0755)
	return os.WriteFile(dest, b.payload, 0644)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	path := filepath.Join(t.TempDir(), "src.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}

func TestSampleDecodesCapture(t *testing.T) {
	clock := timeutil.NewManualClock(time.Unix(1000, 0))
	bridge := &fileBridge{payload: pngBytes(t, 8, 6)}
	s := New(bridge, filepath.Join(t.TempDir(), "temp", "current.png"), clock)

	capture, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	if capture.Seq != 1 || capture.Format != "png" {
		t.Errorf("Unexpected capture metadata: seq=%d format=%s", capture.Seq, capture.Format)
	}
	if b := capture.Image.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("Unexpected bounds %v", b)
	}
	if !capture.At.Equal(time.Unix(1000, 0)) {
		t.Errorf("Capture should be stamped by the clock, got %v", capture.At)
	}

	next, _ := s.Sample(context.Background())
	if next.Seq != 2 {
		t.Errorf("Sequence should increase, got %d", next.Seq)
	}
}

func TestSampleFailures(t *testing.T) {
	tests := []struct {
		name   string
		bridge *fileBridge
	}{
		{"bridge error", &fileBridge{err: errors.New("device offline")}},
		{"no file written", &fileBridge{}},
		{"empty file", &fileBridge{payload: []byte{}}},
		{"not an image", &fileBridge{payload: []byte("garbage")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.bridge, filepath.Join(t.TempDir(), "current.png"), nil)
			_, err := s.Sample(context.Background())
			if !errors.Is(err, ErrCaptureUnavailable) {
				t.Errorf("Expected ErrCaptureUnavailable, got %v", err)
			}
		})
	}
}

func TestSampleIgnoresStaleScratchFile(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "current.png")
	os.WriteFile(scratch, pngBytes(t, 2, 2), 0644)

	// Bridge "succeeds" without producing a new file
	s := New(&fileBridge{}, scratch, nil)
	if _, err := s.Sample(context.Background()); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("Stale capture must not be reused, got %v", err)
	}
}

func TestCleanupRemovesScratch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "temp")
	scratch := filepath.Join(dir, "current.png")
	s := New(&fileBridge{payload: pngBytes(t, 2, 2)}, scratch, nil)

	if _, err := s.Sample(context.Background()); err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if _, err := os.Stat(scratch); !os.IsNotExist(err) {
		t.Error("Scratch file should be removed")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Empty scratch directory should be removed")
	}

	if err := s.Cleanup(); err != nil {
		t.Errorf("Second cleanup should be a no-op, got %v", err)
	}
}
