// Package dataset persists labeled frames into a label-partitioned tree
// that the training pipeline consumes directly.
package dataset

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"jordanella.com/subway-runner-go/internal/action"
	"jordanella.com/subway-runner-go/internal/sampler"
)

// DefaultJPEGQuality matches what OpenCV writes by default
const DefaultJPEGQuality = 95

const timestampLayout = "20060102_150405"

// LabeledFrame is a capture paired with exactly one label
type LabeledFrame struct {
	Capture *sampler.Capture
	Label   action.Label
	Seq     int64
}

// Writer writes frames as <root>/<label>/frame_<timestamp>.jpg. Files are
// committed with a rename so a partial frame is never visible.
type Writer struct {
	root    string
	quality int

	mu sync.Mutex
}

// NewWriter creates a writer rooted at root
func NewWriter(root string, quality int) *Writer {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Writer{root: root, quality: quality}
}

// Root returns the dataset root directory
func (w *Writer) Root() string {
	return w.root
}

// PartitionDir returns the directory holding frames for label
func (w *Writer) PartitionDir(label action.Label) (string, error) {
	if !label.Valid() {
		return "", fmt.Errorf("%w: %d", action.ErrUnknownLabel, int(label))
	}
	return filepath.Join(w.root, label.String()), nil
}

// EnsureLayout creates one directory per label
func (w *Writer) EnsureLayout() error {
	for _, label := range action.All {
		dir, _ := w.PartitionDir(label)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create partition %s: %w", dir, err)
		}
	}
	return nil
}

// Write encodes the frame and commits it under its label partition,
// returning the final path
func (w *Writer) Write(frame LabeledFrame) (string, error) {
	dir, err := w.PartitionDir(frame.Label)
	if err != nil {
		return "", err
	}
	if frame.Capture == nil || frame.Capture.Image == nil {
		return "", fmt.Errorf("frame %d has no image", frame.Seq)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	tmp, err := os.CreateTemp(dir, ".frame-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp frame: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if err := encodeJPEG(tmp, frame.Capture.Image, w.quality); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode frame %d: %w", frame.Seq, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp frame: %w", err)
	}

	path := w.freePath(dir, frame.Capture.At)
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("failed to commit frame %d: %w", frame.Seq, err)
	}
	committed = true
	return path, nil
}

func encodeJPEG(f *os.File, img image.Image, quality int) error {
	return jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
}

// freePath picks a name derived from the capture time that does not exist
// yet. Two captures in the same microsecond get a numeric suffix.
func (w *Writer) freePath(dir string, at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	base := FrameName(at)
	path := filepath.Join(dir, base+".jpg")
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", base, i))
	}
}

// FrameName returns the file stem for a frame captured at t
func FrameName(t time.Time) string {
	return fmt.Sprintf("frame_%s_%06d", t.Format(timestampLayout), t.Nanosecond()/1000)
}

// Counts returns the number of committed frames per label
func (w *Writer) Counts() (map[action.Label]int, error) {
	counts := make(map[action.Label]int, action.Count)
	for _, label := range action.All {
		dir, _ := w.PartitionDir(label)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				counts[label] = 0
				continue
			}
			return nil, fmt.Errorf("failed to read partition %s: %w", dir, err)
		}
		n := 0
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".jpg") && !strings.HasPrefix(e.Name(), ".") {
				n++
			}
		}
		counts[label] = n
	}
	return counts, nil
}
