package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"jordanella.com/subway-runner-go/internal/action"
)

// LabelBookFile is the metadata document the training loader reads
const LabelBookFile = "labels.json"

// DefaultFlushEvery is how many new labels accumulate before a save
const DefaultFlushEvery = 10

// LabelBook maps frame file names to label names. Existing entries are
// loaded on open so an interrupted session can be resumed.
type LabelBook struct {
	path       string
	flushEvery int

	mu      sync.Mutex
	labels  map[string]string
	pending int
}

// OpenLabelBook loads path if it exists, otherwise starts empty
func OpenLabelBook(path string, flushEvery int) (*LabelBook, error) {
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}
	b := &LabelBook{
		path:       path,
		flushEvery: flushEvery,
		labels:     make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("failed to read label book: %w", err)
	}
	if len(data) == 0 {
		return b, nil
	}
	if err := json.Unmarshal(data, &b.labels); err != nil {
		return nil, fmt.Errorf("failed to parse label book %s: %w", path, err)
	}
	for name, value := range b.labels {
		if _, err := action.Parse(value); err != nil {
			return nil, fmt.Errorf("label book entry %s: %w", name, err)
		}
	}
	return b, nil
}

// Path returns the document location
func (b *LabelBook) Path() string {
	return b.path
}

// Add records the label for a frame file. The book is saved every
// flushEvery new entries.
func (b *LabelBook) Add(framePath string, label action.Label) error {
	if !label.Valid() {
		return fmt.Errorf("%w: %d", action.ErrUnknownLabel, int(label))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.labels[filepath.Base(framePath)] = label.MetadataName()
	b.pending++
	if b.pending >= b.flushEvery {
		return b.saveLocked()
	}
	return nil
}

// Lookup returns the label recorded for a frame file name
func (b *LabelBook) Lookup(name string) (action.Label, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	value, ok := b.labels[name]
	if !ok {
		return action.Neutral, false
	}
	label, err := action.Parse(value)
	return label, err == nil
}

// Len returns the number of labeled frames
func (b *LabelBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.labels)
}

// Counts tallies entries per label
func (b *LabelBook) Counts() map[action.Label]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := make(map[action.Label]int, action.Count)
	for _, value := range b.labels {
		if label, err := action.Parse(value); err == nil {
			counts[label]++
		}
	}
	return counts
}

// Flush writes any unsaved entries
func (b *LabelBook) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == 0 {
		return nil
	}
	return b.saveLocked()
}

// Close flushes the book
func (b *LabelBook) Close() error {
	return b.Flush()
}

func (b *LabelBook) saveLocked() error {
	data, err := json.MarshalIndent(b.labels, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal label book: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("failed to create label book directory: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write label book: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit label book: %w", err)
	}
	b.pending = 0
	return nil
}
