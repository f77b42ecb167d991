package adb

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"jordanella.com/subway-runner-go/internal/action"
)

// Gesture is one swipe in device pixels
type Gesture struct {
	X1         int `yaml:"x1"`
	Y1         int `yaml:"y1"`
	X2         int `yaml:"x2"`
	Y2         int `yaml:"y2"`
	DurationMs int `yaml:"duration_ms"`
}

// GestureProfile maps each directional label to its swipe
type GestureProfile map[action.Label]Gesture

// gestureFile is the on-disk YAML layout
type gestureFile struct {
	Gestures map[string]Gesture `yaml:"gestures"`
}

// DefaultGestures returns swipes tuned for a 1080x1920 portrait screen
func DefaultGestures() GestureProfile {
	return GestureProfile{
		action.Left:  {X1: 500, Y1: 1000, X2: 100, Y2: 1000, DurationMs: 100},
		action.Right: {X1: 100, Y1: 1000, X2: 500, Y2: 1000, DurationMs: 100},
		action.Up:    {X1: 300, Y1: 1000, X2: 300, Y2: 500, DurationMs: 100},
		action.Down:  {X1: 300, Y1: 500, X2: 300, Y2: 1000, DurationMs: 100},
	}
}

// LoadGestures reads a YAML gesture profile. Labels missing from the file
// keep their default swipe. An empty path returns the defaults.
func LoadGestures(path string) (GestureProfile, error) {
	profile := DefaultGestures()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gesture profile: %w", err)
	}

	var file gestureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse gesture profile: %w", err)
	}

	for name, g := range file.Gestures {
		label, err := action.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("gesture profile: %w", err)
		}
		if !label.IsDirectional() {
			return nil, fmt.Errorf("gesture profile: %s cannot have a gesture", label)
		}
		if g.DurationMs <= 0 {
			return nil, fmt.Errorf("gesture profile: %s duration must be positive", label)
		}
		profile[label] = g
	}

	return profile, nil
}

// SaveGestures writes a profile as YAML
func SaveGestures(profile GestureProfile, path string) error {
	file := gestureFile{Gestures: make(map[string]Gesture, len(profile))}
	for label, g := range profile {
		file.Gestures[label.String()] = g
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to encode gesture profile: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
