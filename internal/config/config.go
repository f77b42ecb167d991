// Package config holds runtime settings for the recorder and the agent.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the full settings document
type Config struct {
	Device     DeviceConfig
	Recorder   RecorderConfig
	Agent      AgentConfig
	Classifier ClassifierConfig
	Storage    StorageConfig
	Logging    LoggingConfig
}

// DeviceConfig selects and drives the Android device
type DeviceConfig struct {
	ADBPath        string
	Serial         string
	RemoteCapture  string
	GestureProfile string // optional YAML file, defaults built in
	CommandTimeout time.Duration
}

// RecorderConfig controls the labeling loop
type RecorderConfig struct {
	Interval      time.Duration
	IdleThreshold time.Duration
	EventBuffer   int

	// TouchWidth/TouchHeight override the window size for zoning when the
	// digitizer range differs from the display. Zero uses wm size.
	TouchWidth  int
	TouchHeight int

	OutputDir      string
	JPEGQuality    int
	LabelBook      bool
	LabelBookFlush int
}

// AgentConfig controls the inference loop
type AgentConfig struct {
	Interval    time.Duration
	SettleDelay time.Duration
	Package     string
	Activity    string
}

// ClassifierConfig describes the model worker
type ClassifierConfig struct {
	Command        []string
	ModelPath      string
	StartupTimeout time.Duration
	RequestTimeout time.Duration
}

// StorageConfig holds scratch and journal locations
type StorageConfig struct {
	ScratchDir     string
	JournalEnabled bool
	JournalPath    string
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level    string
	LogDir   string
	EventLog bool
}

// NewDefaultConfig creates a config with default values
func NewDefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			RemoteCapture:  "/sdcard/screenshot.png",
			CommandTimeout: 10 * time.Second,
		},
		Recorder: RecorderConfig{
			Interval:       100 * time.Millisecond,
			IdleThreshold:  500 * time.Millisecond,
			EventBuffer:    1024,
			OutputDir:      filepath.Join("data", "gameplay_images"),
			JPEGQuality:    95,
			LabelBook:      true,
			LabelBookFlush: 10,
		},
		Agent: AgentConfig{
			Interval:    500 * time.Millisecond,
			SettleDelay: 5 * time.Second,
			Package:     "com.kiloo.subwaysurf",
			Activity:    ".SubwaySurf",
		},
		Classifier: ClassifierConfig{
			Command:        []string{"python3", filepath.Join("scripts", "classifier_worker.py")},
			ModelPath:      filepath.Join("model", "model.h5"),
			StartupTimeout: 60 * time.Second,
			RequestTimeout: 2 * time.Second,
		},
		Storage: StorageConfig{
			ScratchDir:     "temp",
			JournalEnabled: true,
			JournalPath:    filepath.Join("data", "journal.db"),
		},
		Logging: LoggingConfig{
			Level:    "INFO",
			LogDir:   "logs",
			EventLog: true,
		},
	}
}

// ScratchCapturePath is the single transient capture file
func (c *Config) ScratchCapturePath() string {
	return filepath.Join(c.Storage.ScratchDir, "screenshot.png")
}

// LabelBookPath is where labels.json lives for the recorder output
func (c *Config) LabelBookPath() string {
	return filepath.Join(c.Recorder.OutputDir, "labels.json")
}

// Validate rejects settings the loops cannot run with
func (c *Config) Validate() error {
	switch {
	case c.Recorder.Interval <= 0:
		return fmt.Errorf("Recorder.Interval must be positive, got %v", c.Recorder.Interval)
	case c.Recorder.IdleThreshold <= 0:
		return fmt.Errorf("Recorder.IdleThreshold must be positive, got %v", c.Recorder.IdleThreshold)
	case c.Recorder.EventBuffer <= 0:
		return fmt.Errorf("Recorder.EventBuffer must be positive, got %d", c.Recorder.EventBuffer)
	case c.Recorder.TouchWidth < 0 || c.Recorder.TouchHeight < 0:
		return fmt.Errorf("Recorder touch size cannot be negative")
	case c.Recorder.JPEGQuality < 1 || c.Recorder.JPEGQuality > 100:
		return fmt.Errorf("Recorder.JPEGQuality must be in 1..100, got %d", c.Recorder.JPEGQuality)
	case c.Recorder.OutputDir == "":
		return fmt.Errorf("Recorder.OutputDir is required")
	case c.Agent.Interval <= 0:
		return fmt.Errorf("Agent.Interval must be positive, got %v", c.Agent.Interval)
	case c.Agent.SettleDelay < 0:
		return fmt.Errorf("Agent.SettleDelay cannot be negative")
	case c.Agent.Package == "":
		return fmt.Errorf("Agent.Package is required")
	case len(c.Classifier.Command) == 0:
		return fmt.Errorf("Classifier.Command is required")
	case c.Classifier.RequestTimeout <= 0:
		return fmt.Errorf("Classifier.RequestTimeout must be positive, got %v", c.Classifier.RequestTimeout)
	case c.Storage.ScratchDir == "":
		return fmt.Errorf("Storage.ScratchDir is required")
	case c.Storage.JournalEnabled && c.Storage.JournalPath == "":
		return fmt.Errorf("Storage.JournalPath is required when the journal is enabled")
	}
	return nil
}
