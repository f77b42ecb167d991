// Package bootstrap wires settings, logging, the device bridge, the event
// bus and the session journal for the command-line entry points.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jordanella.com/subway-runner-go/internal/adb"
	"jordanella.com/subway-runner-go/internal/config"
	"jordanella.com/subway-runner-go/internal/database"
	"jordanella.com/subway-runner-go/internal/events"
	"jordanella.com/subway-runner-go/internal/logging"
	"jordanella.com/subway-runner-go/internal/pipeline"
)

// Env holds everything a loop needs besides its own components
type Env struct {
	Config *config.Config
	Logger *logging.Logger
	Bridge *adb.Controller
	Bus    *events.DefaultEventBus

	db       *database.DB
	eventLog *logging.EventLogger
	logFile  *os.File
}

// Setup loads settings and connects to the device. Every error is a
// startup failure.
func Setup(ctx context.Context, settingsPath, component string) (*Env, error) {
	cfg, err := config.LoadFromINI(settingsPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	env := &Env{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			env.Close()
		}
	}()

	if err := env.setupLogging(component); err != nil {
		return nil, err
	}

	env.Bus = events.NewEventBus(256)
	if cfg.Logging.EventLog {
		env.eventLog, err = logging.NewEventLogger(env.Bus, cfg.Logging.LogDir)
		if err != nil {
			return nil, err
		}
	}

	if err := env.setupBridge(ctx); err != nil {
		return nil, err
	}

	if cfg.Storage.JournalEnabled {
		env.db, err = database.OpenAndMigrate(cfg.Storage.JournalPath, env.Logger.Named("Journal"))
		if err != nil {
			return nil, fmt.Errorf("failed to open session journal: %w", err)
		}
	}

	ok = true
	return env, nil
}

func (e *Env) setupLogging(component string) error {
	level, err := logging.ParseLevel(e.Config.Logging.Level)
	if err != nil {
		return err
	}
	e.Logger = logging.NewLogger(component).SetMinLevel(level)

	if e.Config.Logging.LogDir == "" {
		return nil
	}
	if err := os.MkdirAll(e.Config.Logging.LogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s.log", component, time.Now().Format("2006-01-02_15-04-05"))
	e.logFile, err = os.OpenFile(filepath.Join(e.Config.Logging.LogDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	e.Logger.AddOutput(e.logFile)
	return nil
}

func (e *Env) setupBridge(ctx context.Context) error {
	adbPath, err := adb.FindADB(e.Config.Device.ADBPath)
	if err != nil {
		return err
	}

	gestures := adb.DefaultGestures()
	if e.Config.Device.GestureProfile != "" {
		gestures, err = adb.LoadGestures(e.Config.Device.GestureProfile)
		if err != nil {
			return err
		}
	}

	e.Bridge = adb.NewController(adbPath, adb.Options{
		Serial:         e.Config.Device.Serial,
		RemoteCapture:  e.Config.Device.RemoteCapture,
		CommandTimeout: e.Config.Device.CommandTimeout,
		Gestures:       gestures,
	})
	if err := e.Bridge.Connect(ctx); err != nil {
		return err
	}

	e.Logger.InfoWithContext("Device connected", map[string]interface{}{
		"adb":    adbPath,
		"serial": e.Config.Device.Serial,
	})
	return nil
}

// Journal returns the session journal, or nil when it is disabled
func (e *Env) Journal() pipeline.Journal {
	if e.db == nil {
		return nil
	}
	return e.db
}

// Close releases everything Setup opened, in reverse order
func (e *Env) Close() {
	if e.db != nil {
		e.db.Close()
	}
	if e.Bus != nil {
		// drain before the event log file closes
		e.Bus.Stop()
	}
	if e.eventLog != nil {
		e.eventLog.Close()
	}
	if e.logFile != nil {
		e.logFile.Close()
	}
}
