package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"jordanella.com/subway-runner-go/internal/logging"
)

// DefaultPath is the settings file looked up next to the binary
const DefaultPath = "settings.ini"

// LoadFromINI loads configuration from a settings file. A missing file
// yields defaults; missing keys keep their default value.
func LoadFromINI(path string) (*Config, error) {
	config := NewDefaultConfig()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	device := cfg.Section("Device")
	config.Device.ADBPath = device.Key("ADBPath").MustString(config.Device.ADBPath)
	config.Device.Serial = device.Key("Serial").MustString(config.Device.Serial)
	config.Device.RemoteCapture = device.Key("RemoteCapture").MustString(config.Device.RemoteCapture)
	config.Device.GestureProfile = device.Key("GestureProfile").MustString(config.Device.GestureProfile)
	config.Device.CommandTimeout = device.Key("CommandTimeout").MustDuration(config.Device.CommandTimeout)

	recorder := cfg.Section("Recorder")
	config.Recorder.Interval = recorder.Key("Interval").MustDuration(config.Recorder.Interval)
	config.Recorder.IdleThreshold = recorder.Key("IdleThreshold").MustDuration(config.Recorder.IdleThreshold)
	config.Recorder.EventBuffer = recorder.Key("EventBuffer").MustInt(config.Recorder.EventBuffer)
	config.Recorder.TouchWidth = recorder.Key("TouchWidth").MustInt(0)
	config.Recorder.TouchHeight = recorder.Key("TouchHeight").MustInt(0)
	config.Recorder.OutputDir = recorder.Key("OutputDir").MustString(config.Recorder.OutputDir)
	config.Recorder.JPEGQuality = recorder.Key("JPEGQuality").MustInt(config.Recorder.JPEGQuality)
	config.Recorder.LabelBook = recorder.Key("LabelBook").MustBool(config.Recorder.LabelBook)
	config.Recorder.LabelBookFlush = recorder.Key("LabelBookFlush").MustInt(config.Recorder.LabelBookFlush)

	agent := cfg.Section("Agent")
	config.Agent.Interval = agent.Key("Interval").MustDuration(config.Agent.Interval)
	config.Agent.SettleDelay = agent.Key("SettleDelay").MustDuration(config.Agent.SettleDelay)
	config.Agent.Package = agent.Key("Package").MustString(config.Agent.Package)
	config.Agent.Activity = agent.Key("Activity").MustString(config.Agent.Activity)

	classifier := cfg.Section("Classifier")
	if command := classifier.Key("Command").String(); command != "" {
		config.Classifier.Command = strings.Fields(command)
	}
	config.Classifier.ModelPath = classifier.Key("ModelPath").MustString(config.Classifier.ModelPath)
	config.Classifier.StartupTimeout = classifier.Key("StartupTimeout").MustDuration(config.Classifier.StartupTimeout)
	config.Classifier.RequestTimeout = classifier.Key("RequestTimeout").MustDuration(config.Classifier.RequestTimeout)

	storage := cfg.Section("Storage")
	config.Storage.ScratchDir = storage.Key("ScratchDir").MustString(config.Storage.ScratchDir)
	config.Storage.JournalEnabled = storage.Key("JournalEnabled").MustBool(config.Storage.JournalEnabled)
	config.Storage.JournalPath = storage.Key("JournalPath").MustString(config.Storage.JournalPath)

	logs := cfg.Section("Logging")
	config.Logging.Level = logs.Key("Level").MustString(config.Logging.Level)
	config.Logging.LogDir = logs.Key("LogDir").MustString(config.Logging.LogDir)
	config.Logging.EventLog = logs.Key("EventLog").MustBool(config.Logging.EventLog)

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveToINI saves configuration to an INI file
func SaveToINI(config *Config, path string) error {
	cfg := ini.Empty()

	device := cfg.Section("Device")
	device.Key("ADBPath").SetValue(config.Device.ADBPath)
	device.Key("Serial").SetValue(config.Device.Serial)
	device.Key("RemoteCapture").SetValue(config.Device.RemoteCapture)
	device.Key("GestureProfile").SetValue(config.Device.GestureProfile)
	device.Key("CommandTimeout").SetValue(config.Device.CommandTimeout.String())

	recorder := cfg.Section("Recorder")
	recorder.Key("Interval").SetValue(config.Recorder.Interval.String())
	recorder.Key("IdleThreshold").SetValue(config.Recorder.IdleThreshold.String())
	recorder.Key("EventBuffer").SetValue(fmt.Sprintf("%d", config.Recorder.EventBuffer))
	recorder.Key("TouchWidth").SetValue(fmt.Sprintf("%d", config.Recorder.TouchWidth))
	recorder.Key("TouchHeight").SetValue(fmt.Sprintf("%d", config.Recorder.TouchHeight))
	recorder.Key("OutputDir").SetValue(config.Recorder.OutputDir)
	recorder.Key("JPEGQuality").SetValue(fmt.Sprintf("%d", config.Recorder.JPEGQuality))
	recorder.Key("LabelBook").SetValue(fmt.Sprintf("%t", config.Recorder.LabelBook))
	recorder.Key("LabelBookFlush").SetValue(fmt.Sprintf("%d", config.Recorder.LabelBookFlush))

	agent := cfg.Section("Agent")
	agent.Key("Interval").SetValue(config.Agent.Interval.String())
	agent.Key("SettleDelay").SetValue(config.Agent.SettleDelay.String())
	agent.Key("Package").SetValue(config.Agent.Package)
	agent.Key("Activity").SetValue(config.Agent.Activity)

	classifier := cfg.Section("Classifier")
	classifier.Key("Command").SetValue(strings.Join(config.Classifier.Command, " "))
	classifier.Key("ModelPath").SetValue(config.Classifier.ModelPath)
	classifier.Key("StartupTimeout").SetValue(config.Classifier.StartupTimeout.String())
	classifier.Key("RequestTimeout").SetValue(config.Classifier.RequestTimeout.String())

	storage := cfg.Section("Storage")
	storage.Key("ScratchDir").SetValue(config.Storage.ScratchDir)
	storage.Key("JournalEnabled").SetValue(fmt.Sprintf("%t", config.Storage.JournalEnabled))
	storage.Key("JournalPath").SetValue(config.Storage.JournalPath)

	logs := cfg.Section("Logging")
	logs.Key("Level").SetValue(config.Logging.Level)
	logs.Key("LogDir").SetValue(config.Logging.LogDir)
	logs.Key("EventLog").SetValue(fmt.Sprintf("%t", config.Logging.EventLog))

	return cfg.SaveTo(path)
}
