package adb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultRemoteCapture = "/sdcard/screenshot.png"

// Options configures a Controller
type Options struct {
	// Serial selects a device ("emulator-5554", "127.0.0.1:5555").
	// Empty uses the only attached device.
	Serial string

	// RemoteCapture is the on-device scratch path for screencap
	RemoteCapture string

	// CommandTimeout bounds every non-streaming adb call
	CommandTimeout time.Duration

	Gestures GestureProfile
	Runner   Runner
}

// Controller drives one Android device through the adb executable
type Controller struct {
	path          string
	serial        string
	remoteCapture string
	gestures      GestureProfile
	runner        Runner

	mu        sync.Mutex
	connected bool
}

// NewController creates a new ADB controller
func NewController(adbPath string, opts Options) *Controller {
	if opts.RemoteCapture == "" {
		opts.RemoteCapture = defaultRemoteCapture
	}
	if opts.Gestures == nil {
		opts.Gestures = DefaultGestures()
	}
	if opts.Runner == nil {
		timeout := opts.CommandTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		opts.Runner = ExecRunner{Timeout: timeout}
	}

	return &Controller{
		path:          adbPath,
		serial:        opts.Serial,
		remoteCapture: opts.RemoteCapture,
		gestures:      opts.Gestures,
		runner:        opts.Runner,
	}
}

// Connect verifies that the device is attached. Network serials are
// connected first. Any failure wraps ErrBridgeUnavailable.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.Contains(c.serial, ":") {
		output, err := c.runner.Run(ctx, c.path, "connect", c.serial)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBridgeUnavailable, &BridgeError{Op: "connect", Err: err, Output: string(output)})
		}
		if !strings.Contains(string(output), "connected") {
			return fmt.Errorf("%w: unexpected connect output: %s", ErrBridgeUnavailable, strings.TrimSpace(string(output)))
		}
	}

	output, err := c.runner.Run(ctx, c.path, "devices")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeUnavailable, &BridgeError{Op: "devices", Err: err, Output: string(output)})
	}

	devices := parseDevices(string(output))
	switch {
	case len(devices) == 0:
		return fmt.Errorf("%w: no device attached", ErrBridgeUnavailable)
	case c.serial == "" && len(devices) > 1:
		return fmt.Errorf("%w: %d devices attached, set a serial", ErrBridgeUnavailable, len(devices))
	case c.serial != "" && !contains(devices, c.serial):
		return fmt.Errorf("%w: device %s not attached", ErrBridgeUnavailable, c.serial)
	}

	c.connected = true
	return nil
}

// IsConnected returns whether Connect succeeded
func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// parseDevices returns the serials in "device" state from `adb devices`
func parseDevices(output string) []string {
	var serials []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// args prefixes the device selector
func (c *Controller) args(args ...string) []string {
	if c.serial == "" {
		return args
	}
	return append([]string{"-s", c.serial}, args...)
}
