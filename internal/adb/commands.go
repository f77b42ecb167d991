package adb

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"jordanella.com/subway-runner-go/internal/action"
)

// Shell executes a shell command on the device and returns trimmed output
func (c *Controller) Shell(ctx context.Context, op string, command ...string) (string, error) {
	output, err := c.runner.Run(ctx, c.path, c.args(append([]string{"shell"}, command...)...)...)
	if err != nil {
		return "", &BridgeError{Op: op, Err: err, Output: string(output)}
	}
	return strings.TrimSpace(string(output)), nil
}

// Pull copies a file from device to local
func (c *Controller) Pull(ctx context.Context, remotePath, localPath string) error {
	output, err := c.runner.Run(ctx, c.path, c.args("pull", remotePath, localPath)...)
	if err != nil {
		return &BridgeError{Op: "pull", Err: err, Output: string(output)}
	}
	return nil
}

// CaptureFrame takes a screenshot and saves it to localPath
func (c *Controller) CaptureFrame(ctx context.Context, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return &BridgeError{Op: "screencap", Err: err}
	}

	if _, err := c.Shell(ctx, "screencap", "screencap", "-p", c.remoteCapture); err != nil {
		return err
	}

	if err := c.Pull(ctx, c.remoteCapture, localPath); err != nil {
		return err
	}

	// Best effort; a stale remote file is overwritten next cycle
	c.Shell(ctx, "rm", "rm", "-f", c.remoteCapture)

	return nil
}

// Swipe performs the gesture mapped to label. Neutral is a no-op.
func (c *Controller) Swipe(ctx context.Context, label action.Label) error {
	if !label.Valid() {
		return fmt.Errorf("swipe: %w: %d", action.ErrUnknownLabel, int(label))
	}
	if label == action.Neutral {
		return nil
	}

	g, ok := c.gestures[label]
	if !ok {
		return fmt.Errorf("swipe: no gesture configured for %s", label)
	}

	_, err := c.Shell(ctx, "swipe", "input", "swipe",
		fmt.Sprint(g.X1), fmt.Sprint(g.Y1), fmt.Sprint(g.X2), fmt.Sprint(g.Y2), fmt.Sprint(g.DurationMs))
	return err
}

// StartApp starts an application activity
func (c *Controller) StartApp(ctx context.Context, packageName, activity string) error {
	_, err := c.Shell(ctx, "start", "am", "start", "-n", fmt.Sprintf("%s/%s", packageName, activity))
	return err
}

// ForceStop stops an application
func (c *Controller) ForceStop(ctx context.Context, packageName string) error {
	_, err := c.Shell(ctx, "force-stop", "am", "force-stop", packageName)
	return err
}

// GetWindowSize returns the screen size, preferring an override size
func (c *Controller) GetWindowSize(ctx context.Context) (width, height int, err error) {
	output, err := c.Shell(ctx, "wm-size", "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	return parseWindowSize(output)
}

// parseWindowSize parses "Physical size: 1080x1920" with an optional
// "Override size: ..." line
func parseWindowSize(output string) (int, int, error) {
	var physW, physH, overW, overH int
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Override size:"):
			fmt.Sscanf(line, "Override size: %dx%d", &overW, &overH)
		case strings.HasPrefix(line, "Physical size:"):
			fmt.Sscanf(line, "Physical size: %dx%d", &physW, &physH)
		}
	}

	if overW > 0 && overH > 0 {
		return overW, overH, nil
	}
	if physW > 0 && physH > 0 {
		return physW, physH, nil
	}
	return 0, 0, &BridgeError{Op: "wm-size", Err: fmt.Errorf("failed to parse window size"), Output: output}
}

// OpenEventStream starts `getevent -l` and returns its stdout. Closing the
// stream kills the subprocess.
func (c *Controller) OpenEventStream(ctx context.Context) (io.ReadCloser, error) {
	stream, err := c.runner.Start(ctx, c.path, c.args("shell", "getevent", "-l")...)
	if err != nil {
		return nil, &BridgeError{Op: "getevent", Err: err}
	}
	return stream, nil
}
