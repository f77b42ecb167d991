package adb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBridgeUnavailable means adb could not be found or no device is attached.
// It is fatal at startup.
var ErrBridgeUnavailable = errors.New("device bridge unavailable")

// BridgeError describes a failed adb invocation
type BridgeError struct {
	Op     string // e.g. "screencap", "pull", "swipe"
	Err    error
	Output string
}

func (e *BridgeError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("adb %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("adb %s: %v, output: %s", e.Op, e.Err, out)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}
