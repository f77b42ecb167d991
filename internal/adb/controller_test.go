package adb

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jordanella.com/subway-runner-go/internal/action"
)

// fakeRunner records every invocation and answers from a table keyed by
// the first non-selector argument
type fakeRunner struct {
	calls   [][]string
	outputs map[string]string
	errs    map[string]error
	stream  io.ReadCloser
}

func (f *fakeRunner) key(args []string) string {
	if len(args) >= 2 && args[0] == "-s" {
		args = args[2:]
	}
	if len(args) >= 2 && args[0] == "shell" {
		return args[1]
	}
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	k := f.key(args)
	return []byte(f.outputs[k]), f.errs[k]
}

func (f *fakeRunner) Start(ctx context.Context, name string, args ...string) (io.ReadCloser, error) {
	f.calls = append(f.calls, args)
	if err := f.errs["getevent"]; err != nil {
		return nil, err
	}
	return f.stream, nil
}

func TestConnectRequiresDevice(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"devices": "List of devices attached\n\n"}}
	ctrl := NewController("adb", Options{Runner: runner})

	err := ctrl.Connect(context.Background())
	if !errors.Is(err, ErrBridgeUnavailable) {
		t.Fatalf("Expected ErrBridgeUnavailable, got %v", err)
	}
	if ctrl.IsConnected() {
		t.Error("Controller should not report connected")
	}
}

func TestConnectWithSerial(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"connect": "connected to 127.0.0.1:5555",
		"devices": "List of devices attached\n127.0.0.1:5555\tdevice\nemulator-5554\toffline\n",
	}}
	ctrl := NewController("adb", Options{Serial: "127.0.0.1:5555", Runner: runner})

	if err := ctrl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !ctrl.IsConnected() {
		t.Error("Expected connected controller")
	}
	if runner.calls[0][0] != "connect" {
		t.Errorf("Network serial should be connected first, calls: %v", runner.calls)
	}
}

func TestCaptureFrameSequence(t *testing.T) {
	runner := &fakeRunner{}
	ctrl := NewController("adb", Options{Serial: "dev1", Runner: runner})
	dest := filepath.Join(t.TempDir(), "temp", "current.png")

	if err := ctrl.CaptureFrame(context.Background(), dest); err != nil {
		t.Fatalf("CaptureFrame failed: %v", err)
	}

	want := []string{
		"-s dev1 shell screencap -p /sdcard/screenshot.png",
		"-s dev1 pull /sdcard/screenshot.png " + dest,
		"-s dev1 shell rm -f /sdcard/screenshot.png",
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("Expected %d calls, got %v", len(want), runner.calls)
	}
	for i, w := range want {
		if got := strings.Join(runner.calls[i], " "); got != w {
			t.Errorf("call %d = %q, want %q", i, got, w)
		}
	}
	if _, err := os.Stat(filepath.Dir(dest)); err != nil {
		t.Errorf("Capture directory should be created: %v", err)
	}
}

func TestCaptureFrameFailureIsBridgeError(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string]string{"pull": "remote object does not exist"},
		errs:    map[string]error{"pull": errors.New("exit status 1")},
	}
	ctrl := NewController("adb", Options{Runner: runner})

	err := ctrl.CaptureFrame(context.Background(), filepath.Join(t.TempDir(), "x.png"))
	var bridgeErr *BridgeError
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("Expected *BridgeError, got %v", err)
	}
	if bridgeErr.Op != "pull" || !strings.Contains(bridgeErr.Error(), "remote object") {
		t.Errorf("Unexpected bridge error: %v", bridgeErr)
	}
}

func TestSwipe(t *testing.T) {
	runner := &fakeRunner{}
	ctrl := NewController("adb", Options{Runner: runner})
	ctx := context.Background()

	if err := ctrl.Swipe(ctx, action.Neutral); err != nil {
		t.Fatalf("Neutral swipe failed: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("Neutral must not touch the device, calls: %v", runner.calls)
	}

	if err := ctrl.Swipe(ctx, action.Up); err != nil {
		t.Fatalf("Up swipe failed: %v", err)
	}
	if got := strings.Join(runner.calls[0], " "); got != "shell input swipe 300 1000 300 500 100" {
		t.Errorf("Unexpected jump swipe %q", got)
	}

	if err := ctrl.Swipe(ctx, action.Label(9)); !errors.Is(err, action.ErrUnknownLabel) {
		t.Errorf("Expected ErrUnknownLabel, got %v", err)
	}
}

func TestParseWindowSize(t *testing.T) {
	tests := []struct {
		name  string
		out   string
		w, h  int
		fails bool
	}{
		{"physical", "Physical size: 1080x1920", 1080, 1920, false},
		{"override wins", "Physical size: 1080x2400\nOverride size: 720x1600", 720, 1600, false},
		{"garbage", "nope", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := parseWindowSize(tt.out)
			if tt.fails {
				if err == nil {
					t.Fatal("Expected parse error")
				}
				return
			}
			if err != nil || w != tt.w || h != tt.h {
				t.Errorf("parseWindowSize = %d, %d, %v; want %d, %d", w, h, err, tt.w, tt.h)
			}
		})
	}
}

func TestStartAndStopApp(t *testing.T) {
	runner := &fakeRunner{}
	ctrl := NewController("adb", Options{Runner: runner})
	ctx := context.Background()

	ctrl.StartApp(ctx, "com.kiloo.subwaysurf", ".SubwaySurf")
	ctrl.ForceStop(ctx, "com.kiloo.subwaysurf")

	if got := strings.Join(runner.calls[0], " "); got != "shell am start -n com.kiloo.subwaysurf/.SubwaySurf" {
		t.Errorf("Unexpected start command %q", got)
	}
	if got := strings.Join(runner.calls[1], " "); got != "shell am force-stop com.kiloo.subwaysurf" {
		t.Errorf("Unexpected stop command %q", got)
	}
}

func TestOpenEventStream(t *testing.T) {
	runner := &fakeRunner{stream: io.NopCloser(strings.NewReader(""))}
	ctrl := NewController("adb", Options{Runner: runner})

	stream, err := ctrl.OpenEventStream(context.Background())
	if err != nil {
		t.Fatalf("OpenEventStream failed: %v", err)
	}
	stream.Close()

	if got := strings.Join(runner.calls[0], " "); got != "shell getevent -l" {
		t.Errorf("Unexpected getevent command %q", got)
	}
}
