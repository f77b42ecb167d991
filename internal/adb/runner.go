package adb

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// Runner executes adb. The default implementation shells out; tests swap
// in a fake that records argv.
type Runner interface {
	// Run executes a command to completion and returns combined output
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// Start launches a long-running command and returns its stdout. Closing
	// the returned reader terminates the process.
	Start(ctx context.Context, name string, args ...string) (io.ReadCloser, error)
}

// ExecRunner runs commands with os/exec, bounding each Run by Timeout
type ExecRunner struct {
	Timeout time.Duration
}

// Run executes a command with the configured timeout
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return output, fmt.Errorf("command timed out after %v", r.Timeout)
	}
	return output, err
}

// Start launches a streaming command
func (r ExecRunner) Start(ctx context.Context, name string, args ...string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &processStream{cmd: cmd, stdout: stdout}, nil
}

// processStream is the stdout of a running process
type processStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	once   sync.Once
}

func (p *processStream) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Close kills the process and reaps it
func (p *processStream) Close() error {
	p.once.Do(func() {
		if p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
		p.cmd.Wait()
	})
	return nil
}
