package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"jordanella.com/subway-runner-go/internal/logging"
)

// WorkerConfig describes the model-serving process
type WorkerConfig struct {
	// Command and arguments, e.g. ["python3", "scripts/classifier_worker.py"]
	Command []string

	// ModelPath is passed as --model and must exist before start
	ModelPath string

	// StartupTimeout bounds model loading, RequestTimeout each prediction
	StartupTimeout time.Duration
	RequestTimeout time.Duration
}

// Worker is a Classifier backed by an external model process. Predictions
// are serialized; one request is in flight at a time.
type Worker struct {
	stdin          io.WriteCloser
	stdout         io.Reader
	requestTimeout time.Duration
	logger         *logging.Logger
	stop           func() error

	mu      sync.Mutex
	writeMu sync.Mutex
	seq     uint64

	responses chan response
	done      chan struct{}
	quit      chan struct{}
	readErr   error
	closeOnce sync.Once
	closeErr  error

	model string
}

// StartWorker launches the model process and waits until it reports ready.
// A missing model file or a process that never becomes ready is a startup
// failure.
func StartWorker(ctx context.Context, cfg WorkerConfig, logger *logging.Logger) (*Worker, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("classifier worker command is empty")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found at %s: %w", cfg.ModelPath, err)
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = 60 * time.Second
	}

	args := append(append([]string{}, cfg.Command[1:]...), "--model", cfg.ModelPath)
	cmd := exec.Command(cfg.Command[0], args...)
	cmd.Stderr = logger.LineWriter(logging.LogLevelWarn)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start classifier worker: %w", err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	stop := func() error {
		select {
		case err := <-exited:
			return err
		case <-time.After(2 * time.Second):
			logger.Warn("Classifier worker did not exit, killing it")
			cmd.Process.Kill()
			return <-exited
		}
	}

	w := newWorker(stdin, stdout, cfg.RequestTimeout, logger, stop)

	startCtx, cancel := context.WithTimeout(ctx, cfg.StartupTimeout)
	defer cancel()
	if err := w.awaitReady(startCtx); err != nil {
		w.Close()
		return nil, err
	}

	logger.InfoWithContext("Classifier worker ready", map[string]interface{}{
		"model": w.model,
		"pid":   cmd.Process.Pid,
	})
	return w, nil
}

// newWorker wires a worker over an established transport
func newWorker(stdin io.WriteCloser, stdout io.Reader, requestTimeout time.Duration, logger *logging.Logger, stop func() error) *Worker {
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Second
	}
	w := &Worker{
		stdin:          stdin,
		stdout:         stdout,
		requestTimeout: requestTimeout,
		logger:         logger,
		stop:           stop,
		responses:      make(chan response, 4),
		done:           make(chan struct{}),
		quit:           make(chan struct{}),
	}
	go w.readResponses()
	return w
}

// readResponses forwards decoded frames until the stream ends
func (w *Worker) readResponses() {
	defer close(w.done)

	for {
		var resp response
		if err := readFrame(w.stdout, &resp); err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("worker stdout closed")
			}
			w.readErr = err
			return
		}
		select {
		case w.responses <- resp:
		case <-w.quit:
			w.readErr = fmt.Errorf("worker closed")
			return
		}
	}
}

func (w *Worker) awaitReady(ctx context.Context) error {
	for {
		select {
		case resp := <-w.responses:
			if resp.Type != messageReady {
				continue
			}
			if resp.Error != "" {
				return fmt.Errorf("classifier worker failed to load model: %s", resp.Error)
			}
			w.model = resp.Model
			return nil
		case <-w.done:
			return fmt.Errorf("classifier worker exited during startup: %v", w.readErr)
		case <-ctx.Done():
			return fmt.Errorf("classifier worker not ready: %w", ctx.Err())
		}
	}
}

// Predict sends one tensor and waits for the matching result. Late
// results from timed-out requests are discarded.
func (w *Worker) Predict(ctx context.Context, tensor Tensor) ([]float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	seq := w.seq

	ctx, cancel := context.WithTimeout(ctx, w.requestTimeout)
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		w.writeMu.Lock()
		defer w.writeMu.Unlock()
		writeErr <- writeFrame(w.stdin, &request{
			Type:   messagePredict,
			Seq:    seq,
			Shape:  tensor.Shape(),
			Tensor: tensor.Data,
		})
	}()

	select {
	case err := <-writeErr:
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrClassification, err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: request %d: %v", ErrClassification, seq, ctx.Err())
	}

	for {
		select {
		case resp := <-w.responses:
			if resp.Seq != seq {
				w.logger.DebugWithContext("Discarding stale classifier result", map[string]interface{}{
					"seq":      resp.Seq,
					"expected": seq,
				})
				continue
			}
			if resp.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrClassification, resp.Error)
			}
			return resp.Probabilities, nil
		case <-w.done:
			return nil, fmt.Errorf("%w: worker exited: %v", ErrClassification, w.readErr)
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: request %d: %v", ErrClassification, seq, ctx.Err())
		}
	}
}

// Model returns the model name reported by the worker
func (w *Worker) Model() string {
	return w.model
}

// Close closes stdin, which asks the worker to exit, then reaps it
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {
		close(w.quit)
		w.stdin.Close()
		if w.stop != nil {
			w.closeErr = w.stop()
		}
	})
	return w.closeErr
}
