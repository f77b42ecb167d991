package classifier

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/subway-runner-go/internal/logging"
)

// fakeServer answers worker requests over in-memory pipes
type fakeServer struct {
	requests *io.PipeReader
	replies  *io.PipeWriter
}

func newPipedWorker(t *testing.T, timeout time.Duration) (*Worker, *fakeServer) {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	w := newWorker(reqW, respR, timeout, logging.NewDiscardLogger(), func() error {
		respW.Close()
		reqR.Close()
		return nil
	})
	t.Cleanup(func() { w.Close() })
	return w, &fakeServer{requests: reqR, replies: respW}
}

func (s *fakeServer) next(t *testing.T) request {
	var req request
	if err := readFrame(s.requests, &req); err != nil {
		t.Errorf("server read failed: %v", err)
	}
	return req
}

func (s *fakeServer) reply(t *testing.T, resp response) {
	if err := writeFrame(s.replies, &resp); err != nil {
		t.Errorf("server write failed: %v", err)
	}
}

func sampleTensor() Tensor {
	return Tensor{Height: 1, Width: 1, Channels: 3, Data: []float32{0.1, 0.2, 0.3}}
}

func TestWorkerAwaitReady(t *testing.T) {
	w, srv := newPipedWorker(t, time.Second)
	go srv.reply(t, response{Type: messageReady, Model: "model.h5"})

	require.NoError(t, w.awaitReady(context.Background()))
	assert.Equal(t, "model.h5", w.Model())
}

func TestWorkerAwaitReadyReportsLoadError(t *testing.T) {
	w, srv := newPipedWorker(t, time.Second)
	go srv.reply(t, response{Type: messageReady, Error: "bad model"})

	err := w.awaitReady(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
}

func TestWorkerPredict(t *testing.T) {
	w, srv := newPipedWorker(t, time.Second)

	go func() {
		req := srv.next(t)
		assert.Equal(t, messagePredict, req.Type)
		assert.Equal(t, []int{1, 1, 3}, req.Shape)
		srv.reply(t, response{Type: messageResult, Seq: req.Seq, Probabilities: []float64{0.1, 0.05, 0.7, 0.1, 0.05}})
	}()

	probs, err := w.Predict(context.Background(), sampleTensor())
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.05, 0.7, 0.1, 0.05}, probs)
}

func TestWorkerPredictDiscardsStaleResults(t *testing.T) {
	w, srv := newPipedWorker(t, time.Second)

	go func() {
		req := srv.next(t)
		srv.reply(t, response{Type: messageResult, Seq: req.Seq + 100, Probabilities: []float64{1, 0, 0, 0, 0}})
		srv.reply(t, response{Type: messageResult, Seq: req.Seq, Probabilities: []float64{0, 1, 0, 0, 0}})
	}()

	probs, err := w.Predict(context.Background(), sampleTensor())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 0, 0}, probs)
}

func TestWorkerPredictWorkerError(t *testing.T) {
	w, srv := newPipedWorker(t, time.Second)

	go func() {
		req := srv.next(t)
		srv.reply(t, response{Type: messageResult, Seq: req.Seq, Error: "shape mismatch"})
	}()

	_, err := w.Predict(context.Background(), sampleTensor())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClassification))
	assert.Contains(t, err.Error(), "shape mismatch")
}

func TestWorkerPredictTimeout(t *testing.T) {
	w, srv := newPipedWorker(t, 50*time.Millisecond)

	go srv.next(t)

	_, err := w.Predict(context.Background(), sampleTensor())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClassification))
}

func TestWorkerPredictAfterExit(t *testing.T) {
	w, srv := newPipedWorker(t, time.Second)

	go func() {
		srv.next(t)
		srv.replies.Close()
	}()

	_, err := w.Predict(context.Background(), sampleTensor())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClassification))
}

func TestWorkerCloseWithUnreadResults(t *testing.T) {
	w, srv := newPipedWorker(t, time.Second)

	// more results than the response buffer holds, none of them requested
	written := make(chan struct{})
	go func() {
		defer close(written)
		for seq := uint64(1); seq <= uint64(cap(w.responses))+1; seq++ {
			if err := writeFrame(srv.replies, &response{Type: messageResult, Seq: seq}); err != nil {
				return
			}
		}
	}()

	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("results were not consumed by the reader")
	}

	require.NoError(t, w.Close())
	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("response reader did not exit after Close")
	}
}

func TestStartWorkerMissingModel(t *testing.T) {
	_, err := StartWorker(context.Background(), WorkerConfig{
		Command:   []string{"python3", "worker.py"},
		ModelPath: filepath.Join(t.TempDir(), "missing.h5"),
	}, logging.NewDiscardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file not found")
}

func TestStartWorkerEmptyCommand(t *testing.T) {
	_, err := StartWorker(context.Background(), WorkerConfig{}, logging.NewDiscardLogger())
	require.Error(t, err)
}
