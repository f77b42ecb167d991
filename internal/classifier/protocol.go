package classifier

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// maxFrameSize guards against reading garbage as a length prefix
const maxFrameSize = 64 << 20

const (
	messageReady   = "ready"
	messagePredict = "predict"
	messageResult  = "result"
)

// request is sent to the model worker
type request struct {
	Type   string    `msgpack:"type"`
	Seq    uint64    `msgpack:"seq"`
	Shape  []int     `msgpack:"shape"`
	Tensor []float32 `msgpack:"tensor"`
}

// response comes back from the model worker
type response struct {
	Type          string    `msgpack:"type"`
	Seq           uint64    `msgpack:"seq"`
	Probabilities []float64 `msgpack:"probabilities"`
	Error         string    `msgpack:"error"`
	InferenceMs   float64   `msgpack:"inference_ms"`
	Model         string    `msgpack:"model"`
}

// writeFrame writes a 4-byte big-endian length prefix followed by the
// msgpack encoding of v
func writeFrame(w io.Writer, v interface{}) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal msgpack frame: %w", err)
	}

	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed msgpack frame into v
func readFrame(r io.Reader, v interface{}) error {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return err
	}

	n := binary.BigEndian.Uint32(lengthBuf[:])
	if n > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("failed to read frame body: %w", err)
	}

	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal msgpack frame: %w", err)
	}
	return nil
}
