// Package touch turns the raw `getevent -l` output of the device into
// timestamped position samples and buffers them for per-cycle polling.
package touch

import (
	"strconv"
	"strings"
	"time"
)

// Axis is the coordinate a sample reports
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisX {
		return "X"
	}
	return "Y"
}

// Event is one positional sample stamped with its arrival time
type Event struct {
	Axis  Axis
	Value int
	At    time.Time
}

const (
	codePositionX = "ABS_MT_POSITION_X"
	codePositionY = "ABS_MT_POSITION_Y"
)

// ParseLine extracts a position sample from one `getevent -l` line, e.g.
//
//	/dev/input/event2: EV_ABS       ABS_MT_POSITION_X    0000021c
//
// Lines that carry no position (SYN reports, key events, device banners)
// return ok=false.
func ParseLine(line string, at time.Time) (Event, bool) {
	var axis Axis
	var code string
	switch {
	case strings.Contains(line, codePositionX):
		axis, code = AxisX, codePositionX
	case strings.Contains(line, codePositionY):
		axis, code = AxisY, codePositionY
	default:
		return Event{}, false
	}

	fields := strings.Fields(line[strings.LastIndex(line, code)+len(code):])
	if len(fields) == 0 {
		return Event{}, false
	}

	// getevent prints 32-bit words; the high bit marks a negative value
	raw, err := strconv.ParseUint(fields[0], 16, 32)
	if err != nil {
		return Event{}, false
	}
	value := int32(uint32(raw))
	if value < 0 {
		return Event{}, false
	}

	return Event{Axis: axis, Value: int(value), At: at}, true
}
