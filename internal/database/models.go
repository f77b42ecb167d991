package database

import (
	"time"
)

// Session modes
const (
	ModeRecord = "record"
	ModeRun    = "run"
)

// Session statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Session represents one recorder or agent run
type Session struct {
	ID           string     `db:"id"`
	Mode         string     `db:"mode"`
	DeviceSerial *string    `db:"device_serial"`
	StartedAt    time.Time  `db:"started_at"`
	StoppedAt    *time.Time `db:"stopped_at"`
	Cycles       int64      `db:"cycles"`
	Skipped      int64      `db:"skipped"`
	Status       string     `db:"status"`
	ErrorMessage *string    `db:"error_message"`
}

// FrameRecord is one labeled frame written by the recorder
type FrameRecord struct {
	ID         int64     `db:"id"`
	SessionID  string    `db:"session_id"`
	Seq        int64     `db:"seq"`
	Label      string    `db:"label"`
	Path       string    `db:"path"`
	CapturedAt time.Time `db:"captured_at"`
}

// DispatchRecord is one resolved agent cycle
type DispatchRecord struct {
	ID           int64     `db:"id"`
	SessionID    string    `db:"session_id"`
	Seq          int64     `db:"seq"`
	Label        string    `db:"label"`
	Confidence   *float64  `db:"confidence"`
	Error        *string   `db:"error"`
	DispatchedAt time.Time `db:"dispatched_at"`
}
