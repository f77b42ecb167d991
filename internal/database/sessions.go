package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jordanella.com/subway-runner-go/internal/action"
)

// StartSession creates a session row and returns its id
func (db *DB) StartSession(mode, deviceSerial string, startedAt time.Time) (string, error) {
	if mode != ModeRecord && mode != ModeRun {
		return "", fmt.Errorf("invalid session mode %q", mode)
	}

	id := uuid.NewString()
	var serial *string
	if deviceSerial != "" {
		serial = &deviceSerial
	}

	err := db.ExecTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO sessions (id, mode, device_serial, started_at, status)
			VALUES (?, ?, ?, ?, ?)
		`, id, mode, serial, startedAt, StatusRunning)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecordFrame journals a frame the recorder committed
func (db *DB) RecordFrame(sessionID string, seq int64, label action.Label, path string, capturedAt time.Time) error {
	if !label.Valid() {
		return fmt.Errorf("%w: %d", action.ErrUnknownLabel, int(label))
	}

	_, err := db.conn.Exec(`
		INSERT INTO frames (session_id, seq, label, path, captured_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, seq, label.String(), path, capturedAt)
	if err != nil {
		return fmt.Errorf("failed to record frame %d: %w", seq, err)
	}
	return nil
}

// RecordDispatch journals one agent decision. A non-nil dispatchErr
// marks the gesture as failed.
func (db *DB) RecordDispatch(sessionID string, seq int64, label action.Label, confidence float64, dispatchErr error, at time.Time) error {
	if !label.Valid() {
		return fmt.Errorf("%w: %d", action.ErrUnknownLabel, int(label))
	}

	var errText *string
	if dispatchErr != nil {
		s := dispatchErr.Error()
		errText = &s
	}

	_, err := db.conn.Exec(`
		INSERT INTO dispatches (session_id, seq, label, confidence, error, dispatched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, seq, label.String(), confidence, errText, at)
	if err != nil {
		return fmt.Errorf("failed to record dispatch %d: %w", seq, err)
	}
	return nil
}

// FinishSession stores the final counters. A non-nil runErr marks the
// session failed.
func (db *DB) FinishSession(sessionID string, cycles, skipped int64, runErr error, stoppedAt time.Time) error {
	status := StatusCompleted
	var errText *string
	if runErr != nil {
		status = StatusFailed
		s := runErr.Error()
		errText = &s
	}

	return db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE sessions
			SET stopped_at = ?, cycles = ?, skipped = ?, status = ?, error_message = ?
			WHERE id = ?
		`, stoppedAt, cycles, skipped, status, errText, sessionID)
		if err != nil {
			return fmt.Errorf("failed to finish session: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("session %s not found", sessionID)
		}
		return nil
	})
}

// GetSession retrieves a session by id
func (db *DB) GetSession(sessionID string) (*Session, error) {
	s := &Session{}
	err := db.conn.QueryRow(`
		SELECT id, mode, device_serial, started_at, stopped_at, cycles, skipped, status, error_message
		FROM sessions
		WHERE id = ?
	`, sessionID).Scan(
		&s.ID, &s.Mode, &s.DeviceSerial, &s.StartedAt, &s.StoppedAt,
		&s.Cycles, &s.Skipped, &s.Status, &s.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetRecentSessions returns the newest sessions first
func (db *DB) GetRecentSessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT id, mode, device_serial, started_at, stopped_at, cycles, skipped, status, error_message
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		s := &Session{}
		if err := rows.Scan(
			&s.ID, &s.Mode, &s.DeviceSerial, &s.StartedAt, &s.StoppedAt,
			&s.Cycles, &s.Skipped, &s.Status, &s.ErrorMessage,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetFrames returns the frames of a session in cycle order
func (db *DB) GetFrames(sessionID string) ([]*FrameRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, session_id, seq, label, path, captured_at
		FROM frames
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	frames := []*FrameRecord{}
	for rows.Next() {
		f := &FrameRecord{}
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Seq, &f.Label, &f.Path, &f.CapturedAt); err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// LabelCounts tallies frames or successful dispatches per label for a session
func (db *DB) LabelCounts(sessionID string) (map[action.Label]int, error) {
	rows, err := db.conn.Query(`
		SELECT label, SUM(total)
		FROM v_session_labels
		WHERE session_id = ?
		GROUP BY label
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[action.Label]int)
	for rows.Next() {
		var name string
		var total int
		if err := rows.Scan(&name, &total); err != nil {
			return nil, err
		}
		label, err := action.Parse(name)
		if err != nil {
			return nil, err
		}
		counts[label] = total
	}
	return counts, rows.Err()
}
