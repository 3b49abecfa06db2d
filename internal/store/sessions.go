package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateSession inserts a session row.
func (s *Store) CreateSession(ctx context.Context, q DBTX, ws *Session) error {
	now := time.Now().UnixMilli()
	if ws.CreatedAt == 0 {
		ws.CreatedAt = now
	}
	if ws.UpdatedAt == 0 {
		ws.UpdatedAt = now
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO work_sessions
		 (id, task_id, user_id, session_date, status, started_at, ended_at, paused_at, resumed_at,
		  duration_seconds, paused_seconds, pause_count, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ws.ID, ws.TaskID, ws.UserID, ws.Date, string(ws.Status), ws.StartedAt,
		nullInt64(ws.EndedAt), nullInt64(ws.PausedAt), nullInt64(ws.ResumedAt),
		ws.DurationSeconds, ws.PausedSeconds, ws.PauseCount, ws.Notes, ws.CreatedAt, ws.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// UpdateSession rewrites the mutable fields after a state transition.
func (s *Store) UpdateSession(ctx context.Context, q DBTX, ws *Session) error {
	res, err := q.ExecContext(ctx,
		`UPDATE work_sessions
		 SET status = ?, ended_at = ?, paused_at = ?, resumed_at = ?,
		     duration_seconds = ?, paused_seconds = ?, pause_count = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		string(ws.Status), nullInt64(ws.EndedAt), nullInt64(ws.PausedAt), nullInt64(ws.ResumedAt),
		ws.DurationSeconds, ws.PausedSeconds, ws.PauseCount, ws.Notes, time.Now().UnixMilli(), ws.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %s", ws.ID)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns nil if not found.
func (s *Store) GetSession(ctx context.Context, q DBTX, id string) (*Session, error) {
	row := q.QueryRowContext(ctx, sessionSelect+` WHERE id = ?`, id)
	ws, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return ws, nil
}

// GetActiveSession returns the user's running or paused session, if any.
// At most one exists at any instant.
func (s *Store) GetActiveSession(ctx context.Context, q DBTX, userID string) (*Session, error) {
	row := q.QueryRowContext(ctx,
		sessionSelect+` WHERE user_id = ? AND status != 'stopped' ORDER BY started_at LIMIT 1`, userID)
	ws, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return ws, nil
}

// SessionFilter narrows ListTaskSessions.
type SessionFilter struct {
	UserID string
	Date   string
}

// ListTaskSessions returns a task's sessions, optionally filtered by user
// and date, newest first.
func (s *Store) ListTaskSessions(ctx context.Context, q DBTX, taskID string, f SessionFilter) ([]Session, error) {
	query := sessionSelect + ` WHERE task_id = ?`
	args := []any{taskID}
	if f.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.Date != "" {
		query += ` AND session_date = ?`
		args = append(args, f.Date)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListUserSessions returns all of a user's sessions on a date, oldest first.
func (s *Store) ListUserSessions(ctx context.Context, q DBTX, userID, date string) ([]Session, error) {
	rows, err := q.QueryContext(ctx,
		sessionSelect+` WHERE user_id = ? AND session_date = ? ORDER BY started_at`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

const sessionSelect = `
	SELECT id, task_id, user_id, session_date, status, started_at, ended_at, paused_at, resumed_at,
	       duration_seconds, paused_seconds, pause_count, notes, created_at, updated_at
	FROM work_sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*Session, error) {
	ws := &Session{}
	var endedAt, pausedAt, resumedAt sql.NullInt64
	err := r.Scan(&ws.ID, &ws.TaskID, &ws.UserID, &ws.Date, &ws.Status, &ws.StartedAt,
		&endedAt, &pausedAt, &resumedAt,
		&ws.DurationSeconds, &ws.PausedSeconds, &ws.PauseCount, &ws.Notes, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ws.EndedAt = endedAt.Int64
	ws.PausedAt = pausedAt.Int64
	ws.ResumedAt = resumedAt.Int64
	return ws, nil
}

func scanSessions(rows *sql.Rows) ([]Session, error) {
	var out []Session
	for rows.Next() {
		ws, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return out, nil
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
