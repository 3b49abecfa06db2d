// Package tracker implements the work-session state machine. Elapsed time
// is checkpointed at every transition; the live clock is only ever used to
// derive a display value, never stored.
package tracker

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/planor-io/planor/internal/budget"
	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

// DayStatus is a user's full tracking picture for one date.
type DayStatus struct {
	Date           string          `json:"date"`
	Active         *ActiveSession  `json:"active_session,omitempty"`
	Completed      []store.Session `json:"completed_sessions"`
	TrackedHours   float64         `json:"tracked_hours"`
	RemainingHours float64         `json:"remaining_hours"`
	Warnings       []string        `json:"warnings"`
}

// ActiveSession pairs a non-stopped session with its live elapsed seconds.
type ActiveSession struct {
	Session        store.Session `json:"session"`
	ElapsedSeconds int64         `json:"elapsed_seconds"`
}

// Tracker drives session transitions and aggregates tracked time.
type Tracker struct {
	store  *store.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a session tracker.
func NewTracker(st *store.Store, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:  st,
		logger: logger.With().Str("component", "tracker").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Start opens a new running session for the caller on a task. Rejected if
// the caller already has a non-stopped session anywhere, or if their
// tracked hours for today have reached the daily ceiling. The daily-cap
// check and the insert share one transaction.
func (t *Tracker) Start(ctx context.Context, callerID, taskID, notes string) (*store.Session, error) {
	now := t.now()
	date := now.Format("2006-01-02")

	var ws *store.Session
	err := t.store.WithTx(ctx, func(tx *sql.Tx) error {
		task, err := t.store.GetTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return perrors.Newf(perrors.KindNotFound, "task not found: %s", taskID)
		}
		if task.Status == store.TaskConcluido {
			return perrors.New(perrors.KindValidation, "task is concluido and cannot be tracked")
		}

		active, err := t.store.GetActiveSession(ctx, tx, callerID)
		if err != nil {
			return err
		}
		if active != nil {
			return perrors.Newf(perrors.KindConflict,
				"user already has an active session on task %s", active.TaskID).
				WithDetails(map[string]string{"session_id": active.ID, "status": string(active.Status)})
		}

		tracked, err := t.dailyTrackedSeconds(ctx, tx, callerID, date, now)
		if err != nil {
			return err
		}
		trackedHours := float64(tracked) / 3600
		if trackedHours >= budget.DailyBudgetHours {
			return perrors.Newf(perrors.KindDailyLimit,
				"daily tracked hours limit of %.0fh reached", budget.DailyBudgetHours).
				WithDetails(budget.LimitDetail{
					UserID:         callerID,
					CurrentHours:   budget.Round2(trackedHours),
					AvailableHours: 0,
				})
		}

		ws = &store.Session{
			ID:        uuid.New().String(),
			TaskID:    taskID,
			UserID:    callerID,
			Date:      date,
			Status:    store.SessionRunning,
			StartedAt: now.UnixMilli(),
			Notes:     notes,
		}
		return t.store.CreateSession(ctx, tx, ws)
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info().
		Str("session_id", ws.ID).
		Str("user_id", callerID).
		Str("task_id", taskID).
		Msg("session started")

	return ws, nil
}

// Pause checkpoints elapsed work time and suspends a running session.
func (t *Tracker) Pause(ctx context.Context, callerID, sessionID string) (*store.Session, error) {
	return t.transition(ctx, callerID, sessionID, "pause", store.SessionRunning, func(ws *store.Session, nowMs int64) {
		ws.DurationSeconds += (nowMs - anchorMs(ws)) / 1000
		ws.PausedAt = nowMs
		ws.Status = store.SessionPaused
	})
}

// Resume checkpoints paused time and reopens a paused session.
func (t *Tracker) Resume(ctx context.Context, callerID, sessionID string) (*store.Session, error) {
	return t.transition(ctx, callerID, sessionID, "resume", store.SessionPaused, func(ws *store.Session, nowMs int64) {
		ws.PausedSeconds += (nowMs - ws.PausedAt) / 1000
		ws.ResumedAt = nowMs
		ws.PauseCount++
		ws.Status = store.SessionRunning
	})
}

// Stop terminates a session from either non-stopped state. From running it
// checkpoints work time; from paused it checkpoints paused time, the work
// duration having been checkpointed at the last pause already.
func (t *Tracker) Stop(ctx context.Context, callerID, sessionID string) (*store.Session, error) {
	now := t.now().UnixMilli()

	var ws *store.Session
	err := t.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		ws, err = t.loadOwned(ctx, tx, callerID, sessionID)
		if err != nil {
			return err
		}
		switch ws.Status {
		case store.SessionRunning:
			ws.DurationSeconds += (now - anchorMs(ws)) / 1000
		case store.SessionPaused:
			ws.PausedSeconds += (now - ws.PausedAt) / 1000
		default:
			return invalidTransition(ws, "stop")
		}
		ws.EndedAt = now
		ws.Status = store.SessionStopped
		return t.store.UpdateSession(ctx, tx, ws)
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info().
		Str("session_id", sessionID).
		Int64("duration_seconds", ws.DurationSeconds).
		Int("pause_count", ws.PauseCount).
		Msg("session stopped")

	return ws, nil
}

// LiveElapsedSeconds derives the display value for a session: checkpoint
// plus time since the last running anchor, frozen while paused or stopped.
func (t *Tracker) LiveElapsedSeconds(ws *store.Session, now time.Time) int64 {
	if ws.Status != store.SessionRunning {
		return ws.DurationSeconds
	}
	return ws.DurationSeconds + (now.UnixMilli()-anchorMs(ws))/1000
}

// DailyTrackedHours sums a user's tracked time for a date, including the
// live elapsed of a currently-running session.
func (t *Tracker) DailyTrackedHours(ctx context.Context, userID, date string) (float64, error) {
	secs, err := t.dailyTrackedSeconds(ctx, t.store.DB(), userID, date, t.now())
	if err != nil {
		return 0, err
	}
	return float64(secs) / 3600, nil
}

// ListTaskSessions returns a task's sessions with optional user/date filters.
func (t *Tracker) ListTaskSessions(ctx context.Context, taskID string, f store.SessionFilter) ([]store.Session, error) {
	return t.store.ListTaskSessions(ctx, t.store.DB(), taskID, f)
}

// GetDayStatus assembles the caller's full day view: active session,
// completed sessions, tracked and remaining hours, and warnings.
func (t *Tracker) GetDayStatus(ctx context.Context, userID, date string) (*DayStatus, error) {
	now := t.now()
	sessions, err := t.store.ListUserSessions(ctx, t.store.DB(), userID, date)
	if err != nil {
		return nil, err
	}

	out := &DayStatus{Date: date, Completed: []store.Session{}, Warnings: []string{}}
	var totalSecs int64
	for _, ws := range sessions {
		elapsed := t.LiveElapsedSeconds(&ws, now)
		totalSecs += elapsed
		if ws.Status == store.SessionStopped {
			out.Completed = append(out.Completed, ws)
		} else {
			out.Active = &ActiveSession{Session: ws, ElapsedSeconds: elapsed}
		}
	}

	tracked := float64(totalSecs) / 3600
	remaining := budget.DailyBudgetHours - tracked
	if remaining < 0 {
		remaining = 0
	}
	out.TrackedHours = budget.Round2(tracked)
	out.RemainingHours = budget.Round2(remaining)
	if tracked >= budget.DailyBudgetHours {
		out.Warnings = append(out.Warnings, "daily tracked hours limit reached")
	}
	return out, nil
}

// transition applies a single-state transition under ownership checks.
func (t *Tracker) transition(ctx context.Context, callerID, sessionID, event string, from store.SessionStatus, apply func(*store.Session, int64)) (*store.Session, error) {
	now := t.now().UnixMilli()

	var ws *store.Session
	err := t.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		ws, err = t.loadOwned(ctx, tx, callerID, sessionID)
		if err != nil {
			return err
		}
		if ws.Status != from {
			return invalidTransition(ws, event)
		}
		apply(ws, now)
		return t.store.UpdateSession(ctx, tx, ws)
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (t *Tracker) loadOwned(ctx context.Context, q store.DBTX, callerID, sessionID string) (*store.Session, error) {
	ws, err := t.store.GetSession(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, perrors.Newf(perrors.KindNotFound, "session not found: %s", sessionID)
	}
	if ws.UserID != callerID {
		return nil, perrors.Newf(perrors.KindInvalidTransition,
			"session %s is not owned by the caller", sessionID)
	}
	return ws, nil
}

func (t *Tracker) dailyTrackedSeconds(ctx context.Context, q store.DBTX, userID, date string, now time.Time) (int64, error) {
	sessions, err := t.store.ListUserSessions(ctx, q, userID, date)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, ws := range sessions {
		total += t.LiveElapsedSeconds(&ws, now)
	}
	return total, nil
}

// anchorMs is the last instant the session started accumulating work time.
func anchorMs(ws *store.Session) int64 {
	if ws.ResumedAt != 0 {
		return ws.ResumedAt
	}
	return ws.StartedAt
}

func invalidTransition(ws *store.Session, event string) *perrors.Error {
	return perrors.Newf(perrors.KindInvalidTransition,
		"cannot %s session in state %s", event, ws.Status).
		WithDetails(map[string]string{
			"session_id": ws.ID,
			"status":     string(ws.Status),
		})
}
