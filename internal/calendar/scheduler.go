// Package calendar schedules time-boxed allocations of tasks on user
// calendar days, enforcing no-overlap and minimum-duration rules.
package calendar

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

// MinDurationMinutes is the smallest allocation the scheduler accepts.
const MinDurationMinutes = 15

// DailyWarningMinutes is the soft per-day ceiling. Exceeding it yields a
// non-blocking warning, distinct from the hard commitment budget.
const DailyWarningMinutes = 480

// Input describes one requested time box.
type Input struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
	Date   string `json:"date"`
	Start  string `json:"start_time"`
	End    string `json:"end_time"`
	Notes  string `json:"notes"`
}

// Conflict is one existing allocation that intersects a requested interval.
type Conflict struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Result is a successful create/update outcome.
type Result struct {
	Allocation *store.Allocation
	Warning    string
}

// Summary is a user's daily allocation totals.
type Summary struct {
	Date             string `json:"date"`
	UsedMinutes      int    `json:"used_minutes"`
	TotalMinutes     int    `json:"total_minutes"`
	RemainingMinutes int    `json:"remaining_minutes"`
	Allocations      int    `json:"allocations"`
}

// Scheduler creates, updates, and deletes calendar allocations.
type Scheduler struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewScheduler creates a calendar scheduler.
func NewScheduler(st *store.Store, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:  st,
		logger: logger.With().Str("component", "calendar").Logger(),
	}
}

// Create validates and inserts one allocation. The overlap check and the
// insert run in a single transaction.
func (s *Scheduler) Create(ctx context.Context, callerID string, callerRole store.Role, in Input) (*Result, error) {
	if !callerRole.Elevated() && callerID != in.UserID {
		return nil, perrors.New(perrors.KindForbidden, "cannot allocate another user's calendar")
	}

	startMin, endMin, duration, err := parseWindow(in.Date, in.Start, in.End)
	if err != nil {
		return nil, err
	}

	var out *Result
	err = s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.checkPreconditions(ctx, tx, in.UserID, in.TaskID); err != nil {
			return err
		}
		if err := s.checkOverlap(ctx, tx, in.UserID, in.Date, startMin, endMin, ""); err != nil {
			return err
		}

		alloc := &store.Allocation{
			ID:              uuid.New().String(),
			UserID:          in.UserID,
			TaskID:          in.TaskID,
			Date:            in.Date,
			StartMinute:     startMin,
			EndMinute:       endMin,
			DurationMinutes: duration,
			Notes:           in.Notes,
		}
		if err := s.store.CreateAllocation(ctx, tx, alloc); err != nil {
			return err
		}

		warning, err := s.dailyWarning(ctx, tx, in.UserID, in.Date)
		if err != nil {
			return err
		}
		out = &Result{Allocation: alloc, Warning: warning}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("allocation_id", out.Allocation.ID).
		Str("user_id", in.UserID).
		Str("date", in.Date).
		Msg("allocation created")

	return out, nil
}

// Update revalidates and rewrites an existing allocation. It re-runs the
// same precondition checks as Create (the task may have been completed
// since) and excludes its own row from the overlap scan.
func (s *Scheduler) Update(ctx context.Context, callerID string, callerRole store.Role, allocID string, in Input) (*Result, error) {
	startMin, endMin, duration, err := parseWindow(in.Date, in.Start, in.End)
	if err != nil {
		return nil, err
	}

	var out *Result
	err = s.store.WithTx(ctx, func(tx *sql.Tx) error {
		alloc, err := s.store.GetAllocation(ctx, tx, allocID)
		if err != nil {
			return err
		}
		if alloc == nil {
			return perrors.Newf(perrors.KindNotFound, "allocation not found: %s", allocID)
		}
		if !callerRole.Elevated() && callerID != alloc.UserID {
			return perrors.New(perrors.KindForbidden, "cannot modify another user's allocation")
		}

		if err := s.checkPreconditions(ctx, tx, alloc.UserID, alloc.TaskID); err != nil {
			return err
		}
		if err := s.checkOverlap(ctx, tx, alloc.UserID, in.Date, startMin, endMin, allocID); err != nil {
			return err
		}

		alloc.Date = in.Date
		alloc.StartMinute = startMin
		alloc.EndMinute = endMin
		alloc.DurationMinutes = duration
		alloc.Notes = in.Notes
		if err := s.store.UpdateAllocation(ctx, tx, alloc); err != nil {
			return err
		}

		warning, err := s.dailyWarning(ctx, tx, alloc.UserID, in.Date)
		if err != nil {
			return err
		}
		out = &Result{Allocation: alloc, Warning: warning}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an allocation row. No cascading effects.
func (s *Scheduler) Delete(ctx context.Context, callerID string, callerRole store.Role, allocID string) error {
	return s.store.WithTx(ctx, func(tx *sql.Tx) error {
		alloc, err := s.store.GetAllocation(ctx, tx, allocID)
		if err != nil {
			return err
		}
		if alloc == nil {
			return perrors.Newf(perrors.KindNotFound, "allocation not found: %s", allocID)
		}
		if !callerRole.Elevated() && callerID != alloc.UserID {
			return perrors.New(perrors.KindForbidden, "cannot delete another user's allocation")
		}
		_, err = s.store.DeleteAllocation(ctx, tx, allocID)
		return err
	})
}

// List returns a user's allocations in an inclusive date range.
func (s *Scheduler) List(ctx context.Context, userID, from, to string) ([]store.Allocation, error) {
	if _, err := ParseDate(from); err != nil {
		return nil, err
	}
	if _, err := ParseDate(to); err != nil {
		return nil, err
	}
	return s.store.ListAllocations(ctx, s.store.DB(), userID, from, to)
}

// UnallocatedTasks returns the user's assigned tasks with no allocation yet.
func (s *Scheduler) UnallocatedTasks(ctx context.Context, userID string) ([]store.Task, error) {
	return s.store.ListUnallocatedTasks(ctx, s.store.DB(), userID)
}

// DaySummary computes used/total/remaining minutes for a user's date.
func (s *Scheduler) DaySummary(ctx context.Context, userID, date string) (*Summary, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	allocs, err := s.store.ListAllocations(ctx, s.store.DB(), userID, date, date)
	if err != nil {
		return nil, err
	}
	used := 0
	for _, a := range allocs {
		used += a.DurationMinutes
	}
	remaining := DailyWarningMinutes - used
	if remaining < 0 {
		remaining = 0
	}
	return &Summary{
		Date:             date,
		UsedMinutes:      used,
		TotalMinutes:     DailyWarningMinutes,
		RemainingMinutes: remaining,
		Allocations:      len(allocs),
	}, nil
}

// checkPreconditions verifies the user holds an assignment to the task and
// the task is not concluido.
func (s *Scheduler) checkPreconditions(ctx context.Context, q store.DBTX, userID, taskID string) error {
	task, err := s.store.GetTask(ctx, q, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return perrors.Newf(perrors.KindNotFound, "task not found: %s", taskID)
	}
	if task.Status == store.TaskConcluido {
		return perrors.New(perrors.KindValidation, "task is concluido and cannot be allocated")
	}

	assignment, err := s.store.GetAssignment(ctx, q, taskID, userID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return perrors.Newf(perrors.KindValidation, "user %s is not assigned to task %s", userID, taskID)
	}
	return nil
}

func (s *Scheduler) checkOverlap(ctx context.Context, q store.DBTX, userID, date string, startMin, endMin int, excludeID string) error {
	overlaps, err := s.store.ListOverlapping(ctx, q, userID, date, startMin, endMin, excludeID)
	if err != nil {
		return err
	}
	if len(overlaps) == 0 {
		return nil
	}

	conflicts := make([]Conflict, 0, len(overlaps))
	for _, o := range overlaps {
		conflicts = append(conflicts, Conflict{
			ID:        o.ID,
			TaskID:    o.TaskID,
			Date:      o.Date,
			StartTime: FormatClock(o.StartMinute),
			EndTime:   FormatClock(o.EndMinute),
		})
	}
	return perrors.Newf(perrors.KindOverlap,
		"allocation overlaps %d existing allocation(s) on %s", len(conflicts), date).
		WithDetails(conflicts)
}

func (s *Scheduler) dailyWarning(ctx context.Context, q store.DBTX, userID, date string) (string, error) {
	total, err := s.store.SumAllocatedMinutes(ctx, q, userID, date)
	if err != nil {
		return "", err
	}
	if total > DailyWarningMinutes {
		return fmt.Sprintf("daily allocation for %s now totals %d minutes, exceeding %d", date, total, DailyWarningMinutes), nil
	}
	return "", nil
}

// parseWindow validates the date and clock strings and computes duration.
// A non-positive duration is a validation error distinct from overlap.
func parseWindow(date, start, end string) (startMin, endMin, duration int, err error) {
	if _, err = ParseDate(date); err != nil {
		return 0, 0, 0, err
	}
	startMin, err = ParseClock(start)
	if err != nil {
		return 0, 0, 0, err
	}
	endMin, err = ParseClock(end)
	if err != nil {
		return 0, 0, 0, err
	}
	duration = endMin - startMin
	if duration <= 0 {
		return 0, 0, 0, perrors.New(perrors.KindValidation, "end_time must be after start_time")
	}
	if duration < MinDurationMinutes {
		return 0, 0, 0, perrors.Newf(perrors.KindValidation,
			"allocation must be at least %d minutes", MinDurationMinutes)
	}
	return startMin, endMin, duration, nil
}
