package taskstatus

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

// TransitionDetail is echoed on INVALID_TRANSITION for diagnostics.
type TransitionDetail struct {
	From store.TaskStatus `json:"from"`
	To   store.TaskStatus `json:"to"`
	Role store.Role       `json:"role"`
}

// Service advances task status and records the audit trail.
type Service struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewService creates a status service.
func NewService(st *store.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.With().Str("component", "taskstatus").Logger(),
	}
}

// Advance moves a task to the target status on behalf of a caller. The
// transition table gates the edge by role; moving to refaca requires a
// reason. Every accepted transition appends a status_changes row in the
// same transaction.
func (s *Service) Advance(ctx context.Context, taskID string, to store.TaskStatus, callerID string, role store.Role, reason string) (*store.Task, error) {
	if !KnownStatus(to) {
		return nil, perrors.Newf(perrors.KindValidation, "unknown status: %s", to)
	}
	if RequiresReason(to) && strings.TrimSpace(reason) == "" {
		return nil, perrors.New(perrors.KindValidation, "moving to refaca requires a reason")
	}

	var task *store.Task
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		task, err = s.store.GetTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return perrors.Newf(perrors.KindNotFound, "task not found: %s", taskID)
		}

		from := task.Status
		if !CanTransition(from, to, role) {
			return perrors.Newf(perrors.KindInvalidTransition,
				"transition %s -> %s not permitted for role %s", from, to, role).
				WithDetails(TransitionDetail{From: from, To: to, Role: role})
		}

		if err := s.store.UpdateTaskStatus(ctx, tx, taskID, to); err != nil {
			return err
		}
		if err := s.store.InsertStatusChange(ctx, tx, &store.StatusChange{
			ID:         uuid.New().String(),
			TaskID:     taskID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  callerID,
			Role:       role,
			Reason:     strings.TrimSpace(reason),
		}); err != nil {
			return err
		}

		task.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("to", string(to)).
		Str("changed_by", callerID).
		Msg("task status advanced")

	return task, nil
}

// History returns the recorded status changes for a task, oldest first.
func (s *Service) History(ctx context.Context, taskID string) ([]store.StatusChange, error) {
	q := s.store.DB()
	task, err := s.store.GetTask(ctx, q, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, perrors.Newf(perrors.KindNotFound, "task not found: %s", taskID)
	}
	return s.store.ListStatusChanges(ctx, q, taskID)
}
