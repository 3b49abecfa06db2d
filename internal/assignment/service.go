// Package assignment implements creation, update, and removal of task
// assignments under the dependency gate and the daily-hour budget.
package assignment

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/planor-io/planor/internal/budget"
	"github.com/planor-io/planor/internal/depgate"
	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

// Request is one candidate user in a bulk assignment call.
type Request struct {
	UserID     string  `json:"user_id"`
	DailyHours float64 `json:"daily_hours"`
}

// UserResult is the per-user outcome of a bulk assignment call.
type UserResult struct {
	UserID   string         `json:"user_id"`
	Assigned bool           `json:"assigned"`
	Budget   *budget.Result `json:"budget,omitempty"`
	Error    *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail carries a per-user rejection inside a bulk result.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// BulkResult summarizes a bulk assignment call. Partial success is the
// designed behavior, not a failure mode.
type BulkResult struct {
	Results  []UserResult `json:"results"`
	Assigned int          `json:"assigned"`
	Failed   int          `json:"failed"`
	Total    int          `json:"total"`
}

// Service validates and writes assignment edges.
type Service struct {
	store     *store.Store
	validator *budget.Validator
	gate      *depgate.Gate
	logger    zerolog.Logger
}

// NewService creates an assignment service.
func NewService(st *store.Store, v *budget.Validator, g *depgate.Gate, logger zerolog.Logger) *Service {
	return &Service{
		store:     st,
		validator: v,
		gate:      g,
		logger:    logger.With().Str("component", "assignment").Logger(),
	}
}

// AssignUsers validates and creates assignments for each candidate user.
// The dependency gate and task state are checked once up front; the budget
// check and insert for each user run inside their own transaction so one
// user's rejection never blocks the others.
func (s *Service) AssignUsers(ctx context.Context, taskID string, callerRole store.Role, reqs []Request) (*BulkResult, error) {
	if !callerRole.Elevated() {
		return nil, perrors.New(perrors.KindForbidden, "only supervisors and admins may assign users")
	}
	if len(reqs) == 0 {
		return nil, perrors.New(perrors.KindValidation, "no users to assign")
	}

	task, err := s.store.GetTask(ctx, s.store.DB(), taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, perrors.Newf(perrors.KindNotFound, "task not found: %s", taskID)
	}
	if task.Status == store.TaskConcluido {
		return nil, perrors.New(perrors.KindValidation, "task is concluido and cannot receive assignees")
	}

	gateRes, err := s.gate.CanAssign(ctx, s.store.DB(), taskID)
	if err != nil {
		return nil, err
	}
	if !gateRes.CanAssign {
		return nil, depgate.BlockedError(taskID, gateRes)
	}

	out := &BulkResult{Total: len(reqs)}
	for _, req := range reqs {
		res := s.assignOne(ctx, taskID, req)
		if res.Assigned {
			out.Assigned++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, res)
	}

	s.logger.Info().
		Str("task_id", taskID).
		Int("assigned", out.Assigned).
		Int("failed", out.Failed).
		Msg("bulk assignment processed")

	return out, nil
}

// assignOne runs the budget check and the insert for one user inside a
// single transaction so no other writer can commit between them.
func (s *Service) assignOne(ctx context.Context, taskID string, req Request) UserResult {
	res := UserResult{UserID: req.UserID}

	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		if req.DailyHours < 0 || req.DailyHours > budget.DailyBudgetHours {
			return perrors.Newf(perrors.KindValidation,
				"daily_hours must be between 0 and %.0f", budget.DailyBudgetHours)
		}

		user, err := s.store.GetUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return perrors.Newf(perrors.KindNotFound, "user not found: %s", req.UserID)
		}
		if !user.Active {
			return perrors.Newf(perrors.KindValidation, "user %s is inactive", req.UserID)
		}

		existing, err := s.store.GetAssignment(ctx, tx, taskID, req.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return perrors.Newf(perrors.KindConflict, "user %s is already assigned", req.UserID)
		}

		check, err := s.validator.Check(ctx, tx, req.UserID, taskID, req.DailyHours)
		if err != nil {
			return err
		}
		res.Budget = check
		if !check.Valid {
			return budget.LimitError(req.UserID, check)
		}

		return s.store.CreateAssignment(ctx, tx, &store.Assignment{
			TaskID:     taskID,
			UserID:     req.UserID,
			DailyHours: req.DailyHours,
		})
	})
	if err != nil {
		res.Error = toErrorDetail(err)
		return res
	}

	res.Assigned = true
	return res
}

// UpdateHours changes one user's daily commitment. The assigned user may
// adjust their own; anything else requires supervisor/admin.
func (s *Service) UpdateHours(ctx context.Context, taskID, userID string, hours float64, callerID string, callerRole store.Role) (*budget.Result, error) {
	if !callerRole.Elevated() && callerID != userID {
		return nil, perrors.New(perrors.KindForbidden, "cannot adjust another user's commitment")
	}
	if hours < 0 || hours > budget.DailyBudgetHours {
		return nil, perrors.Newf(perrors.KindValidation,
			"daily_hours must be between 0 and %.0f", budget.DailyBudgetHours)
	}

	var check *budget.Result
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.store.GetAssignment(ctx, tx, taskID, userID)
		if err != nil {
			return err
		}
		if existing == nil {
			return perrors.Newf(perrors.KindNotFound, "assignment not found: task %s user %s", taskID, userID)
		}

		check, err = s.validator.Check(ctx, tx, userID, taskID, hours)
		if err != nil {
			return err
		}
		if !check.Valid {
			return budget.LimitError(userID, check)
		}

		return s.store.UpdateAssignmentHours(ctx, tx, taskID, userID, hours)
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

// Remove deletes an assignment edge.
func (s *Service) Remove(ctx context.Context, taskID, userID string, callerRole store.Role) error {
	if !callerRole.Elevated() {
		return perrors.New(perrors.KindForbidden, "only supervisors and admins may unassign users")
	}
	deleted, err := s.store.DeleteAssignment(ctx, s.store.DB(), taskID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return perrors.Newf(perrors.KindNotFound, "assignment not found: task %s user %s", taskID, userID)
	}
	return nil
}

func toErrorDetail(err error) *ErrorDetail {
	if de, ok := perrors.AsDomain(err); ok {
		return &ErrorDetail{Kind: string(de.Kind), Message: de.Message, Details: de.Details}
	}
	return &ErrorDetail{Kind: "INTERNAL", Message: err.Error()}
}
