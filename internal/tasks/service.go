// Package tasks creates tasks under the creation-time dependency rules.
package tasks

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/planor-io/planor/internal/budget"
	"github.com/planor-io/planor/internal/depgate"
	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

// CreateRequest describes a new task.
type CreateRequest struct {
	StageID        string   `json:"stage_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	EstimatedHours float64  `json:"estimated_hours"`
	DailyHours     float64  `json:"daily_hours"`
	Type           string   `json:"task_type"`
	Position       int      `json:"position"`
	DependsOn      []string `json:"depends_on"`
}

// Service validates and creates tasks with their dependency edges.
type Service struct {
	store  *store.Store
	gate   *depgate.Gate
	logger zerolog.Logger
}

// NewService creates a task service.
func NewService(st *store.Store, g *depgate.Gate, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		gate:   g,
		logger: logger.With().Str("component", "tasks").Logger(),
	}
}

// Create validates the request and inserts the task plus its dependency
// edges in one transaction. nao_paralela tasks must arrive with at least
// one dependency and are always created with zero assignees; assignment is
// deferred until the gate opens.
func (s *Service) Create(ctx context.Context, callerRole store.Role, req CreateRequest) (*store.Task, error) {
	if !callerRole.Elevated() {
		return nil, perrors.New(perrors.KindForbidden, "only supervisors and admins may create tasks")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, perrors.New(perrors.KindValidation, "title is required")
	}
	if req.EstimatedHours <= 0 {
		return nil, perrors.New(perrors.KindValidation, "estimated_hours must be positive")
	}
	if req.DailyHours < 0 || req.DailyHours > budget.DailyBudgetHours {
		return nil, perrors.Newf(perrors.KindValidation,
			"daily_hours must be between 0 and %.0f", budget.DailyBudgetHours)
	}
	if req.DailyHours > req.EstimatedHours {
		return nil, perrors.New(perrors.KindValidation, "daily_hours cannot exceed estimated_hours")
	}
	taskType := store.TaskType(req.Type)
	if !taskType.Valid() {
		return nil, perrors.Newf(perrors.KindValidation, "unknown task type: %s", req.Type)
	}

	task := &store.Task{
		ID:             uuid.New().String(),
		StageID:        req.StageID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		EstimatedHours: req.EstimatedHours,
		DailyHours:     req.DailyHours,
		Status:         store.TaskNovo,
		Type:           taskType,
		Position:       req.Position,
	}

	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		stage, err := s.store.GetStage(ctx, tx, req.StageID)
		if err != nil {
			return err
		}
		if stage == nil {
			return perrors.Newf(perrors.KindNotFound, "stage not found: %s", req.StageID)
		}

		if err := s.gate.ValidateNewEdges(ctx, tx, req.StageID, taskType, req.DependsOn); err != nil {
			return err
		}

		if err := s.store.CreateTask(ctx, tx, task); err != nil {
			return err
		}
		for _, depID := range req.DependsOn {
			if err := s.store.CreateDependency(ctx, tx, task.ID, depID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("stage_id", task.StageID).
		Str("task_type", string(task.Type)).
		Int("dependencies", len(req.DependsOn)).
		Msg("task created")

	return task, nil
}
