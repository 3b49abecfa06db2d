// Package depgate decides whether a task's type and dependency set permit
// assigning workers right now, and validates dependency edges at creation.
package depgate

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

// BlockingTask is a not-yet-complete dependency reported to the caller.
type BlockingTask struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Result is the outcome of a gate query.
type Result struct {
	CanAssign            bool           `json:"can_assign"`
	BlockingDependencies []BlockingTask `json:"blocking_dependencies"`
}

// Gate evaluates dependency-driven assignment permission.
type Gate struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewGate creates a dependency gate.
func NewGate(st *store.Store, logger zerolog.Logger) *Gate {
	return &Gate{
		store:  st,
		logger: logger.With().Str("component", "depgate").Logger(),
	}
}

// CanAssign reports whether the task may receive assignees. paralela tasks
// are always assignable; nao_paralela tasks require every dependency to be
// concluido; fixa dependencies are informational and never block.
func (g *Gate) CanAssign(ctx context.Context, q store.DBTX, taskID string) (*Result, error) {
	if q == nil {
		q = g.store.DB()
	}
	task, err := g.store.GetTask(ctx, q, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, perrors.Newf(perrors.KindNotFound, "task not found: %s", taskID)
	}

	res := &Result{CanAssign: true, BlockingDependencies: []BlockingTask{}}
	if task.Type != store.TypeNaoParalela {
		return res, nil
	}

	deps, err := g.store.ListDependencies(ctx, q, taskID)
	if err != nil {
		return nil, err
	}
	for _, d := range deps {
		if d.Status != store.TaskConcluido {
			res.BlockingDependencies = append(res.BlockingDependencies, BlockingTask{
				ID:     d.ID,
				Title:  d.Title,
				Status: string(d.Status),
			})
		}
	}
	res.CanAssign = len(res.BlockingDependencies) == 0
	return res, nil
}

// BlockedError builds the TASK_BLOCKED_BY_DEPENDENCIES rejection for a
// closed gate.
func BlockedError(taskID string, res *Result) *perrors.Error {
	return perrors.Newf(perrors.KindBlockedByDeps,
		"task %s is blocked by incomplete dependencies", taskID).
		WithDetails(res.BlockingDependencies)
}

// Dependencies lists a task's dependency edges with each prerequisite's
// current status.
func (g *Gate) Dependencies(ctx context.Context, taskID string) ([]store.DependencyTask, error) {
	q := g.store.DB()
	task, err := g.store.GetTask(ctx, q, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, perrors.Newf(perrors.KindNotFound, "task not found: %s", taskID)
	}
	return g.store.ListDependencies(ctx, q, taskID)
}

// ValidateNewEdges checks the dependency set supplied at task creation:
// type rules, existence, same-stage containment.
func (g *Gate) ValidateNewEdges(ctx context.Context, q store.DBTX, stageID string, taskType store.TaskType, dependsOn []string) error {
	if len(dependsOn) > 0 && !taskType.AllowsDependencies() {
		return perrors.Newf(perrors.KindValidation,
			"task type %s cannot have dependencies", taskType)
	}
	if taskType == store.TypeNaoParalela && len(dependsOn) == 0 {
		return perrors.New(perrors.KindValidation,
			"nao_paralela tasks require at least one dependency")
	}

	seen := make(map[string]bool, len(dependsOn))
	for _, depID := range dependsOn {
		if seen[depID] {
			return perrors.Newf(perrors.KindValidation, "duplicate dependency: %s", depID)
		}
		seen[depID] = true

		dep, err := g.store.GetTask(ctx, q, depID)
		if err != nil {
			return err
		}
		if dep == nil {
			return perrors.Newf(perrors.KindValidation, "dependency task not found: %s", depID)
		}
		if dep.StageID != stageID {
			return perrors.Newf(perrors.KindValidation,
				"dependency %s belongs to another stage", depID)
		}
	}
	return nil
}

// AddEdge validates and inserts a dependency edge on an existing task.
// Beyond the creation-time rules it rejects self-loops and walks the
// same-stage graph to refuse edges that would close a cycle.
func (g *Gate) AddEdge(ctx context.Context, taskID, dependsOnID string) error {
	return g.store.WithTx(ctx, func(tx *sql.Tx) error {
		if taskID == dependsOnID {
			return perrors.New(perrors.KindValidation, "a task cannot depend on itself")
		}

		task, err := g.store.GetTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return perrors.Newf(perrors.KindNotFound, "task not found: %s", taskID)
		}

		if err := g.ValidateNewEdges(ctx, tx, task.StageID, task.Type, []string{dependsOnID}); err != nil {
			return err
		}

		existing, err := g.store.DependencyIDs(ctx, tx, taskID)
		if err != nil {
			return err
		}
		for _, id := range existing {
			if id == dependsOnID {
				return perrors.Newf(perrors.KindConflict,
					"task %s already depends on %s", taskID, dependsOnID)
			}
		}

		cyclic, err := g.wouldCycle(ctx, tx, taskID, dependsOnID)
		if err != nil {
			return err
		}
		if cyclic {
			return perrors.Newf(perrors.KindValidation,
				"dependency on %s would create a cycle", dependsOnID)
		}

		return g.store.CreateDependency(ctx, tx, taskID, dependsOnID)
	})
}

// wouldCycle walks the dependency graph from "from" and reports whether it
// can reach taskID, which would close a cycle once the new edge is added.
func (g *Gate) wouldCycle(ctx context.Context, q store.DBTX, taskID, from string) (bool, error) {
	stack := []string{from}
	visited := make(map[string]bool)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == taskID {
			return true, nil
		}
		if visited[n] {
			continue
		}
		visited[n] = true

		deps, err := g.store.DependencyIDs(ctx, q, n)
		if err != nil {
			return false, err
		}
		stack = append(stack, deps...)
	}
	return false, nil
}
