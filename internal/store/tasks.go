package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateStage inserts a stage row.
func (s *Store) CreateStage(ctx context.Context, q DBTX, st *Stage) error {
	if st.CreatedAt == 0 {
		st.CreatedAt = time.Now().UnixMilli()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO stages (id, project_id, name, position, created_at) VALUES (?, ?, ?, ?, ?)`,
		st.ID, st.ProjectID, st.Name, st.Position, st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create stage: %w", err)
	}
	return nil
}

// GetStage retrieves a stage by ID. Returns nil if not found.
func (s *Store) GetStage(ctx context.Context, q DBTX, id string) (*Stage, error) {
	st := &Stage{}
	err := q.QueryRowContext(ctx,
		`SELECT id, project_id, name, position, created_at FROM stages WHERE id = ?`, id,
	).Scan(&st.ID, &st.ProjectID, &st.Name, &st.Position, &st.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	return st, nil
}

// CreateTask inserts a task row.
func (s *Store) CreateTask(ctx context.Context, q DBTX, t *Task) error {
	now := time.Now().UnixMilli()
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	if t.UpdatedAt == 0 {
		t.UpdatedAt = now
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO tasks (id, stage_id, title, description, estimated_hours, daily_hours,
		 status, task_type, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.StageID, t.Title, t.Description, t.EstimatedHours, t.DailyHours,
		string(t.Status), string(t.Type), t.Position, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns nil if not found.
func (s *Store) GetTask(ctx context.Context, q DBTX, id string) (*Task, error) {
	t := &Task{}
	err := q.QueryRowContext(ctx,
		`SELECT id, stage_id, title, description, estimated_hours, daily_hours,
		 status, task_type, position, created_at, updated_at
		 FROM tasks WHERE id = ?`, id,
	).Scan(&t.ID, &t.StageID, &t.Title, &t.Description, &t.EstimatedHours, &t.DailyHours,
		&t.Status, &t.Type, &t.Position, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// UpdateTaskStatus updates a task's status and updated_at.
func (s *Store) UpdateTaskStatus(ctx context.Context, q DBTX, id string, status TaskStatus) error {
	res, err := q.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// CreateDependency inserts a dependency edge.
func (s *Store) CreateDependency(ctx context.Context, q DBTX, taskID, dependsOnTaskID string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO task_dependencies (task_id, depends_on_task_id, created_at) VALUES (?, ?, ?)`,
		taskID, dependsOnTaskID, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create dependency: %w", err)
	}
	return nil
}

// ListDependencies returns the tasks the given task depends on, with their
// current status.
func (s *Store) ListDependencies(ctx context.Context, q DBTX, taskID string) ([]DependencyTask, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT t.id, t.title, t.status
		 FROM task_dependencies d
		 JOIN tasks t ON t.id = d.depends_on_task_id
		 WHERE d.task_id = ?
		 ORDER BY t.position, t.id`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependencies: %w", err)
	}
	defer rows.Close()

	var deps []DependencyTask
	for rows.Next() {
		var d DependencyTask
		if err := rows.Scan(&d.ID, &d.Title, &d.Status); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}
	return deps, nil
}

// DependencyIDs returns the IDs of the tasks the given task directly
// depends on. Used by the cycle walk at edge-insert time.
func (s *Store) DependencyIDs(ctx context.Context, q DBTX, taskID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT depends_on_task_id FROM task_dependencies WHERE task_id = ?`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependency ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan dependency id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependency ids: %w", err)
	}
	return ids, nil
}

// InsertStatusChange appends a row to the status audit trail.
func (s *Store) InsertStatusChange(ctx context.Context, q DBTX, c *StatusChange) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO status_changes (id, task_id, from_status, to_status, changed_by, role, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TaskID, string(c.FromStatus), string(c.ToStatus), c.ChangedBy, string(c.Role), c.Reason, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert status change: %w", err)
	}
	return nil
}

// ListStatusChanges returns the status audit trail for a task, oldest first.
func (s *Store) ListStatusChanges(ctx context.Context, q DBTX, taskID string) ([]StatusChange, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, task_id, from_status, to_status, changed_by, role, reason, created_at
		 FROM status_changes WHERE task_id = ? ORDER BY created_at, rowid`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list status changes: %w", err)
	}
	defer rows.Close()

	var changes []StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.ID, &c.TaskID, &c.FromStatus, &c.ToStatus, &c.ChangedBy, &c.Role, &c.Reason, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status changes: %w", err)
	}
	return changes, nil
}
