package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateAssignment inserts an assignment edge.
func (s *Store) CreateAssignment(ctx context.Context, q DBTX, a *Assignment) error {
	now := time.Now().UnixMilli()
	if a.CreatedAt == 0 {
		a.CreatedAt = now
	}
	if a.UpdatedAt == 0 {
		a.UpdatedAt = now
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO task_assignments (task_id, user_id, daily_hours, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.TaskID, a.UserID, a.DailyHours, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// GetAssignment retrieves one assignment edge. Returns nil if not found.
func (s *Store) GetAssignment(ctx context.Context, q DBTX, taskID, userID string) (*Assignment, error) {
	a := &Assignment{}
	err := q.QueryRowContext(ctx,
		`SELECT task_id, user_id, daily_hours, created_at, updated_at
		 FROM task_assignments WHERE task_id = ? AND user_id = ?`, taskID, userID,
	).Scan(&a.TaskID, &a.UserID, &a.DailyHours, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// UpdateAssignmentHours changes the per-user daily commitment.
func (s *Store) UpdateAssignmentHours(ctx context.Context, q DBTX, taskID, userID string, hours float64) error {
	res, err := q.ExecContext(ctx,
		`UPDATE task_assignments SET daily_hours = ?, updated_at = ? WHERE task_id = ? AND user_id = ?`,
		hours, time.Now().UnixMilli(), taskID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("assignment not found: task %s user %s", taskID, userID)
	}
	return nil
}

// DeleteAssignment removes an assignment edge. Returns false if no row existed.
func (s *Store) DeleteAssignment(ctx context.Context, q DBTX, taskID, userID string) (bool, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM task_assignments WHERE task_id = ? AND user_id = ?`, taskID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete assignment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListTaskAssignments returns all assignment edges for a task.
func (s *Store) ListTaskAssignments(ctx context.Context, q DBTX, taskID string) ([]Assignment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT task_id, user_id, daily_hours, created_at, updated_at
		 FROM task_assignments WHERE task_id = ? ORDER BY user_id`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.TaskID, &a.UserID, &a.DailyHours, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}
	return out, nil
}

// CountTaskAssignments returns the number of assignees on a task.
func (s *Store) CountTaskAssignments(ctx context.Context, q DBTX, taskID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_assignments WHERE task_id = ?`, taskID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return n, nil
}

// SumAssignedHours returns the sum of daily_hours over a user's assignments
// whose task is still active (not concluido/cancelado), excluding
// excludeTaskID so a task being re-committed doesn't double-count its own
// prior value. Pass "" to exclude nothing.
func (s *Store) SumAssignedHours(ctx context.Context, q DBTX, userID, excludeTaskID string) (float64, error) {
	var sum float64
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(a.daily_hours), 0)
		 FROM task_assignments a
		 JOIN tasks t ON t.id = a.task_id
		 WHERE a.user_id = ?
		   AND t.status NOT IN ('concluido', 'cancelado')
		   AND a.task_id != ?`,
		userID, excludeTaskID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum assigned hours: %w", err)
	}
	return sum, nil
}
