package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateAllocation inserts an allocation row.
func (s *Store) CreateAllocation(ctx context.Context, q DBTX, a *Allocation) error {
	now := time.Now().UnixMilli()
	if a.CreatedAt == 0 {
		a.CreatedAt = now
	}
	if a.UpdatedAt == 0 {
		a.UpdatedAt = now
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO calendar_allocations
		 (id, user_id, task_id, allocation_date, start_minute, end_minute, duration_minutes, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.TaskID, a.Date, a.StartMinute, a.EndMinute, a.DurationMinutes, a.Notes, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create allocation: %w", err)
	}
	return nil
}

// GetAllocation retrieves an allocation by ID. Returns nil if not found.
func (s *Store) GetAllocation(ctx context.Context, q DBTX, id string) (*Allocation, error) {
	a := &Allocation{}
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, task_id, allocation_date, start_minute, end_minute, duration_minutes, notes, created_at, updated_at
		 FROM calendar_allocations WHERE id = ?`, id,
	).Scan(&a.ID, &a.UserID, &a.TaskID, &a.Date, &a.StartMinute, &a.EndMinute, &a.DurationMinutes, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}
	return a, nil
}

// UpdateAllocation rewrites the mutable fields of an allocation.
func (s *Store) UpdateAllocation(ctx context.Context, q DBTX, a *Allocation) error {
	res, err := q.ExecContext(ctx,
		`UPDATE calendar_allocations
		 SET allocation_date = ?, start_minute = ?, end_minute = ?, duration_minutes = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		a.Date, a.StartMinute, a.EndMinute, a.DurationMinutes, a.Notes, time.Now().UnixMilli(), a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update allocation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("allocation not found: %s", a.ID)
	}
	return nil
}

// DeleteAllocation removes an allocation row. Returns false if no row existed.
func (s *Store) DeleteAllocation(ctx context.Context, q DBTX, allocID string) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM calendar_allocations WHERE id = ?`, allocID)
	if err != nil {
		return false, fmt.Errorf("failed to delete allocation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListOverlapping returns allocations for (user, date) whose [start,end)
// interval intersects [startMinute, endMinute), excluding excludeID (pass ""
// on create).
func (s *Store) ListOverlapping(ctx context.Context, q DBTX, userID, date string, startMinute, endMinute int, excludeID string) ([]Allocation, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, task_id, allocation_date, start_minute, end_minute, duration_minutes, notes, created_at, updated_at
		 FROM calendar_allocations
		 WHERE user_id = ? AND allocation_date = ?
		   AND start_minute < ? AND end_minute > ?
		   AND id != ?
		 ORDER BY start_minute`,
		userID, date, endMinute, startMinute, excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlaps: %w", err)
	}
	defer rows.Close()
	return scanAllocations(rows)
}

// ListAllocations returns a user's allocations in the inclusive date range.
func (s *Store) ListAllocations(ctx context.Context, q DBTX, userID, from, to string) ([]Allocation, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, task_id, allocation_date, start_minute, end_minute, duration_minutes, notes, created_at, updated_at
		 FROM calendar_allocations
		 WHERE user_id = ? AND allocation_date >= ? AND allocation_date <= ?
		 ORDER BY allocation_date, start_minute`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()
	return scanAllocations(rows)
}

// SumAllocatedMinutes returns the total allocated minutes for (user, date).
func (s *Store) SumAllocatedMinutes(ctx context.Context, q DBTX, userID, date string) (int, error) {
	var sum int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration_minutes), 0)
		 FROM calendar_allocations WHERE user_id = ? AND allocation_date = ?`,
		userID, date,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum allocated minutes: %w", err)
	}
	return sum, nil
}

// ListUnallocatedTasks returns the user's assigned, still-active tasks that
// have no calendar allocation for that user at all.
func (s *Store) ListUnallocatedTasks(ctx context.Context, q DBTX, userID string) ([]Task, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT t.id, t.stage_id, t.title, t.description, t.estimated_hours, t.daily_hours,
		        t.status, t.task_type, t.position, t.created_at, t.updated_at
		 FROM task_assignments a
		 JOIN tasks t ON t.id = a.task_id
		 WHERE a.user_id = ?
		   AND t.status NOT IN ('concluido', 'cancelado')
		   AND NOT EXISTS (
		     SELECT 1 FROM calendar_allocations c
		     WHERE c.task_id = t.id AND c.user_id = a.user_id
		   )
		 ORDER BY t.position, t.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unallocated tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.StageID, &t.Title, &t.Description, &t.EstimatedHours, &t.DailyHours,
			&t.Status, &t.Type, &t.Position, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func scanAllocations(rows *sql.Rows) ([]Allocation, error) {
	var out []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.UserID, &a.TaskID, &a.Date, &a.StartMinute, &a.EndMinute,
			&a.DurationMinutes, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}
	return out, nil
}
