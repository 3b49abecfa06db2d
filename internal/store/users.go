package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateUser inserts a user row.
func (s *Store) CreateUser(ctx context.Context, q DBTX, u *User) error {
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().UnixMilli()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (id, name, role, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, string(u.Role), boolToInt(u.Active), u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID. Returns nil if not found.
func (s *Store) GetUser(ctx context.Context, q DBTX, id string) (*User, error) {
	u := &User{}
	var active int
	err := q.QueryRowContext(ctx,
		`SELECT id, name, role, active, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Role, &active, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Active = active != 0
	return u, nil
}

// SetUserActive flips the activation flag, the only user field the core writes.
func (s *Store) SetUserActive(ctx context.Context, q DBTX, id string, active bool) error {
	res, err := q.ExecContext(ctx, `UPDATE users SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
