// Package store owns all persistent state for the workload core. Every
// validation re-reads current aggregates from here; no authoritative state
// lives in memory between requests.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/planor-io/planor/internal/retry"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so that query methods can
// run standalone or inside an enclosing transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store manages the SQLite database.
type Store struct {
	db       *sql.DB
	logger   zerolog.Logger
	retryCfg retry.Config
}

// New opens (or creates) the SQLite database and runs migrations.
// Transactions are opened with an immediate write lock so that a
// read-then-write validation cannot interleave with another writer's commit.
func New(dbPath string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:       db,
		logger:   logger.With().Str("component", "store").Logger(),
		retryCfg: retry.DefaultConfig(),
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	s.logger.Info().Msg("store initialized")
	return s, nil
}

// SetTxMaxAttempts overrides how often WithTx retries a busy transaction.
// Non-positive values keep the default.
func (s *Store) SetTxMaxAttempts(n int) {
	if n > 0 {
		s.retryCfg.MaxAttempts = n
	}
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database connection for read-only queries
// outside a transaction.
func (s *Store) DB() DBTX {
	return s.db
}

// WithTx runs fn inside a single write transaction. Transient busy/locked
// failures are retried with backoff; domain errors roll back immediately
// and are returned as-is.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}
