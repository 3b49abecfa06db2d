package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		role       TEXT NOT NULL DEFAULT 'user',
		active     INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stages (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name       TEXT NOT NULL,
		position   INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stages_project ON stages(project_id);

	CREATE TABLE IF NOT EXISTS tasks (
		id              TEXT PRIMARY KEY,
		stage_id        TEXT NOT NULL REFERENCES stages(id),
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		estimated_hours REAL NOT NULL,
		daily_hours     REAL NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'novo',
		task_type       TEXT NOT NULL DEFAULT 'paralela',
		position        INTEGER NOT NULL DEFAULT 0,
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_stage ON tasks(stage_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		task_id            TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		depends_on_task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		created_at         INTEGER NOT NULL,
		PRIMARY KEY (task_id, depends_on_task_id)
	);

	CREATE INDEX IF NOT EXISTS idx_deps_depends_on ON task_dependencies(depends_on_task_id);

	CREATE TABLE IF NOT EXISTS task_assignments (
		task_id     TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		user_id     TEXT NOT NULL REFERENCES users(id),
		daily_hours REAL NOT NULL,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL,
		PRIMARY KEY (task_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_user ON task_assignments(user_id);

	CREATE TABLE IF NOT EXISTS calendar_allocations (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id),
		task_id          TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		allocation_date  TEXT NOT NULL,
		start_minute     INTEGER NOT NULL,
		end_minute       INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		notes            TEXT NOT NULL DEFAULT '',
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alloc_user_date ON calendar_allocations(user_id, allocation_date);
	CREATE INDEX IF NOT EXISTS idx_alloc_task ON calendar_allocations(task_id);

	CREATE TABLE IF NOT EXISTS work_sessions (
		id               TEXT PRIMARY KEY,
		task_id          TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		user_id          TEXT NOT NULL REFERENCES users(id),
		session_date     TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'running',
		started_at       INTEGER NOT NULL,
		ended_at         INTEGER,
		paused_at        INTEGER,
		resumed_at       INTEGER,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		paused_seconds   INTEGER NOT NULL DEFAULT 0,
		pause_count      INTEGER NOT NULL DEFAULT 0,
		notes            TEXT NOT NULL DEFAULT '',
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_date ON work_sessions(user_id, session_date);
	CREATE INDEX IF NOT EXISTS idx_sessions_task ON work_sessions(task_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_status ON work_sessions(user_id, status);

	CREATE TABLE IF NOT EXISTS status_changes (
		id          TEXT PRIMARY KEY,
		task_id     TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		from_status TEXT NOT NULL,
		to_status   TEXT NOT NULL,
		changed_by  TEXT NOT NULL,
		role        TEXT NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_status_changes_task ON status_changes(task_id, created_at);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}

	return nil
}
