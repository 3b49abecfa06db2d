package store

// Role is the access level of a user.
type Role string

const (
	RoleUser       Role = "user"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleSupervisor || r == RoleAdmin
}

// Elevated reports whether r is supervisor or admin.
func (r Role) Elevated() bool {
	return r == RoleSupervisor || r == RoleAdmin
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskNovo              TaskStatus = "novo"
	TaskEmDesenvolvimento TaskStatus = "em_desenvolvimento"
	TaskAnaliseTecnica    TaskStatus = "analise_tecnica"
	TaskConcluido         TaskStatus = "concluido"
	TaskRefaca            TaskStatus = "refaca"

	// TaskCancelado is set by the external CRUD layer when a task is
	// cancelled. The workload core only ever reads it.
	TaskCancelado TaskStatus = "cancelado"
)

// Active reports whether the task still counts toward a user's daily budget.
func (s TaskStatus) Active() bool {
	return s != TaskConcluido && s != TaskCancelado
}

// TaskType controls how the dependency gate treats a task.
type TaskType string

const (
	TypeParalela    TaskType = "paralela"
	TypeNaoParalela TaskType = "nao_paralela"
	TypeFixa        TaskType = "fixa"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	return t == TypeParalela || t == TypeNaoParalela || t == TypeFixa
}

// AllowsDependencies reports whether tasks of this type may carry
// dependency edges at all.
func (t TaskType) AllowsDependencies() bool {
	return t == TypeNaoParalela || t == TypeFixa
}

// SessionStatus is the state of a work session.
type SessionStatus string

const (
	SessionRunning SessionStatus = "running"
	SessionPaused  SessionStatus = "paused"
	SessionStopped SessionStatus = "stopped"
)

// User is a worker identity. Created and destroyed by the external CRUD
// layer; the core only reads it.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"created_at"`
}

// Stage groups tasks; dependency edges never cross stages.
type Stage struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	CreatedAt int64  `json:"created_at"`
}

// Task is a unit of work inside a stage.
type Task struct {
	ID             string     `json:"id"`
	StageID        string     `json:"stage_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	EstimatedHours float64    `json:"estimated_hours"`
	DailyHours     float64    `json:"daily_hours"`
	Status         TaskStatus `json:"status"`
	Type           TaskType   `json:"task_type"`
	Position       int        `json:"position"`
	CreatedAt      int64      `json:"created_at"`
	UpdatedAt      int64      `json:"updated_at"`
}

// DependencyTask is a dependency edge joined with the referenced task.
type DependencyTask struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status TaskStatus `json:"status"`
}

// Assignment commits a user to a task for daily_hours per day.
type Assignment struct {
	TaskID     string  `json:"task_id"`
	UserID     string  `json:"user_id"`
	DailyHours float64 `json:"daily_hours"`
	CreatedAt  int64   `json:"created_at"`
	UpdatedAt  int64   `json:"updated_at"`
}

// Allocation is a concrete time box of a task on a user's calendar day.
// Times of day are minutes since midnight.
type Allocation struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	TaskID          string `json:"task_id"`
	Date            string `json:"date"` // YYYY-MM-DD
	StartMinute     int    `json:"start_minute"`
	EndMinute       int    `json:"end_minute"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// Session is one work interval instance. Instants are unix milliseconds;
// zero means unset. DurationSeconds and PausedSeconds are checkpoints
// written at state transitions, never live clocks.
type Session struct {
	ID              string        `json:"id"`
	TaskID          string        `json:"task_id"`
	UserID          string        `json:"user_id"`
	Date            string        `json:"date"` // YYYY-MM-DD, derived from StartedAt
	Status          SessionStatus `json:"status"`
	StartedAt       int64         `json:"started_at"`
	EndedAt         int64         `json:"ended_at,omitempty"`
	PausedAt        int64         `json:"paused_at,omitempty"`
	ResumedAt       int64         `json:"resumed_at,omitempty"`
	DurationSeconds int64         `json:"duration_total_seconds"`
	PausedSeconds   int64         `json:"paused_total_seconds"`
	PauseCount      int           `json:"pause_count"`
	Notes           string        `json:"notes"`
	CreatedAt       int64         `json:"created_at"`
	UpdatedAt       int64         `json:"updated_at"`
}

// StatusChange records one accepted task status transition.
type StatusChange struct {
	ID         string     `json:"id"`
	TaskID     string     `json:"task_id"`
	FromStatus TaskStatus `json:"from_status"`
	ToStatus   TaskStatus `json:"to_status"`
	ChangedBy  string     `json:"changed_by"`
	Role       Role       `json:"role"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  int64      `json:"created_at"`
}
