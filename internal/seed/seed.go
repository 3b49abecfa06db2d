// Package seed loads bootstrap fixtures (users, stages, tasks) from YAML.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/planor-io/planor/internal/store"
)

// Fixture is the root of a seed file.
type Fixture struct {
	Users []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
		Role string `yaml:"role"`
	} `yaml:"users"`
	Stages []struct {
		ID        string `yaml:"id"`
		ProjectID string `yaml:"project_id"`
		Name      string `yaml:"name"`
		Position  int    `yaml:"position"`
	} `yaml:"stages"`
	Tasks []struct {
		ID             string   `yaml:"id"`
		StageID        string   `yaml:"stage_id"`
		Title          string   `yaml:"title"`
		Description    string   `yaml:"description"`
		EstimatedHours float64  `yaml:"estimated_hours"`
		DailyHours     float64  `yaml:"daily_hours"`
		Status         string   `yaml:"status"`
		Type           string   `yaml:"task_type"`
		Position       int      `yaml:"position"`
		DependsOn      []string `yaml:"depends_on"`
	} `yaml:"tasks"`
	Assignments []struct {
		TaskID     string  `yaml:"task_id"`
		UserID     string  `yaml:"user_id"`
		DailyHours float64 `yaml:"daily_hours"`
	} `yaml:"assignments"`
}

// Load parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes fixture YAML.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return &f, nil
}

// Apply inserts the fixture into the store in one transaction. Fixtures
// bypass the workload rules; they exist to bootstrap demos and tests.
func Apply(ctx context.Context, st *store.Store, f *Fixture, logger zerolog.Logger) error {
	log := logger.With().Str("component", "seed").Logger()

	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		for _, u := range f.Users {
			role := store.Role(u.Role)
			if u.Role == "" {
				role = store.RoleUser
			}
			if !role.Valid() {
				return fmt.Errorf("user %s: unknown role %q", u.ID, u.Role)
			}
			if err := st.CreateUser(ctx, tx, &store.User{ID: u.ID, Name: u.Name, Role: role, Active: true}); err != nil {
				return err
			}
		}
		for _, sg := range f.Stages {
			if err := st.CreateStage(ctx, tx, &store.Stage{
				ID: sg.ID, ProjectID: sg.ProjectID, Name: sg.Name, Position: sg.Position,
			}); err != nil {
				return err
			}
		}
		for _, t := range f.Tasks {
			status := store.TaskStatus(t.Status)
			if t.Status == "" {
				status = store.TaskNovo
			}
			taskType := store.TaskType(t.Type)
			if t.Type == "" {
				taskType = store.TypeParalela
			}
			if !taskType.Valid() {
				return fmt.Errorf("task %s: unknown task type %q", t.ID, t.Type)
			}
			if err := st.CreateTask(ctx, tx, &store.Task{
				ID:             t.ID,
				StageID:        t.StageID,
				Title:          t.Title,
				Description:    t.Description,
				EstimatedHours: t.EstimatedHours,
				DailyHours:     t.DailyHours,
				Status:         status,
				Type:           taskType,
				Position:       t.Position,
			}); err != nil {
				return err
			}
		}
		for _, t := range f.Tasks {
			for _, depID := range t.DependsOn {
				if err := st.CreateDependency(ctx, tx, t.ID, depID); err != nil {
					return err
				}
			}
		}
		for _, a := range f.Assignments {
			if err := st.CreateAssignment(ctx, tx, &store.Assignment{
				TaskID: a.TaskID, UserID: a.UserID, DailyHours: a.DailyHours,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("users", len(f.Users)).
		Int("stages", len(f.Stages)).
		Int("tasks", len(f.Tasks)).
		Int("assignments", len(f.Assignments)).
		Msg("seed applied")

	return nil
}
