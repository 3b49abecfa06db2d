package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	f, err := os.CreateTemp("", "planor-store-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	st, err := New(f.Name(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedBasics(t *testing.T, st *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.CreateUser(ctx, st.DB(), &User{ID: "u1", Name: "Ana", Role: RoleUser, Active: true}))
	require.NoError(t, st.CreateUser(ctx, st.DB(), &User{ID: "u2", Name: "Bruno", Role: RoleSupervisor, Active: true}))
	require.NoError(t, st.CreateStage(ctx, st.DB(), &Stage{ID: "s1", ProjectID: "p1", Name: "Backend", Position: 1}))
	require.NoError(t, st.CreateTask(ctx, st.DB(), &Task{
		ID: "t1", StageID: "s1", Title: "API", EstimatedHours: 40, DailyHours: 4,
		Status: TaskNovo, Type: TypeParalela, Position: 1,
	}))
	require.NoError(t, st.CreateTask(ctx, st.DB(), &Task{
		ID: "t2", StageID: "s1", Title: "Docs", EstimatedHours: 8, DailyHours: 2,
		Status: TaskNovo, Type: TypeParalela, Position: 2,
	}))
}

func TestUsers_CreateGet(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	u, err := st.GetUser(ctx, st.DB(), "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, RoleUser, u.Role)
	assert.True(t, u.Active)

	missing, err := st.GetUser(ctx, st.DB(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUsers_SetActive(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	require.NoError(t, st.SetUserActive(ctx, st.DB(), "u1", false))
	u, err := st.GetUser(ctx, st.DB(), "u1")
	require.NoError(t, err)
	assert.False(t, u.Active)
}

func TestTasks_CreateGetUpdateStatus(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	task, err := st.GetTask(ctx, st.DB(), "t1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, TaskNovo, task.Status)
	assert.Equal(t, TypeParalela, task.Type)

	require.NoError(t, st.UpdateTaskStatus(ctx, st.DB(), "t1", TaskEmDesenvolvimento))
	task, err = st.GetTask(ctx, st.DB(), "t1")
	require.NoError(t, err)
	assert.Equal(t, TaskEmDesenvolvimento, task.Status)
}

func TestDependencies_ListAndIDs(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	require.NoError(t, st.CreateDependency(ctx, st.DB(), "t2", "t1"))

	deps, err := st.ListDependencies(ctx, st.DB(), "t2")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "t1", deps[0].ID)
	assert.Equal(t, "API", deps[0].Title)
	assert.Equal(t, TaskNovo, deps[0].Status)

	ids, err := st.DependencyIDs(ctx, st.DB(), "t2")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids)
}

func TestAssignments_SumExcludesCompletedTasks(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	require.NoError(t, st.CreateAssignment(ctx, st.DB(), &Assignment{TaskID: "t1", UserID: "u1", DailyHours: 4}))
	require.NoError(t, st.CreateAssignment(ctx, st.DB(), &Assignment{TaskID: "t2", UserID: "u1", DailyHours: 2}))

	sum, err := st.SumAssignedHours(ctx, st.DB(), "u1", "")
	require.NoError(t, err)
	assert.InDelta(t, 6.0, sum, 1e-9)

	// Completed tasks stop counting toward the budget.
	require.NoError(t, st.UpdateTaskStatus(ctx, st.DB(), "t2", TaskConcluido))
	sum, err = st.SumAssignedHours(ctx, st.DB(), "u1", "")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, sum, 1e-9)

	// Excluding the task under edit removes its current commitment.
	sum, err = st.SumAssignedHours(ctx, st.DB(), "u1", "t1")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sum, 1e-9)
}

func TestAssignments_Delete(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	require.NoError(t, st.CreateAssignment(ctx, st.DB(), &Assignment{TaskID: "t1", UserID: "u1", DailyHours: 4}))

	deleted, err := st.DeleteAssignment(ctx, st.DB(), "t1", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = st.DeleteAssignment(ctx, st.DB(), "t1", "u1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAllocations_Overlap(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	base := &Allocation{
		ID: "a1", UserID: "u1", TaskID: "t1", Date: "2024-06-03",
		StartMinute: 9 * 60, EndMinute: 10 * 60, DurationMinutes: 60,
	}
	require.NoError(t, st.CreateAllocation(ctx, st.DB(), base))

	// 09:30-10:30 intersects 09:00-10:00.
	hits, err := st.ListOverlapping(ctx, st.DB(), "u1", "2024-06-03", 9*60+30, 10*60+30, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a1", hits[0].ID)

	// Touching boundaries do not overlap.
	hits, err = st.ListOverlapping(ctx, st.DB(), "u1", "2024-06-03", 10*60, 11*60, "")
	require.NoError(t, err)
	assert.Empty(t, hits)

	// The row under edit is excluded from its own scan.
	hits, err = st.ListOverlapping(ctx, st.DB(), "u1", "2024-06-03", 9*60, 10*60, "a1")
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Another user's calendar is unaffected.
	hits, err = st.ListOverlapping(ctx, st.DB(), "u2", "2024-06-03", 9*60, 10*60, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestAllocations_SumAndRange(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	require.NoError(t, st.CreateAllocation(ctx, st.DB(), &Allocation{
		ID: "a1", UserID: "u1", TaskID: "t1", Date: "2024-06-03",
		StartMinute: 540, EndMinute: 600, DurationMinutes: 60,
	}))
	require.NoError(t, st.CreateAllocation(ctx, st.DB(), &Allocation{
		ID: "a2", UserID: "u1", TaskID: "t2", Date: "2024-06-04",
		StartMinute: 540, EndMinute: 660, DurationMinutes: 120,
	}))

	total, err := st.SumAllocatedMinutes(ctx, st.DB(), "u1", "2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, 60, total)

	allocs, err := st.ListAllocations(ctx, st.DB(), "u1", "2024-06-03", "2024-06-04")
	require.NoError(t, err)
	assert.Len(t, allocs, 2)

	allocs, err = st.ListAllocations(ctx, st.DB(), "u1", "2024-06-04", "2024-06-04")
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, "a2", allocs[0].ID)
}

func TestUnallocatedTasks(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	require.NoError(t, st.CreateAssignment(ctx, st.DB(), &Assignment{TaskID: "t1", UserID: "u1", DailyHours: 4}))
	require.NoError(t, st.CreateAssignment(ctx, st.DB(), &Assignment{TaskID: "t2", UserID: "u1", DailyHours: 2}))

	tasks, err := st.ListUnallocatedTasks(ctx, st.DB(), "u1")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	require.NoError(t, st.CreateAllocation(ctx, st.DB(), &Allocation{
		ID: "a1", UserID: "u1", TaskID: "t1", Date: "2024-06-03",
		StartMinute: 540, EndMinute: 600, DurationMinutes: 60,
	}))

	tasks, err = st.ListUnallocatedTasks(ctx, st.DB(), "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t2", tasks[0].ID)
}

func TestSessions_ActiveLookup(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	ws := &Session{
		ID: "w1", TaskID: "t1", UserID: "u1", Date: "2024-06-03",
		Status: SessionRunning, StartedAt: 1717401600000,
	}
	require.NoError(t, st.CreateSession(ctx, st.DB(), ws))

	active, err := st.GetActiveSession(ctx, st.DB(), "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "w1", active.ID)

	ws.Status = SessionStopped
	ws.EndedAt = 1717405200000
	ws.DurationSeconds = 3600
	require.NoError(t, st.UpdateSession(ctx, st.DB(), ws))

	active, err = st.GetActiveSession(ctx, st.DB(), "u1")
	require.NoError(t, err)
	assert.Nil(t, active)

	got, err := st.GetSession(ctx, st.DB(), "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), got.DurationSeconds)
	assert.Equal(t, SessionStopped, got.Status)
}

func TestSessions_Filters(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	mk := func(id, userID, date string) {
		require.NoError(t, st.CreateSession(ctx, st.DB(), &Session{
			ID: id, TaskID: "t1", UserID: userID, Date: date,
			Status: SessionStopped, StartedAt: 1717401600000, EndedAt: 1717402600000,
		}))
	}
	mk("w1", "u1", "2024-06-03")
	mk("w2", "u1", "2024-06-04")
	mk("w3", "u2", "2024-06-03")

	all, err := st.ListTaskSessions(ctx, st.DB(), "t1", SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byUser, err := st.ListTaskSessions(ctx, st.DB(), "t1", SessionFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byBoth, err := st.ListTaskSessions(ctx, st.DB(), "t1", SessionFilter{UserID: "u1", Date: "2024-06-03"})
	require.NoError(t, err)
	require.Len(t, byBoth, 1)
	assert.Equal(t, "w1", byBoth[0].ID)

	userDay, err := st.ListUserSessions(ctx, st.DB(), "u1", "2024-06-03")
	require.NoError(t, err)
	require.Len(t, userDay, 1)
	assert.Equal(t, "w1", userDay[0].ID)
}

func TestStatusChanges(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	require.NoError(t, st.InsertStatusChange(ctx, st.DB(), &StatusChange{
		ID: "c1", TaskID: "t1", FromStatus: TaskNovo, ToStatus: TaskEmDesenvolvimento,
		ChangedBy: "u1", Role: RoleUser,
	}))

	changes, err := st.ListStatusChanges(ctx, st.DB(), "t1")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, TaskNovo, changes[0].FromStatus)
	assert.Equal(t, TaskEmDesenvolvimento, changes[0].ToStatus)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()
	seedBasics(t, st)

	err := st.WithTx(ctx, func(tx *sql.Tx) error {
		if err := st.CreateAssignment(ctx, tx, &Assignment{TaskID: "t1", UserID: "u1", DailyHours: 4}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	a, err := st.GetAssignment(ctx, st.DB(), "t1", "u1")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestSetTxMaxAttempts(t *testing.T) {
	st := tempStore(t)

	st.SetTxMaxAttempts(5)
	assert.Equal(t, 5, st.retryCfg.MaxAttempts)

	// Non-positive values keep the current setting.
	st.SetTxMaxAttempts(0)
	assert.Equal(t, 5, st.retryCfg.MaxAttempts)
	st.SetTxMaxAttempts(-1)
	assert.Equal(t, 5, st.retryCfg.MaxAttempts)
}
