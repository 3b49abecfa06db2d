package assignment

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planor-io/planor/internal/budget"
	"github.com/planor-io/planor/internal/depgate"
	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	f, err := os.CreateTemp("", "planor-assign-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	st, err := store.New(f.Name(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	validator := budget.NewValidator(st, zerolog.Nop())
	gate := depgate.NewGate(st, zerolog.Nop())
	return NewService(st, validator, gate, zerolog.Nop()), st
}

func seedWorld(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.CreateUser(ctx, st.DB(), &store.User{ID: "u1", Name: "Ana", Role: store.RoleUser, Active: true}))
	require.NoError(t, st.CreateUser(ctx, st.DB(), &store.User{ID: "u2", Name: "Bruno", Role: store.RoleUser, Active: true}))
	require.NoError(t, st.CreateUser(ctx, st.DB(), &store.User{ID: "u3", Name: "Carla", Role: store.RoleUser, Active: false}))
	require.NoError(t, st.CreateStage(ctx, st.DB(), &store.Stage{ID: "s1", ProjectID: "p1", Name: "Backend", Position: 1}))
	require.NoError(t, st.CreateTask(ctx, st.DB(), &store.Task{
		ID: "t1", StageID: "s1", Title: "API", EstimatedHours: 40, DailyHours: 4,
		Status: store.TaskNovo, Type: store.TypeParalela, Position: 1,
	}))
	require.NoError(t, st.CreateTask(ctx, st.DB(), &store.Task{
		ID: "t2", StageID: "s1", Title: "Docs", EstimatedHours: 16, DailyHours: 2,
		Status: store.TaskNovo, Type: store.TypeParalela, Position: 2,
	}))
}

func TestAssignUsers_PartialSuccess(t *testing.T) {
	svc, st := newTestService(t)
	seedWorld(t, st)
	ctx := context.Background()

	// u1 is already at 6h; 3 more must fail while u2 succeeds.
	require.NoError(t, st.CreateAssignment(ctx, st.DB(), &store.Assignment{TaskID: "t2", UserID: "u1", DailyHours: 6}))

	res, err := svc.AssignUsers(ctx, "t1", store.RoleSupervisor, []Request{
		{UserID: "u1", DailyHours: 3},
		{UserID: "u2", DailyHours: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Assigned)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Total)

	require.Len(t, res.Results, 2)
	first, second := res.Results[0], res.Results[1]
	assert.False(t, first.Assigned)
	require.NotNil(t, first.Error)
	assert.Equal(t, string(perrors.KindDailyLimit), first.Error.Kind)
	assert.True(t, second.Assigned)
	require.NotNil(t, second.Budget)
	assert.True(t, second.Budget.Valid)

	// Only the successful edge was written.
	a, err := st.GetAssignment(ctx, st.DB(), "t1", "u1")
	require.NoError(t, err)
	assert.Nil(t, a)
	a, err = st.GetAssignment(ctx, st.DB(), "t1", "u2")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.InDelta(t, 4.0, a.DailyHours, 1e-9)
}

func TestAssignUsers_RequiresElevatedRole(t *testing.T) {
	svc, st := newTestService(t)
	seedWorld(t, st)

	_, err := svc.AssignUsers(context.Background(), "t1", store.RoleUser, []Request{{UserID: "u1", DailyHours: 2}})
	assert.True(t, perrors.IsKind(err, perrors.KindForbidden))
}

func TestAssignUsers_BlockedByDependencies(t *testing.T) {
	svc, st := newTestService(t)
	seedWorld(t, st)
	ctx := context.Background()

	require.NoError(t, st.CreateTask(ctx, st.DB(), &store.Task{
		ID: "t3", StageID: "s1", Title: "Deploy", EstimatedHours: 8, DailyHours: 2,
		Status: store.TaskNovo, Type: store.TypeNaoParalela, Position: 3,
	}))
	require.NoError(t, st.CreateDependency(ctx, st.DB(), "t3", "t1"))

	_, err := svc.AssignUsers(ctx, "t3", store.RoleAdmin, []Request{{UserID: "u1", DailyHours: 2}})
	require.Error(t, err)
	assert.True(t, perrors.IsKind(err, perrors.KindBlockedByDeps))

	// Completing the dependency opens the gate.
	require.NoError(t, st.UpdateTaskStatus(ctx, st.DB(), "t1", store.TaskConcluido))
	res, err := svc.AssignUsers(ctx, "t3", store.RoleAdmin, []Request{{UserID: "u1", DailyHours: 2}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Assigned)
}

func TestAssignUsers_PerUserRejections(t *testing.T) {
	svc, st := newTestService(t)
	seedWorld(t, st)
	ctx := context.Background()

	require.NoError(t, st.CreateAssignment(ctx, st.DB(), &store.Assignment{TaskID: "t1", UserID: "u2", DailyHours: 2}))

	res, err := svc.AssignUsers(ctx, "t1", store.RoleAdmin, []Request{
		{UserID: "ghost", DailyHours: 2}, // unknown user
		{UserID: "u3", DailyHours: 2},    // inactive
		{UserID: "u2", DailyHours: 2},    // duplicate
		{UserID: "u1", DailyHours: 9},    // out of range
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Assigned)
	assert.Equal(t, 4, res.Failed)

	kinds := make([]string, 0, 4)
	for _, r := range res.Results {
		require.NotNil(t, r.Error)
		kinds = append(kinds, r.Error.Kind)
	}
	assert.Equal(t, []string{
		string(perrors.KindNotFound),
		string(perrors.KindValidation),
		string(perrors.KindConflict),
		string(perrors.KindValidation),
	}, kinds)
}

func TestAssignUsers_ConcluidoTaskRejected(t *testing.T) {
	svc, st := newTestService(t)
	seedWorld(t, st)
	ctx := context.Background()

	require.NoError(t, st.UpdateTaskStatus(ctx, st.DB(), "t1", store.TaskConcluido))
	_, err := svc.AssignUsers(ctx, "t1", store.RoleAdmin, []Request{{UserID: "u1", DailyHours: 2}})
	assert.True(t, perrors.IsKind(err, perrors.KindValidation))
}

func TestUpdateHours(t *testing.T) {
	svc, st := newTestService(t)
	seedWorld(t, st)
	ctx := context.Background()

	require.NoError(t, st.CreateAssignment(ctx, st.DB(), &store.Assignment{TaskID: "t1", UserID: "u1", DailyHours: 4}))
	require.NoError(t, st.CreateAssignment(ctx, st.DB(), &store.Assignment{TaskID: "t2", UserID: "u1", DailyHours: 2}))

	// The user may adjust their own commitment; the edited task is excluded
	// from the current sum.
	check, err := svc.UpdateHours(ctx, "t1", "u1", 6, "u1", store.RoleUser)
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.InDelta(t, 8.0, check.TotalHours, 1e-9)

	a, err := st.GetAssignment(ctx, st.DB(), "t1", "u1")
	require.NoError(t, err)
	assert.InDelta(t, 6.0, a.DailyHours, 1e-9)

	// Over the remaining budget.
	_, err = svc.UpdateHours(ctx, "t1", "u1", 7, "u1", store.RoleUser)
	assert.True(t, perrors.IsKind(err, perrors.KindDailyLimit))

	// Someone else's commitment needs an elevated role.
	_, err = svc.UpdateHours(ctx, "t1", "u1", 3, "u2", store.RoleUser)
	assert.True(t, perrors.IsKind(err, perrors.KindForbidden))

	_, err = svc.UpdateHours(ctx, "t1", "u1", 3, "sup", store.RoleSupervisor)
	require.NoError(t, err)
}

func TestRemove(t *testing.T) {
	svc, st := newTestService(t)
	seedWorld(t, st)
	ctx := context.Background()

	require.NoError(t, st.CreateAssignment(ctx, st.DB(), &store.Assignment{TaskID: "t1", UserID: "u1", DailyHours: 4}))

	err := svc.Remove(ctx, "t1", "u1", store.RoleUser)
	assert.True(t, perrors.IsKind(err, perrors.KindForbidden))

	require.NoError(t, svc.Remove(ctx, "t1", "u1", store.RoleSupervisor))

	err = svc.Remove(ctx, "t1", "u1", store.RoleSupervisor)
	assert.True(t, perrors.IsKind(err, perrors.KindNotFound))
}
