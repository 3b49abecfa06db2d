package budget

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

func newTestValidator(t *testing.T) (*Validator, *store.Store) {
	t.Helper()
	f, err := os.CreateTemp("", "planor-budget-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	st, err := store.New(f.Name(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewValidator(st, zerolog.Nop()), st
}

func seedCommitments(t *testing.T, st *store.Store, hours map[string]float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.CreateUser(ctx, st.DB(), &store.User{ID: "u1", Name: "Ana", Role: store.RoleUser, Active: true}))
	require.NoError(t, st.CreateStage(ctx, st.DB(), &store.Stage{ID: "s1", ProjectID: "p1", Name: "Backend", Position: 1}))

	pos := 0
	for taskID, h := range hours {
		pos++
		require.NoError(t, st.CreateTask(ctx, st.DB(), &store.Task{
			ID: taskID, StageID: "s1", Title: taskID, EstimatedHours: 40, DailyHours: h,
			Status: store.TaskEmDesenvolvimento, Type: store.TypeParalela, Position: pos,
		}))
		require.NoError(t, st.CreateAssignment(ctx, st.DB(), &store.Assignment{
			TaskID: taskID, UserID: "u1", DailyHours: h,
		}))
	}
}

func TestCheck_RejectsOverCeiling(t *testing.T) {
	v, st := newTestValidator(t)
	seedCommitments(t, st, map[string]float64{"t1": 4, "t2": 2})

	// 6h committed; 3 more would make 9.
	res, err := v.Check(context.Background(), nil, "u1", "", 3)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.InDelta(t, 6.0, res.CurrentHours, 1e-9)
	assert.InDelta(t, 9.0, res.TotalHours, 1e-9)
	assert.InDelta(t, 2.0, res.AvailableHours, 1e-9)
}

func TestCheck_AcceptsExactCeiling(t *testing.T) {
	v, st := newTestValidator(t)
	seedCommitments(t, st, map[string]float64{"t1": 4, "t2": 2})

	res, err := v.Check(context.Background(), nil, "u1", "", 2)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.InDelta(t, 8.0, res.TotalHours, 1e-9)
}

func TestCheck_ExcludesTaskUnderEdit(t *testing.T) {
	v, st := newTestValidator(t)
	seedCommitments(t, st, map[string]float64{"t1": 4, "t2": 2})

	// Raising t1 from 4 to 6 against the other 2h commitment is fine.
	res, err := v.Check(context.Background(), nil, "u1", "t1", 6)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.InDelta(t, 2.0, res.CurrentHours, 1e-9)
	assert.InDelta(t, 8.0, res.TotalHours, 1e-9)
}

func TestCheck_CompletedTasksDoNotCount(t *testing.T) {
	v, st := newTestValidator(t)
	seedCommitments(t, st, map[string]float64{"t1": 4, "t2": 4})

	require.NoError(t, st.UpdateTaskStatus(context.Background(), st.DB(), "t2", store.TaskConcluido))

	res, err := v.Check(context.Background(), nil, "u1", "", 4)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.InDelta(t, 4.0, res.CurrentHours, 1e-9)
}

func TestCheck_FractionalHoursValidity(t *testing.T) {
	v, st := newTestValidator(t)
	seedCommitments(t, st, map[string]float64{"t1": 7.5})

	res, err := v.Check(context.Background(), nil, "u1", "", 0.5)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = v.Check(context.Background(), nil, "u1", "", 0.51)
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestLimitError(t *testing.T) {
	err := LimitError("u1", &Result{
		Valid: false, CurrentHours: 6, ProposedHours: 3, TotalHours: 9, AvailableHours: 2,
	})
	assert.True(t, perrors.IsKind(err, perrors.KindDailyLimit))

	detail, ok := err.Details.(LimitDetail)
	require.True(t, ok)
	assert.Equal(t, "u1", detail.UserID)
	assert.InDelta(t, 2.0, detail.AvailableHours, 1e-9)
	assert.InDelta(t, 3.0, detail.RequestedHours, 1e-9)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 2.67, Round2(2.666666))
	assert.Equal(t, 8.0, Round2(8.004))
	assert.Equal(t, 0.0, Round2(0))
}
