package calendar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

func TestCreateBatch_PartialSuccess(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()

	// Wednesday is already booked at the requested slot.
	_, err := s.Create(ctx, "u1", store.RoleUser, Input{
		UserID: "u1", TaskID: "t1", Date: "2024-06-05", Start: "09:00", End: "10:00",
	})
	require.NoError(t, err)

	// Monday 2024-06-03 through Friday 2024-06-07.
	res, err := s.CreateBatch(ctx, "u1", store.RoleUser, BatchInput{
		UserID: "u1", TaskID: "t1",
		StartDate: "2024-06-03", EndDate: "2024-06-07",
		Start: "09:00", End: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Created)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 5, res.Total)

	require.Len(t, res.Results, 5)
	for _, item := range res.Results {
		if item.Date == "2024-06-05" {
			assert.False(t, item.Created)
			require.NotNil(t, item.Error)
			assert.Equal(t, string(perrors.KindOverlap), item.Error.Kind)
		} else {
			assert.True(t, item.Created, "date %s", item.Date)
			require.NotNil(t, item.Allocation)
		}
	}
}

func TestCreateBatch_SkipWeekends(t *testing.T) {
	s, _ := newTestScheduler(t)

	// Friday 2024-06-07 through Monday 2024-06-10.
	res, err := s.CreateBatch(context.Background(), "u1", store.RoleUser, BatchInput{
		UserID: "u1", TaskID: "t1",
		StartDate: "2024-06-07", EndDate: "2024-06-10",
		Start: "09:00", End: "10:00",
		SkipWeekends: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Created)

	dates := []string{res.Results[0].Date, res.Results[1].Date}
	assert.Equal(t, []string{"2024-06-07", "2024-06-10"}, dates)
}

func TestCreateBatch_UpFrontValidation(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx := context.Background()

	_, err := s.CreateBatch(ctx, "u1", store.RoleUser, BatchInput{
		UserID: "u1", TaskID: "t1",
		StartDate: "2024-06-07", EndDate: "2024-06-03",
		Start: "09:00", End: "10:00",
	})
	assert.True(t, perrors.IsKind(err, perrors.KindValidation))

	_, err = s.CreateBatch(ctx, "u1", store.RoleUser, BatchInput{
		UserID: "u1", TaskID: "t1",
		StartDate: "2024-06-03", EndDate: "2024-06-04",
		Start: "10:00", End: "09:00",
	})
	assert.True(t, perrors.IsKind(err, perrors.KindValidation))
}

func TestCreateBatch_OwnershipGate(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.CreateBatch(context.Background(), "u2", store.RoleUser, BatchInput{
		UserID: "u1", TaskID: "t1",
		StartDate: "2024-06-03", EndDate: "2024-06-04",
		Start: "09:00", End: "10:00",
	})
	assert.True(t, perrors.IsKind(err, perrors.KindForbidden))
}
