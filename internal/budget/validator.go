// Package budget enforces the fixed daily-hour ceiling shared by all of a
// user's task commitments.
package budget

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

// DailyBudgetHours is the per-user daily ceiling shared by assignments and
// tracked session time.
const DailyBudgetHours = 8.0

// Result is the outcome of a budget check. Hour values are rounded to two
// decimals for presentation; validity is decided on the unrounded sum.
type Result struct {
	Valid          bool    `json:"valid"`
	CurrentHours   float64 `json:"current_hours"`
	ProposedHours  float64 `json:"proposed_hours"`
	TotalHours     float64 `json:"total_hours"`
	AvailableHours float64 `json:"available_hours"`
}

// LimitDetail is the structured payload attached to DAILY_LIMIT_EXCEEDED.
type LimitDetail struct {
	UserID         string  `json:"user_id"`
	CurrentHours   float64 `json:"current_hours"`
	RequestedHours float64 `json:"requested_hours"`
	AvailableHours float64 `json:"available_hours"`
}

// Validator computes committed daily hours against the ceiling. Pure reads;
// callers write only after a valid result, inside the same transaction.
type Validator struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewValidator creates a budget validator.
func NewValidator(st *store.Store, logger zerolog.Logger) *Validator {
	return &Validator{
		store:  st,
		logger: logger.With().Str("component", "budget").Logger(),
	}
}

// Check computes the user's committed hours (active assignments only,
// excluding excludeTaskID) and tests whether proposed hours still fit.
// Pass the enclosing transaction as q when the caller will write on success.
func (v *Validator) Check(ctx context.Context, q store.DBTX, userID, excludeTaskID string, proposed float64) (*Result, error) {
	if q == nil {
		q = v.store.DB()
	}
	current, err := v.store.SumAssignedHours(ctx, q, userID, excludeTaskID)
	if err != nil {
		return nil, err
	}

	total := current + proposed
	res := &Result{
		Valid:          total <= DailyBudgetHours,
		CurrentHours:   Round2(current),
		ProposedHours:  Round2(proposed),
		TotalHours:     Round2(total),
		AvailableHours: Round2(math.Max(0, DailyBudgetHours-current)),
	}

	v.logger.Debug().
		Str("user_id", userID).
		Float64("current", current).
		Float64("proposed", proposed).
		Bool("valid", res.Valid).
		Msg("daily budget check")

	return res, nil
}

// LimitError builds the DAILY_LIMIT_EXCEEDED rejection for a failed check.
func LimitError(userID string, res *Result) *perrors.Error {
	return perrors.Newf(perrors.KindDailyLimit,
		"daily limit of %.0fh exceeded for user %s", DailyBudgetHours, userID).
		WithDetails(LimitDetail{
			UserID:         userID,
			CurrentHours:   res.CurrentHours,
			RequestedHours: res.ProposedHours,
			AvailableHours: res.AvailableHours,
		})
}

// Round2 rounds an hour value to two decimal places for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
