package calendar

import (
	"context"

	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/store"
)

// BatchInput requests the same time slot across a date range.
type BatchInput struct {
	UserID       string `json:"user_id"`
	TaskID       string `json:"task_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Start        string `json:"start_time"`
	End          string `json:"end_time"`
	Notes        string `json:"notes"`
	SkipWeekends bool   `json:"skip_weekends"`
}

// BatchItem is the outcome for one date in a batch.
type BatchItem struct {
	Date       string            `json:"date"`
	Created    bool              `json:"created"`
	Allocation *store.Allocation `json:"allocation,omitempty"`
	Warning    string            `json:"warning,omitempty"`
	Error      *BatchItemError   `json:"error,omitempty"`
}

// BatchItemError carries one date's rejection.
type BatchItemError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// BatchResult summarizes a batch-create call.
type BatchResult struct {
	Results []BatchItem `json:"results"`
	Created int         `json:"created"`
	Failed  int         `json:"failed"`
	Total   int         `json:"total"`
}

// CreateBatch creates the same time slot on every date in the inclusive
// range, optionally skipping weekends. Each date runs its own
// check-and-insert transaction; one day's conflict never blocks the others.
func (s *Scheduler) CreateBatch(ctx context.Context, callerID string, callerRole store.Role, in BatchInput) (*BatchResult, error) {
	if !callerRole.Elevated() && callerID != in.UserID {
		return nil, perrors.New(perrors.KindForbidden, "cannot allocate another user's calendar")
	}

	from, err := ParseDate(in.StartDate)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(in.EndDate)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, perrors.New(perrors.KindValidation, "end_date is before start_date")
	}
	// Validate the time window once up front so a malformed slot fails the
	// whole request instead of once per date.
	if _, _, _, err := parseWindow(in.StartDate, in.Start, in.End); err != nil {
		return nil, err
	}

	out := &BatchResult{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if in.SkipWeekends && IsWeekend(d) {
			continue
		}
		date := FormatDate(d)
		out.Total++

		res, err := s.Create(ctx, callerID, callerRole, Input{
			UserID: in.UserID,
			TaskID: in.TaskID,
			Date:   date,
			Start:  in.Start,
			End:    in.End,
			Notes:  in.Notes,
		})
		item := BatchItem{Date: date}
		if err != nil {
			out.Failed++
			if de, ok := perrors.AsDomain(err); ok {
				item.Error = &BatchItemError{Kind: string(de.Kind), Message: de.Message, Details: de.Details}
			} else {
				item.Error = &BatchItemError{Kind: "INTERNAL", Message: err.Error()}
			}
		} else {
			out.Created++
			item.Created = true
			item.Allocation = res.Allocation
			item.Warning = res.Warning
		}
		out.Results = append(out.Results, item)
	}

	s.logger.Info().
		Str("user_id", in.UserID).
		Str("task_id", in.TaskID).
		Int("created", out.Created).
		Int("failed", out.Failed).
		Msg("batch allocation processed")

	return out, nil
}
