// Package api exposes the workload core over HTTP. Authentication happens
// upstream; the caller identity arrives in trusted headers.
package api

import (
	"github.com/planor-io/planor/internal/assignment"
	"github.com/planor-io/planor/internal/calendar"
	"github.com/planor-io/planor/internal/store"
)

// --- Request DTOs ---

// BulkAssignRequest is the payload for POST /api/v1/tasks/:id/assignments.
type BulkAssignRequest struct {
	Assignments []assignment.Request `json:"assignments"`
}

// UpdateHoursRequest is the payload for PATCH /api/v1/tasks/:id/assignments/:userID.
type UpdateHoursRequest struct {
	DailyHours float64 `json:"daily_hours"`
}

// AdvanceStatusRequest is the payload for POST /api/v1/tasks/:id/status.
type AdvanceStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// AddDependencyRequest is the payload for POST /api/v1/tasks/:id/dependencies.
type AddDependencyRequest struct {
	DependsOnTaskID string `json:"depends_on_task_id"`
}

// StartSessionRequest is the payload for POST /api/v1/sessions/start.
type StartSessionRequest struct {
	TaskID string `json:"task_id"`
	Notes  string `json:"notes"`
}

// --- Response DTOs ---

// AllocationView renders an allocation with wall-clock times.
type AllocationView struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	TaskID          string `json:"task_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes,omitempty"`
}

func toAllocationView(a *store.Allocation) AllocationView {
	return AllocationView{
		ID:              a.ID,
		UserID:          a.UserID,
		TaskID:          a.TaskID,
		Date:            a.Date,
		StartTime:       calendar.FormatClock(a.StartMinute),
		EndTime:         calendar.FormatClock(a.EndMinute),
		DurationMinutes: a.DurationMinutes,
		Notes:           a.Notes,
	}
}

func toAllocationViews(allocs []store.Allocation) []AllocationView {
	out := make([]AllocationView, 0, len(allocs))
	for i := range allocs {
		out = append(out, toAllocationView(&allocs[i]))
	}
	return out
}

// AllocationResponse wraps a created or updated allocation.
type AllocationResponse struct {
	Allocation AllocationView `json:"allocation"`
	Warning    string         `json:"warning,omitempty"`
}

// BatchItemView renders one date of a batch result with wall-clock times.
type BatchItemView struct {
	Date       string                   `json:"date"`
	Created    bool                     `json:"created"`
	Allocation *AllocationView          `json:"allocation,omitempty"`
	Warning    string                   `json:"warning,omitempty"`
	Error      *calendar.BatchItemError `json:"error,omitempty"`
}

// BatchResponse renders a batch-create result.
type BatchResponse struct {
	Results []BatchItemView `json:"results"`
	Created int             `json:"created"`
	Failed  int             `json:"failed"`
	Total   int             `json:"total"`
}

func toBatchResponse(res *calendar.BatchResult) BatchResponse {
	out := BatchResponse{Created: res.Created, Failed: res.Failed, Total: res.Total}
	for _, item := range res.Results {
		view := BatchItemView{
			Date:    item.Date,
			Created: item.Created,
			Warning: item.Warning,
			Error:   item.Error,
		}
		if item.Allocation != nil {
			v := toAllocationView(item.Allocation)
			view.Allocation = &v
		}
		out.Results = append(out.Results, view)
	}
	return out
}

// SessionResponse wraps a session after a transition.
type SessionResponse struct {
	Session *store.Session `json:"session"`
}

// TaskResponse wraps a task.
type TaskResponse struct {
	Task *store.Task `json:"task"`
}
