package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/planor-io/planor/internal/store"
)

// StartSession handles POST /api/v1/sessions/start. The session always
// belongs to the caller; one active session per user.
func (h *Handlers) StartSession(c *fiber.Ctx) error {
	var req StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.TaskID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_task", "Bad Request",
			"task_id is required")
	}

	caller := callerIdentity(c)
	session, err := h.svcs.Tracker.Start(c.UserContext(), caller.UserID, req.TaskID, req.Notes)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	if h.metrics != nil {
		h.metrics.SessionsActive.Inc()
	}
	return c.Status(fiber.StatusCreated).JSON(SessionResponse{Session: session})
}

// PauseSession handles POST /api/v1/sessions/:id/pause.
func (h *Handlers) PauseSession(c *fiber.Ctx) error {
	caller := callerIdentity(c)
	session, err := h.svcs.Tracker.Pause(c.UserContext(), caller.UserID, c.Params("id"))
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(SessionResponse{Session: session})
}

// ResumeSession handles POST /api/v1/sessions/:id/resume.
func (h *Handlers) ResumeSession(c *fiber.Ctx) error {
	caller := callerIdentity(c)
	session, err := h.svcs.Tracker.Resume(c.UserContext(), caller.UserID, c.Params("id"))
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(SessionResponse{Session: session})
}

// StopSession handles POST /api/v1/sessions/:id/stop.
func (h *Handlers) StopSession(c *fiber.Ctx) error {
	caller := callerIdentity(c)
	session, err := h.svcs.Tracker.Stop(c.UserContext(), caller.UserID, c.Params("id"))
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	if h.metrics != nil {
		h.metrics.SessionsActive.Dec()
	}
	return c.JSON(SessionResponse{Session: session})
}

// ListTaskSessions handles GET /api/v1/tasks/:id/sessions?user_id=&date=.
func (h *Handlers) ListTaskSessions(c *fiber.Ctx) error {
	sessions, err := h.svcs.Tracker.ListTaskSessions(c.UserContext(), c.Params("id"), store.SessionFilter{
		UserID: c.Query("user_id"),
		Date:   c.Query("date"),
	})
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

// DayStatus handles GET /api/v1/users/:id/day-status?date=. Defaults to
// today when no date is given.
func (h *Handlers) DayStatus(c *fiber.Ctx) error {
	date := c.Query("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	status, err := h.svcs.Tracker.GetDayStatus(c.UserContext(), c.Params("id"), date)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(status)
}
