package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// AssignUsers handles POST /api/v1/tasks/:id/assignments.
//
// The response is 207-style partial success: individual user failures are
// reported per entry while the batch as a whole returns 200. Only an
// up-front rejection (closed dependency gate, missing task, bad role)
// fails the whole request.
func (h *Handlers) AssignUsers(c *fiber.Ctx) error {
	var req BulkAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if len(req.Assignments) == 0 {
		return problemResponse(c, fiber.StatusBadRequest,
			"empty_batch", "Bad Request",
			"assignments must contain at least one entry")
	}

	caller := callerIdentity(c)
	res, err := h.svcs.Assignments.AssignUsers(c.UserContext(), c.Params("id"), caller.Role, req.Assignments)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(res)
}

// UpdateAssignmentHours handles PATCH /api/v1/tasks/:id/assignments/:userID.
func (h *Handlers) UpdateAssignmentHours(c *fiber.Ctx) error {
	var req UpdateHoursRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	caller := callerIdentity(c)
	budget, err := h.svcs.Assignments.UpdateHours(c.UserContext(),
		c.Params("id"), c.Params("userID"), req.DailyHours, caller.UserID, caller.Role)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(fiber.Map{"daily_hours": req.DailyHours, "budget": budget})
}

// RemoveAssignment handles DELETE /api/v1/tasks/:id/assignments/:userID.
func (h *Handlers) RemoveAssignment(c *fiber.Ctx) error {
	caller := callerIdentity(c)
	if err := h.svcs.Assignments.Remove(c.UserContext(),
		c.Params("id"), c.Params("userID"), caller.Role); err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CheckBudget handles GET /api/v1/users/:id/budget. proposed_hours and
// exclude_task_id query parameters preview an assignment change without
// writing anything.
func (h *Handlers) CheckBudget(c *fiber.Ctx) error {
	proposed := 0.0
	if raw := c.Query("proposed_hours"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_query", "Bad Request",
				"proposed_hours must be a number")
		}
		proposed = v
	}

	res, err := h.svcs.Budget.Check(c.UserContext(), nil,
		c.Params("id"), c.Query("exclude_task_id"), proposed)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(res)
}
