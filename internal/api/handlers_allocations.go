package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/planor-io/planor/internal/calendar"
	"github.com/planor-io/planor/internal/store"
)

// CreateAllocation handles POST /api/v1/allocations.
func (h *Handlers) CreateAllocation(c *fiber.Ctx) error {
	var in calendar.Input
	if err := c.BodyParser(&in); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	caller := callerIdentity(c)
	res, err := h.svcs.Scheduler.Create(c.UserContext(), caller.UserID, caller.Role, in)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	if h.metrics != nil {
		h.metrics.AllocationsCreated.Inc()
	}
	return c.Status(fiber.StatusCreated).JSON(AllocationResponse{
		Allocation: toAllocationView(res.Allocation),
		Warning:    res.Warning,
	})
}

// CreateAllocationBatch handles POST /api/v1/allocations/batch. Partial
// success: per-date outcomes are reported individually.
func (h *Handlers) CreateAllocationBatch(c *fiber.Ctx) error {
	var in calendar.BatchInput
	if err := c.BodyParser(&in); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	caller := callerIdentity(c)
	res, err := h.svcs.Scheduler.CreateBatch(c.UserContext(), caller.UserID, caller.Role, in)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	if h.metrics != nil {
		h.metrics.AllocationsCreated.Add(float64(res.Created))
	}
	return c.JSON(toBatchResponse(res))
}

// UpdateAllocation handles PATCH /api/v1/allocations/:id.
func (h *Handlers) UpdateAllocation(c *fiber.Ctx) error {
	var in calendar.Input
	if err := c.BodyParser(&in); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	caller := callerIdentity(c)
	res, err := h.svcs.Scheduler.Update(c.UserContext(), caller.UserID, caller.Role, c.Params("id"), in)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(AllocationResponse{
		Allocation: toAllocationView(res.Allocation),
		Warning:    res.Warning,
	})
}

// DeleteAllocation handles DELETE /api/v1/allocations/:id.
func (h *Handlers) DeleteAllocation(c *fiber.Ctx) error {
	caller := callerIdentity(c)
	if err := h.svcs.Scheduler.Delete(c.UserContext(), caller.UserID, caller.Role, c.Params("id")); err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListAllocations handles GET /api/v1/allocations?user_id=&from=&to=.
func (h *Handlers) ListAllocations(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		userID = callerIdentity(c).UserID
	}

	allocs, err := h.svcs.Scheduler.List(c.UserContext(), userID, c.Query("from"), c.Query("to"))
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(fiber.Map{"allocations": toAllocationViews(allocs)})
}

// UnallocatedTasks handles GET /api/v1/users/:id/unallocated-tasks.
func (h *Handlers) UnallocatedTasks(c *fiber.Ctx) error {
	tasks, err := h.svcs.Scheduler.UnallocatedTasks(c.UserContext(), c.Params("id"))
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

// AllocationSummary handles GET /api/v1/users/:id/allocation-summary?date=.
func (h *Handlers) AllocationSummary(c *fiber.Ctx) error {
	date := c.Query("date")
	if date == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_date", "Bad Request",
			"date query parameter is required")
	}

	summary, err := h.svcs.Scheduler.DaySummary(c.UserContext(), c.Params("id"), date)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(summary)
}
