package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/planor-io/planor/internal/store"
	"github.com/planor-io/planor/internal/tasks"
)

// CreateTask handles POST /api/v1/tasks.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var req tasks.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	caller := callerIdentity(c)
	task, err := h.svcs.Tasks.Create(c.UserContext(), caller.Role, req)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.Status(fiber.StatusCreated).JSON(TaskResponse{Task: task})
}

// CanAssign handles GET /api/v1/tasks/:id/can-assign.
func (h *Handlers) CanAssign(c *fiber.Ctx) error {
	res, err := h.svcs.Gate.CanAssign(c.UserContext(), nil, c.Params("id"))
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(res)
}

// ListDependencies handles GET /api/v1/tasks/:id/dependencies.
func (h *Handlers) ListDependencies(c *fiber.Ctx) error {
	deps, err := h.svcs.Gate.Dependencies(c.UserContext(), c.Params("id"))
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	if deps == nil {
		deps = []store.DependencyTask{}
	}
	return c.JSON(fiber.Map{"dependencies": deps})
}

// AddDependency handles POST /api/v1/tasks/:id/dependencies.
func (h *Handlers) AddDependency(c *fiber.Ctx) error {
	var req AddDependencyRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.DependsOnTaskID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_dependency", "Bad Request",
			"depends_on_task_id is required")
	}

	if err := h.svcs.Gate.AddEdge(c.UserContext(), c.Params("id"), req.DependsOnTaskID); err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

// AdvanceStatus handles POST /api/v1/tasks/:id/status.
func (h *Handlers) AdvanceStatus(c *fiber.Ctx) error {
	var req AdvanceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Status == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_status", "Bad Request",
			"status is required")
	}

	caller := callerIdentity(c)
	task, err := h.svcs.Statuses.Advance(c.UserContext(), c.Params("id"),
		store.TaskStatus(req.Status), caller.UserID, caller.Role, req.Reason)
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	return c.JSON(TaskResponse{Task: task})
}

// StatusHistory handles GET /api/v1/tasks/:id/status-history.
func (h *Handlers) StatusHistory(c *fiber.Ctx) error {
	changes, err := h.svcs.Statuses.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return domainError(c, h.metrics, err)
	}
	if changes == nil {
		changes = []store.StatusChange{}
	}
	return c.JSON(fiber.Map{"history": changes})
}
