package api

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/planor-io/planor/internal/assignment"
	"github.com/planor-io/planor/internal/budget"
	"github.com/planor-io/planor/internal/calendar"
	"github.com/planor-io/planor/internal/depgate"
	"github.com/planor-io/planor/internal/health"
	"github.com/planor-io/planor/internal/metrics"
	"github.com/planor-io/planor/internal/requestid"
	"github.com/planor-io/planor/internal/store"
	"github.com/planor-io/planor/internal/taskstatus"
	"github.com/planor-io/planor/internal/tasks"
	"github.com/planor-io/planor/internal/tracker"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	CORSOrigins string
}

// Services bundles the workload core components the handlers depend on.
type Services struct {
	Assignments *assignment.Service
	Budget      *budget.Validator
	Gate        *depgate.Gate
	Scheduler   *calendar.Scheduler
	Tracker     *tracker.Tracker
	Statuses    *taskstatus.Service
	Tasks       *tasks.Service
}

// Server is the workload API Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   ServerConfig
}

// NewServer creates and configures the API server.
func NewServer(cfg ServerConfig, svcs Services, checker *health.Checker, m *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          appErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	handlers := NewHandlers(svcs, checker, m, logger)

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "api_server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, m, logger)
	s.setupRoutes(handlers, m)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, m *metrics.Metrics, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Reuse an upstream X-Request-ID if present; the enriched context rides
	// on the user context so service calls can log the same ID.
	s.app.Use(func(c *fiber.Ctx) error {
		ctx, reqID := requestid.Ensure(c.UserContext(), c.Get("X-Request-ID"))
		c.SetUserContext(ctx)
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID, X-User-ID, X-User-Role",
			AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
		}))
	}

	s.app.Use(NewIdentityMiddleware(logger))

	// Request log + metrics
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		if m != nil {
			route := c.Route().Path
			m.RecordRequest(route, strconv.Itoa(c.Response().StatusCode()))
			m.ObserveDuration(route, time.Since(start).Seconds())
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Int("status", c.Response().StatusCode()).
			Dur("duration", time.Since(start)).
			Str("user_id", callerIdentity(c).UserID).
			Str("request_id", requestid.FromContext(c.UserContext())).
			Msg("api request")

		return err
	})
}

func (s *Server) setupRoutes(h *Handlers, m *metrics.Metrics) {
	// Probe endpoints (no identity required)
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	v1 := s.app.Group("/api/v1")

	// Tasks, dependencies, status
	v1.Post("/tasks", h.CreateTask)
	v1.Get("/tasks/:id/can-assign", h.CanAssign)
	v1.Get("/tasks/:id/dependencies", h.ListDependencies)
	v1.Post("/tasks/:id/dependencies", requireRole(store.RoleSupervisor, store.RoleAdmin), h.AddDependency)
	v1.Post("/tasks/:id/status", h.AdvanceStatus)
	v1.Get("/tasks/:id/status-history", h.StatusHistory)

	// Assignments & budget
	v1.Post("/tasks/:id/assignments", h.AssignUsers)
	v1.Patch("/tasks/:id/assignments/:userID", h.UpdateAssignmentHours)
	v1.Delete("/tasks/:id/assignments/:userID", h.RemoveAssignment)
	v1.Get("/users/:id/budget", h.CheckBudget)

	// Calendar allocations
	v1.Post("/allocations", h.CreateAllocation)
	v1.Post("/allocations/batch", h.CreateAllocationBatch)
	v1.Patch("/allocations/:id", h.UpdateAllocation)
	v1.Delete("/allocations/:id", h.DeleteAllocation)
	v1.Get("/allocations", h.ListAllocations)
	v1.Get("/users/:id/unallocated-tasks", h.UnallocatedTasks)
	v1.Get("/users/:id/allocation-summary", h.AllocationSummary)

	// Work sessions
	v1.Post("/sessions/start", h.StartSession)
	v1.Post("/sessions/:id/pause", h.PauseSession)
	v1.Post("/sessions/:id/resume", h.ResumeSession)
	v1.Post("/sessions/:id/stop", h.StopSession)
	v1.Get("/tasks/:id/sessions", h.ListTaskSessions)
	v1.Get("/users/:id/day-status", h.DayStatus)

	// Health detail
	v1.Get("/health", h.HealthDetail)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("api server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.Shutdown()
}

// ShutdownWithContext shuts down, abandoning in-flight requests once ctx
// expires.
func (s *Server) ShutdownWithContext(ctx context.Context) error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func appErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}
