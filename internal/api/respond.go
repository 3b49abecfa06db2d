package api

import (
	"github.com/gofiber/fiber/v2"

	perrors "github.com/planor-io/planor/internal/errors"
	"github.com/planor-io/planor/internal/metrics"
)

// ProblemDetail is an RFC 7807 Problem Detail error response.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
	Details  any    `json:"details,omitempty"`
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// statusForKind maps the domain error taxonomy onto HTTP status codes.
func statusForKind(kind perrors.Kind) int {
	switch kind {
	case perrors.KindValidation:
		return fiber.StatusBadRequest
	case perrors.KindNotFound:
		return fiber.StatusNotFound
	case perrors.KindForbidden:
		return fiber.StatusForbidden
	case perrors.KindConflict, perrors.KindOverlap:
		return fiber.StatusConflict
	case perrors.KindDailyLimit, perrors.KindBlockedByDeps, perrors.KindInvalidTransition:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// domainError renders a domain rejection with its structured details, or a
// generic 500 for anything else.
func domainError(c *fiber.Ctx, m *metrics.Metrics, err error) error {
	de, ok := perrors.AsDomain(err)
	if !ok {
		return err // handled by the app-level error handler
	}
	if m != nil {
		m.RecordRejection(string(de.Kind))
	}
	status := statusForKind(de.Kind)
	return c.Status(status).JSON(ProblemDetail{
		Type:     string(de.Kind),
		Title:    string(de.Kind),
		Status:   status,
		Detail:   de.Message,
		Instance: c.Path(),
		Details:  de.Details,
	})
}
