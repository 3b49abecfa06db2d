package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/planor-io/planor/internal/store"
)

// Identity is the caller as authenticated by the upstream gateway. The core
// trusts the forwarded headers; credential handling happens upstream.
type Identity struct {
	UserID string
	Role   store.Role
}

const identityKey = "identity"

// NewIdentityMiddleware extracts the authenticated caller from the
// X-User-ID and X-User-Role headers.
func NewIdentityMiddleware(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		userID := c.Get("X-User-ID")
		role := store.Role(c.Get("X-User-Role"))
		if userID == "" || role == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_identity", "Unauthorized",
				"X-User-ID and X-User-Role headers are required")
		}
		if !role.Valid() {
			logger.Warn().Str("role", string(role)).Str("user_id", userID).Msg("unknown role header")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_role", "Unauthorized",
				"Unknown role: "+string(role))
		}

		c.Locals(identityKey, Identity{UserID: userID, Role: role})
		return c.Next()
	}
}

// callerIdentity returns the authenticated caller for a request.
func callerIdentity(c *fiber.Ctx) Identity {
	if id, ok := c.Locals(identityKey).(Identity); ok {
		return id
	}
	return Identity{}
}

// requireRole returns middleware that rejects callers below the given roles.
func requireRole(roles ...store.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := callerIdentity(c)
		for _, r := range roles {
			if caller.Role == r {
				return c.Next()
			}
		}
		return problemResponse(c, fiber.StatusForbidden,
			"insufficient_role", "Forbidden",
			"Insufficient permissions for this operation")
	}
}
