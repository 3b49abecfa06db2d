// Package requestid carries a per-request correlation ID through context.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Ensure stores id in the context, minting a fresh UUID when id is empty.
// Callers pass the inbound X-Request-ID header so upstream IDs survive.
func Ensure(ctx context.Context, id string) (context.Context, string) {
	if id == "" {
		id = uuid.New().String()
	}
	return context.WithValue(ctx, ctxKey{}, id), id
}

// FromContext returns the request ID carried by ctx, or "" when none is set.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
