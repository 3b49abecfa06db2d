package requestid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsure_MintsWhenEmpty(t *testing.T) {
	ctx, id := Ensure(context.Background(), "")
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, FromContext(ctx))
}

func TestEnsure_KeepsInboundID(t *testing.T) {
	ctx, id := Ensure(context.Background(), "upstream-42")
	assert.Equal(t, "upstream-42", id)
	assert.Equal(t, "upstream-42", FromContext(ctx))
}

func TestFromContext_Unset(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
}
