package taskstatus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planor-io/planor/internal/store"
)

func TestCanTransition_HappyPath(t *testing.T) {
	// Any role may start and return work.
	assert.True(t, CanTransition(store.TaskNovo, store.TaskEmDesenvolvimento, store.RoleUser))
	assert.True(t, CanTransition(store.TaskEmDesenvolvimento, store.TaskNovo, store.RoleUser))
	assert.True(t, CanTransition(store.TaskRefaca, store.TaskEmDesenvolvimento, store.RoleUser))

	// Review edges are supervisor/admin only.
	assert.True(t, CanTransition(store.TaskEmDesenvolvimento, store.TaskAnaliseTecnica, store.RoleSupervisor))
	assert.True(t, CanTransition(store.TaskAnaliseTecnica, store.TaskConcluido, store.RoleAdmin))
	assert.True(t, CanTransition(store.TaskAnaliseTecnica, store.TaskRefaca, store.RoleSupervisor))
}

func TestCanTransition_RoleGates(t *testing.T) {
	assert.False(t, CanTransition(store.TaskEmDesenvolvimento, store.TaskAnaliseTecnica, store.RoleUser))
	assert.False(t, CanTransition(store.TaskAnaliseTecnica, store.TaskConcluido, store.RoleUser))
	assert.False(t, CanTransition(store.TaskAnaliseTecnica, store.TaskRefaca, store.RoleUser))
}

func TestCanTransition_NoSkipping(t *testing.T) {
	assert.False(t, CanTransition(store.TaskNovo, store.TaskAnaliseTecnica, store.RoleAdmin))
	assert.False(t, CanTransition(store.TaskNovo, store.TaskConcluido, store.RoleAdmin))
	assert.False(t, CanTransition(store.TaskEmDesenvolvimento, store.TaskConcluido, store.RoleAdmin))
	assert.False(t, CanTransition(store.TaskRefaca, store.TaskConcluido, store.RoleAdmin))
}

func TestCanTransition_ConcluidoTerminal(t *testing.T) {
	for _, to := range []store.TaskStatus{
		store.TaskNovo, store.TaskEmDesenvolvimento, store.TaskAnaliseTecnica, store.TaskRefaca,
	} {
		assert.False(t, CanTransition(store.TaskConcluido, to, store.RoleAdmin), "concluido -> %s", to)
	}
}

func TestRequiresReason(t *testing.T) {
	assert.True(t, RequiresReason(store.TaskRefaca))
	assert.False(t, RequiresReason(store.TaskConcluido))
	assert.False(t, RequiresReason(store.TaskEmDesenvolvimento))
}

func TestKnownStatus(t *testing.T) {
	assert.True(t, KnownStatus(store.TaskNovo))
	assert.True(t, KnownStatus(store.TaskRefaca))
	assert.False(t, KnownStatus(store.TaskCancelado)) // externally set, never a target
	assert.False(t, KnownStatus("banana"))
}
