// Package taskstatus implements the role-gated task status workflow.
package taskstatus

import (
	"github.com/planor-io/planor/internal/store"
)

// transitions maps fromStatus → toStatus → roles allowed to take the edge.
// Kept as pure data so the rule set stays auditable.
var transitions = map[store.TaskStatus]map[store.TaskStatus][]store.Role{
	store.TaskNovo: {
		store.TaskEmDesenvolvimento: {store.RoleUser, store.RoleSupervisor, store.RoleAdmin},
	},
	store.TaskEmDesenvolvimento: {
		store.TaskNovo:           {store.RoleUser, store.RoleSupervisor, store.RoleAdmin},
		store.TaskAnaliseTecnica: {store.RoleSupervisor, store.RoleAdmin},
	},
	store.TaskAnaliseTecnica: {
		store.TaskConcluido: {store.RoleSupervisor, store.RoleAdmin},
		store.TaskRefaca:    {store.RoleSupervisor, store.RoleAdmin},
	},
	store.TaskRefaca: {
		store.TaskEmDesenvolvimento: {store.RoleUser, store.RoleSupervisor, store.RoleAdmin},
	},
	// concluido is terminal: no outgoing edges.
}

// CanTransition reports whether role may move a task from one status to
// another.
func CanTransition(from, to store.TaskStatus, role store.Role) bool {
	roles, ok := transitions[from][to]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// RequiresReason reports whether the transition demands a non-empty reason.
func RequiresReason(to store.TaskStatus) bool {
	return to == store.TaskRefaca
}

// KnownStatus reports whether s is a status the machine can target.
func KnownStatus(s store.TaskStatus) bool {
	switch s {
	case store.TaskNovo, store.TaskEmDesenvolvimento, store.TaskAnaliseTecnica,
		store.TaskConcluido, store.TaskRefaca:
		return true
	}
	return false
}
