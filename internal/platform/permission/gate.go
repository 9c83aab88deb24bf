// Package permission answers whether an actor may perform an action. The
// engine only consumes a yes/no answer; the role matrix here is the default
// implementation.
package permission

import (
	"context"
	"strings"

	"github.com/funding-audit-ledger/internal/domain/shared"
)

// Action is a verb checked against the gate
type Action string

const (
	ActionView     Action = "view"
	ActionSave     Action = "save"
	ActionSubmit   Action = "submit"
	ActionDelete   Action = "delete"
	ActionAudit    Action = "audit"
	ActionWithdraw Action = "withdraw"
	ActionDecide   Action = "decide"
)

// Resources guarded by the gate. Record resources are named after their kind.
const (
	ResourceReconciliation = "reconciliation"
	ResourceWithdrawal     = "withdrawal"
)

// RecordResource names the resource for records of one kind
func RecordResource(kind shared.RecordKind) string {
	return "record:" + strings.ToLower(string(kind))
}

// Roles known to the static matrix
const (
	RoleReporter = "reporter"
	RoleFinance  = "finance"
	RoleAuditor  = "auditor"
	RoleAdmin    = "admin"
)

// Actor is the authenticated caller
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Gate decides whether actor may perform action on resource within scope.
// Scope is typically a fund need id and may be empty.
type Gate interface {
	CanPerform(ctx context.Context, actor Actor, resource string, action Action, scope string) bool
}

// Authorize converts a negative gate answer into shared.PermissionDeniedError
func Authorize(ctx context.Context, gate Gate, actor Actor, resource string, action Action, scope string) error {
	if gate.CanPerform(ctx, actor, resource, action, scope) {
		return nil
	}
	return shared.PermissionDeniedError{UserID: actor.ID, Resource: resource, Action: string(action)}
}

// RoleMatrix is a static role → resource → actions table. It ignores scope.
type RoleMatrix map[string]map[string][]Action

// DefaultMatrix grants reporters the user channel, finance officers the
// finance channel, auditors the reconciliation view, and admins everything.
func DefaultMatrix() RoleMatrix {
	predicted := RecordResource(shared.RecordKindPredicted)
	actualUser := RecordResource(shared.RecordKindActualUser)
	actualFinance := RecordResource(shared.RecordKindActualFinance)
	editor := []Action{ActionView, ActionSave, ActionSubmit, ActionDelete, ActionWithdraw}

	return RoleMatrix{
		RoleReporter: {
			predicted:              editor,
			actualUser:             editor,
			actualFinance:          {ActionView},
			ResourceReconciliation: {ActionView},
			ResourceWithdrawal:     {ActionView},
		},
		RoleFinance: {
			predicted:              {ActionView},
			actualUser:             {ActionView},
			actualFinance:          editor,
			ResourceReconciliation: {ActionView},
			ResourceWithdrawal:     {ActionView},
		},
		RoleAuditor: {
			predicted:              {ActionView},
			actualUser:             {ActionView},
			actualFinance:          {ActionView},
			ResourceReconciliation: {ActionView, ActionAudit},
			ResourceWithdrawal:     {ActionView},
		},
		RoleAdmin: {
			"*": {"*"},
		},
	}
}

// CanPerform implements Gate
func (m RoleMatrix) CanPerform(_ context.Context, actor Actor, resource string, action Action, _ string) bool {
	if actor.ID == "" {
		return false
	}
	resources, ok := m[strings.ToLower(actor.Role)]
	if !ok {
		return false
	}
	for _, key := range []string{resource, "*"} {
		for _, allowed := range resources[key] {
			if allowed == action || allowed == "*" {
				return true
			}
		}
	}
	return false
}

// AllowAll is a Gate that permits everything
type AllowAll struct{}

func (AllowAll) CanPerform(context.Context, Actor, string, Action, string) bool { return true }
