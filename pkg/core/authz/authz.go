// Package authz consumes allow/deny verdicts from an external permission
// evaluator. No policy is evaluated here; a denied action fails locally with
// ErrPermissionDenied before any store call.
package authz

import (
	"context"
	"fmt"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// Action names a permission-checked operation.
type Action string

const (
	ActionTransition   Action = "transition_status"
	ActionAssign       Action = "assign_role"
	ActionBulkAssign   Action = "bulk_assign_role"
	ActionSelfSignup   Action = "self_signup"
	ActionEditRequest  Action = "edit_request"
	ActionSetTransport Action = "set_transportation"
	ActionEscalate     Action = "escalate_contact"
	ActionDelete       Action = "delete_request"
)

// Decision is the verdict for one (user, action) pair. AllowedFields, when
// non-nil, restricts which record fields the user may edit.
type Decision struct {
	Allowed       bool
	AllowedFields []string
}

// Authorizer is the external permission evaluator.
type Authorizer interface {
	Authorize(ctx context.Context, userID string, action Action) (Decision, error)
}

// Check resolves the verdict and maps denial onto the domain taxonomy.
func Check(ctx context.Context, a Authorizer, userID string, action Action) error {
	decision, err := a.Authorize(ctx, userID, action)
	if err != nil {
		return fmt.Errorf("failed to authorize %s for %s: %w", action, userID, err)
	}
	if !decision.Allowed {
		return fmt.Errorf("%s for user %s: %w", action, userID, model.ErrPermissionDenied)
	}
	return nil
}

// AllowAll permits everything. Used by the CLI, which runs as an operator.
type AllowAll struct{}

func (AllowAll) Authorize(ctx context.Context, userID string, action Action) (Decision, error) {
	return Decision{Allowed: true}, nil
}
