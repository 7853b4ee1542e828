package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/pkg/clients/directory"
	"github.com/sandwichproject/coordinator/pkg/core/assignment"
	"github.com/sandwichproject/coordinator/pkg/core/authz"
	"github.com/sandwichproject/coordinator/pkg/core/cache"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/db"
)

// AssignRole adds one person to a role on behalf of an operator. The stored
// name comes from the directory; an unresolved id is stored as-is.
func AssignRole(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	dir directory.Client,
	auth authz.Authorizer,
	logger *zap.Logger,
	actorID string,
	eventID int64,
	role model.PersonRole,
	personID string,
) error {
	if err := authz.Check(ctx, auth, actorID, authz.ActionAssign); err != nil {
		return err
	}

	person, err := resolvePerson(ctx, dir, personID)
	if err != nil {
		return err
	}

	err = mutateRoles(ctx, store, col, eventID, func(e *model.EventRequest) error {
		assignment.Assign(e, role, person, actorID, time.Now())
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Assigned person to role",
		zap.Int64("event_id", eventID),
		zap.String("role", string(role)),
		zap.String("person_id", personID),
		zap.String("actor_id", actorID))
	return nil
}

// UnassignRole removes one person from a role.
func UnassignRole(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	auth authz.Authorizer,
	logger *zap.Logger,
	actorID string,
	eventID int64,
	role model.PersonRole,
	personID string,
) error {
	if err := authz.Check(ctx, auth, actorID, authz.ActionAssign); err != nil {
		return err
	}

	err := mutateRoles(ctx, store, col, eventID, func(e *model.EventRequest) error {
		assignment.Unassign(e, role, personID)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Unassigned person from role",
		zap.Int64("event_id", eventID),
		zap.String("role", string(role)),
		zap.String("person_id", personID))
	return nil
}

// BulkAssignRoles unions a set of people into a role on the administrative
// path. Capacity is not enforced here.
func BulkAssignRoles(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	dir directory.Client,
	auth authz.Authorizer,
	logger *zap.Logger,
	actorID string,
	eventID int64,
	role model.PersonRole,
	personIDs []string,
) error {
	if err := authz.Check(ctx, auth, actorID, authz.ActionBulkAssign); err != nil {
		return err
	}

	resolved, err := dir.GetPeople(ctx, personIDs)
	if err != nil {
		return err
	}
	people := make([]assignment.Person, len(personIDs))
	for i, id := range personIDs {
		people[i] = assignment.Person{ID: id, Name: storedName(resolved, id)}
	}

	err = mutateRoles(ctx, store, col, eventID, func(e *model.EventRequest) error {
		assignment.BulkAssign(e, role, people, actorID, time.Now())
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Bulk-assigned people to role",
		zap.Int64("event_id", eventID),
		zap.String("role", string(role)),
		zap.Int("count", len(people)))
	return nil
}

// SelfSignup signs the acting user up for a role. Guards run against the
// cached record; the store re-checks the assignee count with a conditional
// update so two racers cannot both take the last slot.
func SelfSignup(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	auth authz.Authorizer,
	logger *zap.Logger,
	user assignment.Person,
	eventID int64,
	role model.PersonRole,
) error {
	if err := authz.Check(ctx, auth, user.ID, authz.ActionSelfSignup); err != nil {
		return err
	}

	var (
		roles         map[model.PersonRole]*model.RoleState
		expectedCount int
	)
	err := col.Mutate(ctx, store, eventID,
		func(e *model.EventRequest) error {
			expectedCount = assignment.AssignedCount(e, role)
			if err := assignment.SelfSignup(e, role, user, time.Now()); err != nil {
				return err
			}
			roles = e.Roles
			return nil
		},
		func(ctx context.Context) error {
			return wrapStore("update_roles",
				store.UpdateRolesIfCountMatches(ctx, eventID, role, expectedCount, roles))
		},
	)
	if err != nil {
		return err
	}

	logger.Info("Self-signup succeeded",
		zap.Int64("event_id", eventID),
		zap.String("role", string(role)),
		zap.String("user_id", user.ID))
	return nil
}

// mutateRoles runs an assignment mutation and commits the roles field as one
// patch under the optimistic-update discipline.
func mutateRoles(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	eventID int64,
	apply func(e *model.EventRequest) error,
) error {
	var roles map[model.PersonRole]*model.RoleState
	return col.Mutate(ctx, store, eventID,
		func(e *model.EventRequest) error {
			if err := apply(e); err != nil {
				return err
			}
			roles = e.Roles
			return nil
		},
		func(ctx context.Context) error {
			return wrapStore("patch", store.PatchEventRequest(ctx, eventID, map[string]any{"roles": roles}))
		},
	)
}

// resolvePerson resolves one id to an assignment identity.
func resolvePerson(ctx context.Context, dir directory.Client, personID string) (assignment.Person, error) {
	resolved, err := dir.GetPeople(ctx, []string{personID})
	if err != nil {
		return assignment.Person{}, err
	}
	return assignment.Person{ID: personID, Name: storedName(resolved, personID)}, nil
}

// storedName picks the name persisted with an assignment: the directory name
// when the id resolves, otherwise the raw id. The "User not found" fallback
// is display-only and never written to the record.
func storedName(people map[string]directory.Person, id string) string {
	if p, ok := people[id]; ok && p.Name != "" {
		return p.Name
	}
	return id
}
