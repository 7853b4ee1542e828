// Package assignment implements capacity-constrained role assignment on
// event requests. It is the only writer of the three mirrored per-role
// structures (id set, detail map, legacy name array), which keeps their
// membership in lockstep at all times.
package assignment

import (
	"time"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// Person is the minimal identity the engine needs for an assignee.
type Person struct {
	ID   string
	Name string
}

// Assign adds a person to a role on behalf of an operator. The union is
// idempotent: re-assigning an existing person refreshes their detail entry
// without duplicating the id. Capacity is not checked on this path.
func Assign(e *model.EventRequest, role model.PersonRole, person Person, actorID string, now time.Time) {
	addAssignment(e.Role(role), person, model.AssignmentDetail{
		PersonID:     person.ID,
		Name:         person.Name,
		AssignedAt:   now,
		AssignedBy:   actorID,
		SelfAssigned: false,
	})
}

// Unassign removes a person from a role, dropping the id, its detail entry,
// and the matching display name from the legacy array. Removing an absent
// person is a no-op.
func Unassign(e *model.EventRequest, role model.PersonRole, personID string) {
	rs := e.Role(role)
	detail, ok := rs.Details[personID]
	if !ok {
		return
	}
	delete(rs.Details, personID)
	rs.AssignedIDs = removeString(rs.AssignedIDs, personID)
	rs.LegacyNames = removeFirst(rs.LegacyNames, detail.Name)
}

// SelfSignup assigns user to role on their own initiative. It fails with
// ErrAlreadyAssigned when the user is already present, ErrCapacityExceeded
// when the role has a numeric capacity that is already met, and (for the
// volunteer role) ErrNotNeeded unless the event is scheduled or the volunteer
// capacity is a positive number. The capacity check reads client-cached
// counts; the postgres store re-enforces it with a conditional patch.
func SelfSignup(e *model.EventRequest, role model.PersonRole, user Person, now time.Time) error {
	rs := e.Role(role)
	if contains(rs.AssignedIDs, user.ID) {
		return model.ErrAlreadyAssigned
	}
	if !eligible(e, role, rs) {
		return model.ErrNotNeeded
	}
	if atCapacity(rs) {
		return model.ErrCapacityExceeded
	}
	addAssignment(rs, user, model.AssignmentDetail{
		PersonID:     user.ID,
		Name:         user.Name,
		AssignedAt:   now,
		AssignedBy:   user.ID,
		SelfAssigned: true,
	})
	return nil
}

// CanSelfSignup is the pure predicate behind SelfSignup, used to gate the
// action and to drive UI affordance: not already assigned, capacity open (or
// absent), and role-specific eligibility.
func CanSelfSignup(e *model.EventRequest, role model.PersonRole, userID string) bool {
	rs := e.Role(role)
	return !contains(rs.AssignedIDs, userID) && eligible(e, role, rs) && !atCapacity(rs)
}

// BulkAssign unions a set of people into a role. Used only by administrative
// multi-select; capacity is deliberately not enforced here — self-service is
// capacity-checked, the admin override is not.
func BulkAssign(e *model.EventRequest, role model.PersonRole, people []Person, actorID string, now time.Time) {
	for _, person := range people {
		rs := e.Role(role)
		if contains(rs.AssignedIDs, person.ID) {
			continue
		}
		addAssignment(rs, person, model.AssignmentDetail{
			PersonID:     person.ID,
			Name:         person.Name,
			AssignedAt:   now,
			AssignedBy:   actorID,
			SelfAssigned: false,
		})
	}
}

// AssignedCount returns the current number of assignees for a role.
func AssignedCount(e *model.EventRequest, role model.PersonRole) int {
	return len(e.Role(role).AssignedIDs)
}

func addAssignment(rs *model.RoleState, person Person, detail model.AssignmentDetail) {
	if !contains(rs.AssignedIDs, person.ID) {
		rs.AssignedIDs = append(rs.AssignedIDs, person.ID)
	}
	rs.Details[person.ID] = detail
	if !contains(rs.LegacyNames, person.Name) {
		rs.LegacyNames = append(rs.LegacyNames, person.Name)
	}
}

// eligible applies role-specific signup eligibility. Volunteers may only
// self-signup once the event is scheduled or a positive volunteer capacity
// has been published; drivers and speakers are bounded by capacity alone.
func eligible(e *model.EventRequest, role model.PersonRole, rs *model.RoleState) bool {
	if role != model.RoleVolunteer {
		return true
	}
	if e.Status == model.StatusScheduled {
		return true
	}
	return rs.Needed != nil && *rs.Needed > 0
}

// atCapacity reports whether the role's capacity is set and met. An absent
// capacity means unbounded.
func atCapacity(rs *model.RoleState) bool {
	return rs.Needed != nil && len(rs.AssignedIDs) >= *rs.Needed
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, item := range list {
		if item != s {
			out = append(out, item)
		}
	}
	return out
}

// removeFirst drops only the first occurrence, since two assignees may share
// a display name in the legacy array.
func removeFirst(list []string, s string) []string {
	for i, item := range list {
		if item == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
