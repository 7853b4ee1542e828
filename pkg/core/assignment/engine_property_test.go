package assignment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// The three mirrored structures must stay in lockstep under any interleaving
// of assigns, self-signups, bulk assigns and unassigns.
func TestMirrors_StayInLockstep(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := &model.EventRequest{ID: 1, Status: model.StatusScheduled}
		now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

		role := rapid.SampledFrom(model.Roles).Draw(rt, "role")
		ids := []string{"u1", "u2", "u3", "u4", "u5"}
		names := map[string]string{
			"u1": "Priya Shah", "u2": "Noor Ali", "u3": "Sam Okoye",
			"u4": "Priya Shah", // deliberate display-name collision
			"u5": "Dana Wiles",
		}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(rt, "person")
			person := Person{ID: id, Name: names[id]}
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				Assign(e, role, person, "admin", now)
			case 1:
				// Guard errors leave the record untouched
				_ = SelfSignup(e, role, person, now)
			case 2:
				BulkAssign(e, role, []Person{person}, "admin", now)
			case 3:
				Unassign(e, role, id)
			}
		}

		rs := e.Role(role)

		// The id set and the detail map cover exactly the same people
		require.Len(t, rs.Details, len(rs.AssignedIDs))
		seen := make(map[string]bool, len(rs.AssignedIDs))
		for _, id := range rs.AssignedIDs {
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true

			detail, ok := rs.Details[id]
			require.True(t, ok, "id %s missing a detail entry", id)
			require.Equal(t, id, detail.PersonID)
		}

		// Every assignee's display name appears in the legacy array
		counts := make(map[string]int, len(rs.LegacyNames))
		for _, name := range rs.LegacyNames {
			counts[name]++
		}
		for _, id := range rs.AssignedIDs {
			require.Positive(t, counts[names[id]], "legacy array lost name for %s", id)
		}
	})
}

// Self-signup never pushes a role past its published capacity.
func TestSelfSignup_NeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := &model.EventRequest{ID: 1, Status: model.StatusScheduled}
		now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
		capacity := rapid.IntRange(0, 4).Draw(rt, "capacity")
		e.Role(model.RoleDriver).Needed = &capacity

		attempts := rapid.IntRange(0, 12).Draw(rt, "attempts")
		for i := 0; i < attempts; i++ {
			id := rapid.SampledFrom([]string{"u1", "u2", "u3", "u4", "u5", "u6"}).Draw(rt, "user")
			err := SelfSignup(e, model.RoleDriver, Person{ID: id, Name: id}, now)
			if err != nil {
				require.True(t,
					errors.Is(err, model.ErrAlreadyAssigned) ||
						errors.Is(err, model.ErrCapacityExceeded) ||
						errors.Is(err, model.ErrNotNeeded),
					"unexpected error: %v", err)
			}
			require.LessOrEqual(t, AssignedCount(e, model.RoleDriver), capacity)
		}
	})
}
