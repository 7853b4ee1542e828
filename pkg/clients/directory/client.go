// Package directory consumes the external people directory. Lookups are
// bulk-queryable and cached; display-name resolution falls back per the
// legacy-id rules when an id does not resolve.
package directory

import (
	"context"
	"strings"
)

// Person is a directory entry.
type Person struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// Client is the people-directory collaborator.
type Client interface {
	// GetPerson resolves one id.
	GetPerson(ctx context.Context, id string) (Person, bool, error)
	// GetPeople resolves ids in bulk; unresolved ids are absent from the map.
	GetPeople(ctx context.Context, ids []string) (map[string]Person, error)
}

// UserNotFound is rendered for ids that look machine-generated but no longer
// resolve in the directory.
const UserNotFound = "User not found"

// DisplayName renders an assignee id using resolved directory entries.
// Resolved ids render as the directory's display name. Unresolved ids
// containing '@' or '_' are treated as dangling references and render as
// "User not found". Any other unresolved string is a legacy freeform name
// and is shown verbatim.
func DisplayName(people map[string]Person, id string) string {
	if p, ok := people[id]; ok && p.Name != "" {
		return p.Name
	}
	if strings.ContainsAny(id, "@_") {
		return UserNotFound
	}
	return id
}
