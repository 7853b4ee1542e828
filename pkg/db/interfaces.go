// Package db defines the storage-backend contract for event request records.
// The backend holds one record type keyed by integer id; assignment,
// transportation, and escalation data are ordinary fields of that record.
package db

import (
	"context"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// EventRequestStore is the full storage collaborator surface. Lock and
// transaction discipline is the store's concern; callers never hold locks.
type EventRequestStore interface {
	EventRequestReader
	EventRequestWriter
}

// EventRequestReader covers the read operations.
type EventRequestReader interface {
	GetEventRequests(ctx context.Context) ([]*model.EventRequest, error)
	GetEventRequest(ctx context.Context, id int64) (*model.EventRequest, error)
}

// EventRequestWriter covers the write operations.
type EventRequestWriter interface {
	InsertEventRequest(ctx context.Context, e *model.EventRequest) error
	ReplaceEventRequest(ctx context.Context, e *model.EventRequest) error

	// PatchEventRequest merges a field map, keyed by wire names, into the
	// record as one update.
	PatchEventRequest(ctx context.Context, id int64, fields map[string]any) error

	// UpdateRolesIfCountMatches writes the role assignment state only while
	// the stored assignee count for role still equals expectedCount. It
	// returns model.ErrCapacityExceeded when the count moved, which closes
	// the self-signup race the client-side pre-check cannot.
	UpdateRolesIfCountMatches(ctx context.Context, id int64, role model.PersonRole, expectedCount int, roles map[model.PersonRole]*model.RoleState) error

	// DeleteEventRequests hard-deletes records by id. No tombstones.
	DeleteEventRequests(ctx context.Context, ids []int64) error
}
