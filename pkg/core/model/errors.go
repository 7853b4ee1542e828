package model

import (
	"errors"
	"fmt"
	"strings"
)

// Guard failures. These resolve locally and never reach the store.
var (
	ErrCapacityExceeded = errors.New("role capacity exceeded")
	ErrAlreadyAssigned  = errors.New("person already assigned to role")
	ErrNotNeeded        = errors.New("role not open for signup on this event")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("event request not found")
)

// ValidationError reports the missing required fields of a guarded transition.
type ValidationError struct {
	Action string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing required fields: %s", e.Action, strings.Join(e.Fields, ", "))
}

// ConflictOnSave reports a divergence detected by the post-commit refetch.
// It is never pre-checked.
type ConflictOnSave struct {
	EventID int64
	Fields  []string
}

func (e *ConflictOnSave) Error() string {
	return fmt.Sprintf("event %d diverged after save on fields: %s", e.EventID, strings.Join(e.Fields, ", "))
}

// TransportError wraps a network or store failure. Optimistic cache updates
// are rolled back when one surfaces; no automatic retry happens anywhere.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("store request %q failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
