// Package staging implements the two edit disciplines that coexist on event
// requests: staged edits held client-side until an explicit save-all, and
// autosaved edits that commit immediately but leave an 8-second undo window.
package staging

import (
	"encoding/json"
	"sync"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// EditorKind names which editor surface is open.
type EditorKind string

const (
	EditorNone          EditorKind = ""
	EditorDetails       EditorKind = "details"
	EditorTransport     EditorKind = "transport"
	EditorEscalation    EditorKind = "escalation"
	EditorPlanningNotes EditorKind = "planning_notes"
)

// EditorSession is the single value object describing what an operator is
// editing, replacing the scattered per-dialog flags the old tooling carried.
type EditorSession struct {
	OpenEditor    EditorKind
	TargetEventID int64
	TargetField   string
	DraftValue    any
}

// Stager accumulates staged field edits per event. Staged edits make no
// network call until SaveAll is committed by the caller; discarding drops
// them with no side effect.
type Stager struct {
	mu      sync.Mutex
	pending map[int64]map[string]any
}

func NewStager() *Stager {
	return &Stager{pending: make(map[int64]map[string]any)}
}

// Stage records a field edit for later batch save, overwriting any earlier
// staged value for the same field.
func (s *Stager) Stage(eventID int64, field string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.pending[eventID]
	if !ok {
		m = make(map[string]any)
		s.pending[eventID] = m
	}
	m[field] = value
}

// Pending returns a copy of the staged field map for an event. The copy is
// what a save-all commits as one request.
func (s *Stager) Pending(eventID int64) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.pending[eventID]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HasPending reports whether any staged edits exist for an event.
func (s *Stager) HasPending(eventID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[eventID]) > 0
}

// Discard drops all staged edits for an event without saving.
func (s *Stager) Discard(eventID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, eventID)
}

// Clear removes the staged map after a successful save-all.
func (s *Stager) Clear(eventID int64) {
	s.Discard(eventID)
}

// GetDisplayValue returns the staged value for a field when one is pending,
// otherwise the committed value read off the record's wire form.
func (s *Stager) GetDisplayValue(e *model.EventRequest, field string) any {
	s.mu.Lock()
	if m, ok := s.pending[e.ID]; ok {
		if v, staged := m[field]; staged {
			s.mu.Unlock()
			return v
		}
	}
	s.mu.Unlock()
	return committedValue(e, field)
}

func committedValue(e *model.EventRequest, field string) any {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m[field]
}
