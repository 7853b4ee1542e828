package staging

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// UndoWindow is how long an autosaved edit stays undoable.
const UndoWindow = 8 * time.Second

// UndoToken holds the pre-edit value of one autosaved field edit. Expiry is
// plain wall clock, not a blocking wait.
type UndoToken struct {
	ID            string
	EventID       int64
	Field         string
	PreviousValue any
	ExpiresAt     time.Time
}

type undoKey struct {
	eventID int64
	field   string
}

// UndoRegistry tracks the active undo token per (event, field). A second
// edit to the same field before expiry replaces the prior token, so only the
// most recent edit is undoable.
type UndoRegistry struct {
	mu     sync.Mutex
	tokens map[undoKey]*UndoToken
	window time.Duration
	now    func() time.Time
}

// NewUndoRegistry creates a registry with the given undo window; zero means
// the default 8 seconds.
func NewUndoRegistry(window time.Duration) *UndoRegistry {
	if window <= 0 {
		window = UndoWindow
	}
	return &UndoRegistry{
		tokens: make(map[undoKey]*UndoToken),
		window: window,
		now:    time.Now,
	}
}

// Mint creates the undo token for a just-committed autosave, cancelling any
// prior token for the same (event, field).
func (r *UndoRegistry) Mint(eventID int64, field string, previousValue any) *UndoToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	token := &UndoToken{
		ID:            uuid.New().String(),
		EventID:       eventID,
		Field:         field,
		PreviousValue: previousValue,
		ExpiresAt:     r.now().Add(r.window),
	}
	r.tokens[undoKey{eventID, field}] = token
	return token
}

// Active returns the unexpired token for a field, if any.
func (r *UndoRegistry) Active(eventID int64, field string) (*UndoToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := undoKey{eventID, field}
	token, ok := r.tokens[key]
	if !ok {
		return nil, false
	}
	if r.now().After(token.ExpiresAt) {
		delete(r.tokens, key)
		return nil, false
	}
	return token, true
}

// Consume removes and returns the token with the given id when it is still
// active. An expired token is dropped and reported as not found.
func (r *UndoRegistry) Consume(tokenID string) (*UndoToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, token := range r.tokens {
		if token.ID != tokenID {
			continue
		}
		delete(r.tokens, key)
		if r.now().After(token.ExpiresAt) {
			return nil, false
		}
		return token, true
	}
	return nil, false
}
