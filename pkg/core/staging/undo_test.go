package staging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clockedRegistry returns a registry driven by a movable fake clock.
func clockedRegistry(window time.Duration) (*UndoRegistry, *time.Time) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	r := NewUndoRegistry(window)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestUndoRegistry_MintAndConsume(t *testing.T) {
	r, now := clockedRegistry(0)

	token := r.Mint(1, "planningNotes", "old value")
	require.NotEmpty(t, token.ID)
	assert.Equal(t, "old value", token.PreviousValue)
	assert.Equal(t, now.Add(UndoWindow), token.ExpiresAt, "zero window falls back to the default")

	consumed, ok := r.Consume(token.ID)
	require.True(t, ok)
	assert.Equal(t, token.ID, consumed.ID)

	// A token is single-use
	_, ok = r.Consume(token.ID)
	assert.False(t, ok)
}

func TestUndoRegistry_SecondEditReplacesToken(t *testing.T) {
	// Edit A then edit B on the same field: only B is undoable, and undoing
	// B restores B's pre-edit value (the result of A), not the original.
	r, _ := clockedRegistry(8 * time.Second)

	tokenA := r.Mint(1, "planningNotes", "original")
	tokenB := r.Mint(1, "planningNotes", "after edit A")

	_, ok := r.Consume(tokenA.ID)
	assert.False(t, ok, "edit B cancels edit A's token")

	consumed, ok := r.Consume(tokenB.ID)
	require.True(t, ok)
	assert.Equal(t, "after edit A", consumed.PreviousValue)
}

func TestUndoRegistry_DifferentFieldsKeepSeparateTokens(t *testing.T) {
	r, _ := clockedRegistry(8 * time.Second)

	notes := r.Mint(1, "planningNotes", "a")
	date := r.Mint(1, "desiredEventDate", "2026-03-01")

	_, ok := r.Consume(notes.ID)
	assert.True(t, ok)
	_, ok = r.Consume(date.ID)
	assert.True(t, ok)
}

func TestUndoRegistry_ExpiredTokenIsGone(t *testing.T) {
	r, now := clockedRegistry(8 * time.Second)
	token := r.Mint(1, "planningNotes", "old")

	*now = now.Add(9 * time.Second)

	_, ok := r.Consume(token.ID)
	assert.False(t, ok)
	_, ok = r.Active(1, "planningNotes")
	assert.False(t, ok)
}

func TestUndoRegistry_ActiveWithinWindow(t *testing.T) {
	r, now := clockedRegistry(8 * time.Second)
	token := r.Mint(1, "planningNotes", "old")

	*now = now.Add(7 * time.Second)

	active, ok := r.Active(1, "planningNotes")
	require.True(t, ok)
	assert.Equal(t, token.ID, active.ID)
}

func TestUndoRegistry_UnknownToken(t *testing.T) {
	r, _ := clockedRegistry(8 * time.Second)
	_, ok := r.Consume("no-such-token")
	assert.False(t, ok)
}
