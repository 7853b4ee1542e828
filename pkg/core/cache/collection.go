// Package cache holds the client-side view of the event request collection
// and implements the shared mutation discipline: optimistic local update,
// rollback on store failure, and a full refetch on settle so divergent edits
// to different records eventually converge. Edits to the same record from two
// actors are not serialized; the last write to reach the store wins.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// Fetcher is the read side of the storage backend the cache reconciles with.
type Fetcher interface {
	GetEventRequests(ctx context.Context) ([]*model.EventRequest, error)
}

// Collection is an in-memory mirror of the event request collection.
type Collection struct {
	mu     sync.RWMutex
	byID   map[int64]*model.EventRequest
	logger *zap.Logger
}

// NewCollection creates an empty collection cache.
func NewCollection(logger *zap.Logger) *Collection {
	return &Collection{
		byID:   make(map[int64]*model.EventRequest),
		logger: logger,
	}
}

// ReplaceAll swaps the cached collection for a freshly fetched one.
func (c *Collection) ReplaceAll(events []*model.EventRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[int64]*model.EventRequest, len(events))
	for _, e := range events {
		c.byID[e.ID] = e
	}
}

// Get returns a deep copy of the cached record, so callers can stage local
// mutations without touching the cache.
func (c *Collection) Get(id int64) (*model.EventRequest, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// All returns deep copies of every cached record, ordered by id.
func (c *Collection) All() []*model.EventRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.EventRequest, 0, len(c.byID))
	for _, e := range c.byID {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of cached records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// put stores the record as-is (optimistic shape or rollback snapshot).
func (c *Collection) put(e *model.EventRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[e.ID] = e
}

// drop removes a record, for rolling back an optimistic insert.
func (c *Collection) drop(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}

// Refetch reloads the full collection from the store and reconciles the
// cache with it. Runs after every mutation, success or failure.
func (c *Collection) Refetch(ctx context.Context, store Fetcher) error {
	events, err := store.GetEventRequests(ctx)
	if err != nil {
		return &model.TransportError{Op: "refetch", Err: err}
	}
	c.ReplaceAll(events)
	c.logger.Debug("Reconciled collection cache", zap.Int("count", len(events)))
	return nil
}

// Mutate runs one mutation under the optimistic-update-then-reconcile
// contract:
//
//  1. apply mutates a working copy to the expected post-mutation shape;
//     a guard error here resolves locally with no store call and no cache
//     change.
//  2. The working copy replaces the cached record immediately.
//  3. commit issues the store request. On failure the pre-mutation snapshot
//     is restored and the error surfaces; nothing is retried.
//  4. On settle the full collection is refetched. After a successful commit
//     the refetched record is diffed against the expected shape; divergence
//     surfaces as *model.ConflictOnSave — never pre-checked.
func (c *Collection) Mutate(
	ctx context.Context,
	store Fetcher,
	id int64,
	apply func(e *model.EventRequest) error,
	commit func(ctx context.Context) error,
) error {
	snapshot, ok := c.Get(id)
	if !ok {
		return model.ErrNotFound
	}

	working := snapshot.Clone()
	if err := apply(working); err != nil {
		return err
	}
	c.put(working)

	commitErr := commit(ctx)
	if commitErr != nil {
		c.put(snapshot)
		c.logger.Warn("Mutation failed, rolled back optimistic update",
			zap.Int64("event_id", id),
			zap.Error(commitErr))
	}

	if err := c.Refetch(ctx, store); err != nil {
		if commitErr != nil {
			return commitErr
		}
		return err
	}

	if commitErr != nil {
		return commitErr
	}

	if stored, ok := c.Get(id); ok {
		if fields := diffFields(working, stored); len(fields) > 0 {
			return &model.ConflictOnSave{EventID: id, Fields: fields}
		}
	}
	return nil
}

// Insert adds a brand-new record optimistically, commits it, and reconciles.
func (c *Collection) Insert(
	ctx context.Context,
	store Fetcher,
	e *model.EventRequest,
	commit func(ctx context.Context) error,
) error {
	c.put(e.Clone())

	commitErr := commit(ctx)
	if commitErr != nil {
		c.drop(e.ID)
	}
	if err := c.Refetch(ctx, store); err != nil && commitErr == nil {
		return err
	}
	return commitErr
}

// diffFields compares two records through their wire form and returns the
// names of top-level fields that differ.
func diffFields(expected, actual *model.EventRequest) []string {
	em, err1 := toMap(expected)
	am, err2 := toMap(actual)
	if err1 != nil || err2 != nil {
		return nil
	}
	var fields []string
	for key, ev := range em {
		if !reflect.DeepEqual(ev, am[key]) {
			fields = append(fields, key)
		}
	}
	for key := range am {
		if _, ok := em[key]; !ok {
			fields = append(fields, key)
		}
	}
	sort.Strings(fields)
	return fields
}

func toMap(e *model.EventRequest) (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event request: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event request: %w", err)
	}
	return m, nil
}
