package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/pkg/core/cache"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/db"
)

// RefreshEventRequests loads the full collection into the cache and returns
// it ordered by id.
func RefreshEventRequests(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	logger *zap.Logger,
) ([]*model.EventRequest, error) {
	if err := col.Refetch(ctx, store); err != nil {
		return nil, err
	}
	events := col.All()
	logger.Debug("Loaded event requests", zap.Int("count", len(events)))
	return events, nil
}

// GetEventRequest returns one record from the cache, refetching once on a
// miss so a fresh process can address records by id.
func GetEventRequest(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	logger *zap.Logger,
	eventID int64,
) (*model.EventRequest, error) {
	if e, ok := col.Get(eventID); ok {
		return e, nil
	}
	if err := col.Refetch(ctx, store); err != nil {
		return nil, err
	}
	e, ok := col.Get(eventID)
	if !ok {
		return nil, model.ErrNotFound
	}
	return e, nil
}

// CreateEventRequest records a fresh intake submission: status new, all
// assignment and transportation fields empty.
func CreateEventRequest(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	logger *zap.Logger,
	e *model.EventRequest,
) (*model.EventRequest, error) {
	e.Status = model.StatusNew
	err := col.Insert(ctx, store, e, func(ctx context.Context) error {
		return wrapStore("insert", store.InsertEventRequest(ctx, e))
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Created event request",
		zap.Int64("event_id", e.ID),
		zap.String("organization", e.Organization))
	return e, nil
}
