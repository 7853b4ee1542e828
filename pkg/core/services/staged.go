package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/pkg/core/authz"
	"github.com/sandwichproject/coordinator/pkg/core/cache"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/core/staging"
	"github.com/sandwichproject/coordinator/pkg/db"
)

// SaveStaged commits every staged edit for an event as one request and
// clears the staged map on success. With nothing staged it is a no-op.
func SaveStaged(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	stager *staging.Stager,
	auth authz.Authorizer,
	logger *zap.Logger,
	userID string,
	eventID int64,
) error {
	pending := stager.Pending(eventID)
	if len(pending) == 0 {
		return nil
	}

	if err := authz.Check(ctx, auth, userID, authz.ActionEditRequest); err != nil {
		return err
	}

	err := col.Mutate(ctx, store, eventID,
		func(e *model.EventRequest) error {
			for field, value := range pending {
				if err := staging.SetField(e, field, value); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context) error {
			return wrapStore("patch", store.PatchEventRequest(ctx, eventID, pending))
		},
	)
	if err != nil {
		return err
	}

	stager.Clear(eventID)
	logger.Info("Saved staged edits",
		zap.Int64("event_id", eventID),
		zap.Int("fields", len(pending)))
	return nil
}
