package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/pkg/core/authz"
	"github.com/sandwichproject/coordinator/pkg/core/cache"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/core/status"
	"github.com/sandwichproject/coordinator/pkg/db"
)

// TransitionStatus runs one lifecycle transition against an event request.
// The status change and its side-effect stamps commit as a single patch.
func TransitionStatus(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	auth authz.Authorizer,
	logger *zap.Logger,
	userID string,
	eventID int64,
	action status.Action,
	in status.Input,
) error {
	if err := authz.Check(ctx, auth, userID, authz.ActionTransition); err != nil {
		return err
	}

	var patch status.Patch
	err := col.Mutate(ctx, store, eventID,
		func(e *model.EventRequest) error {
			p, err := status.Apply(e, action, in)
			if err != nil {
				return err
			}
			patch = p
			return nil
		},
		func(ctx context.Context) error {
			return wrapStore("patch", store.PatchEventRequest(ctx, eventID, patch))
		},
	)
	if err != nil {
		return err
	}

	logger.Info("Status transition applied",
		zap.Int64("event_id", eventID),
		zap.String("action", string(action)))
	return nil
}
