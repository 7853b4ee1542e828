package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/pkg/core/authz"
	"github.com/sandwichproject/coordinator/pkg/core/cache"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/core/transportplan"
	"github.com/sandwichproject/coordinator/pkg/db"
)

// SetTransportPlan stores one delivery plan shape on the event. Fields of
// other shapes are left in place; the resolved plan is always recomputed by
// priority at read time.
func SetTransportPlan(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	auth authz.Authorizer,
	logger *zap.Logger,
	userID string,
	eventID int64,
	plan transportplan.Plan,
) error {
	if err := authz.Check(ctx, auth, userID, authz.ActionSetTransport); err != nil {
		return err
	}

	var patch map[string]any
	err := col.Mutate(ctx, store, eventID,
		func(e *model.EventRequest) error {
			p, err := transportplan.SetShape(e, plan)
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

	logger.Info("Transportation plan stored",
		zap.Int64("event_id", eventID),
		zap.String("shape", string(plan.Shape)))
	return nil
}
