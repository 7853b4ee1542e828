package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/pkg/core/authz"
	"github.com/sandwichproject/coordinator/pkg/core/cache"
	"github.com/sandwichproject/coordinator/pkg/core/escalation"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/db"
)

// MarkUnresponsive records a failed contact attempt. Status is untouched;
// the unresponsive flag is an independent axis.
func MarkUnresponsive(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	tracker *escalation.Tracker,
	auth authz.Authorizer,
	logger *zap.Logger,
	userID string,
	eventID int64,
	in escalation.MarkInput,
) error {
	if err := authz.Check(ctx, auth, userID, authz.ActionEscalate); err != nil {
		return err
	}
	err := mutateEscalation(ctx, store, col, eventID, func(e *model.EventRequest) (map[string]any, error) {
		return tracker.Mark(e, in)
	})
	if err != nil {
		return err
	}
	logger.Info("Marked contact unresponsive",
		zap.Int64("event_id", eventID),
		zap.String("reason", string(in.Reason)))
	return nil
}

// UpdateEscalation edits the reason and notes without counting another
// contact attempt.
func UpdateEscalation(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	tracker *escalation.Tracker,
	auth authz.Authorizer,
	logger *zap.Logger,
	userID string,
	eventID int64,
	reason model.UnresponsiveReason,
	notes string,
) error {
	if err := authz.Check(ctx, auth, userID, authz.ActionEscalate); err != nil {
		return err
	}
	err := mutateEscalation(ctx, store, col, eventID, func(e *model.EventRequest) (map[string]any, error) {
		return tracker.Update(e, reason, notes)
	})
	if err != nil {
		return err
	}
	logger.Info("Updated escalation", zap.Int64("event_id", eventID))
	return nil
}

// ResolveEscalation clears the unresponsive flag, preserving the historical
// attempt counters.
func ResolveEscalation(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	tracker *escalation.Tracker,
	auth authz.Authorizer,
	logger *zap.Logger,
	userID string,
	eventID int64,
) error {
	if err := authz.Check(ctx, auth, userID, authz.ActionEscalate); err != nil {
		return err
	}
	err := mutateEscalation(ctx, store, col, eventID, func(e *model.EventRequest) (map[string]any, error) {
		return tracker.Resolve(e), nil
	})
	if err != nil {
		return err
	}
	logger.Info("Resolved escalation", zap.Int64("event_id", eventID))
	return nil
}

func mutateEscalation(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	eventID int64,
	apply func(e *model.EventRequest) (map[string]any, error),
) error {
	var patch map[string]any
	return col.Mutate(ctx, store, eventID,
		func(e *model.EventRequest) error {
			p, err := apply(e)
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
}
