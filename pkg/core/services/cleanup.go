package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/pkg/core/authz"
	"github.com/sandwichproject/coordinator/pkg/core/cache"
	"github.com/sandwichproject/coordinator/pkg/core/dedupe"
	"github.com/sandwichproject/coordinator/pkg/db"
)

// CleanupDuplicates issues one bulk delete for the ids a pre-computed
// duplicate-detection result slates for removal, then reconciles the cache.
// No matching logic runs here.
func CleanupDuplicates(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	auth authz.Authorizer,
	logger *zap.Logger,
	userID string,
	result *dedupe.DetectionResult,
) ([]int64, error) {
	if err := authz.Check(ctx, auth, userID, authz.ActionDelete); err != nil {
		return nil, err
	}

	targets := dedupe.DeletionTargets(result)
	if len(targets) == 0 {
		logger.Info("No duplicate entries to delete")
		return nil, nil
	}

	if err := store.DeleteEventRequests(ctx, targets); err != nil {
		return nil, wrapStore("bulk_delete", err)
	}
	if err := col.Refetch(ctx, store); err != nil {
		return targets, err
	}

	logger.Info("Deleted duplicate event requests", zap.Int("count", len(targets)))
	return targets, nil
}
