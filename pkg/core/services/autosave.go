package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sandwichproject/coordinator/pkg/core/authz"
	"github.com/sandwichproject/coordinator/pkg/core/cache"
	"github.com/sandwichproject/coordinator/pkg/core/model"
	"github.com/sandwichproject/coordinator/pkg/core/staging"
	"github.com/sandwichproject/coordinator/pkg/db"
)

// ErrUndoExpired surfaces when an undo token is gone or past its window.
var ErrUndoExpired = errors.New("undo window expired")

// AutosaveField commits a single field edit immediately. On success an undo
// token holding the pre-edit value is minted; a newer edit to the same field
// replaces it. On failure the cached view is rolled back and the error
// surfaces with no retry.
func AutosaveField(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	undo *staging.UndoRegistry,
	auth authz.Authorizer,
	logger *zap.Logger,
	userID string,
	eventID int64,
	field string,
	value any,
) (*staging.UndoToken, error) {
	if err := authz.Check(ctx, auth, userID, authz.ActionEditRequest); err != nil {
		return nil, err
	}

	var previous any
	err := col.Mutate(ctx, store, eventID,
		func(e *model.EventRequest) error {
			previous = staging.CommittedValue(e, field)
			return staging.SetField(e, field, value)
		},
		func(ctx context.Context) error {
			return wrapStore("patch", store.PatchEventRequest(ctx, eventID, map[string]any{field: value}))
		},
	)
	if err != nil {
		return nil, err
	}

	token := undo.Mint(eventID, field, previous)
	logger.Debug("Autosaved field",
		zap.Int64("event_id", eventID),
		zap.String("field", field),
		zap.String("undo_token", token.ID))
	return token, nil
}

// UndoAutosave restores the value held by an active undo token. The token is
// consumed whether or not the restore commits.
func UndoAutosave(
	ctx context.Context,
	store db.EventRequestStore,
	col *cache.Collection,
	undo *staging.UndoRegistry,
	logger *zap.Logger,
	tokenID string,
) error {
	token, ok := undo.Consume(tokenID)
	if !ok {
		return ErrUndoExpired
	}

	err := col.Mutate(ctx, store, token.EventID,
		func(e *model.EventRequest) error {
			return staging.SetField(e, token.Field, token.PreviousValue)
		},
		func(ctx context.Context) error {
			return wrapStore("patch", store.PatchEventRequest(ctx, token.EventID, map[string]any{token.Field: token.PreviousValue}))
		},
	)
	if err != nil {
		return err
	}

	logger.Info("Undid autosaved edit",
		zap.Int64("event_id", token.EventID),
		zap.String("field", token.Field))
	return nil
}
