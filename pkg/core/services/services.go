// Package services wires the core components together, one operation per
// file: authorization verdict, local guard, optimistic cache update, store
// request, refetch reconciliation. Services never retry; every retry is
// operator-initiated.
package services

import (
	"errors"

	"github.com/sandwichproject/coordinator/pkg/core/model"
)

// wrapStore maps a store failure onto the domain taxonomy. Guard sentinels
// and NotFound pass through; anything else is a transport failure that
// triggers rollback upstream.
func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrCapacityExceeded) {
		return err
	}
	return &model.TransportError{Op: op, Err: err}
}
