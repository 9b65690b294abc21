package source

import (
	"context"

	"github.com/egpivo/ethereum-account-state/internal/event"
)

// Source delivers a complete batch of raw event records.
//
// Implementations must return the full batch or an error, never a
// partial batch, so the engine's all-or-nothing contract holds.
// Record order within the batch carries no meaning.
type Source interface {
	Records(ctx context.Context) ([]event.RawRecord, error)
}

// Static is a fixed in-memory batch, the simplest Source. Used by the
// pre-flight validator path and by tests.
type Static []event.RawRecord

// Records returns the batch unchanged.
func (s Static) Records(ctx context.Context) ([]event.RawRecord, error) {
	return s, nil
}
