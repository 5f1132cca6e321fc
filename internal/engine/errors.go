package engine

import (
	"errors"

	"github.com/theirongolddev/finpilot/internal/model"
)

// Failure kinds. Every error returned by the engine wraps exactly one of these.
var (
	// ErrInsufficientData means there is nothing to base a decision on.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMalformedEntity marks an entity excluded from a computation. It is
	// recorded in the decision trace rather than returned.
	ErrMalformedEntity = model.ErrMalformed
	// ErrNotFound means the decision does not exist or belongs to someone else.
	ErrNotFound = errors.New("decision not found")
	// ErrComputeConflict means another computation for the user is in flight.
	ErrComputeConflict = errors.New("decision computation already in progress")
	// ErrStore wraps failures of the snapshot reader or decision store.
	ErrStore = errors.New("store failure")
)
