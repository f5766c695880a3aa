package cremi

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrMissingThreshold indicates a required threshold option was not given.
	ErrMissingThreshold = errors.New("cremi: missing threshold")

	// ErrNoGroundTruth indicates a ground truth container with nothing to
	// evaluate against.
	ErrNoGroundTruth = errors.New("cremi: ground truth holds no neuron ids, clefts or annotations")
)
