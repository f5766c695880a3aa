package store

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrNotFound indicates a volume that is not present in the container.
	ErrNotFound = errors.New("store: not found")

	// ErrReadOnly indicates a write to a container opened with ModeRead.
	ErrReadOnly = errors.New("store: container is read-only")

	// ErrInvalidContainer indicates a file that is not a container.
	ErrInvalidContainer = errors.New("store: not a container")

	// ErrCorruptPayload indicates a volume payload that cannot be decoded.
	ErrCorruptPayload = errors.New("store: corrupt volume payload")
)
