package evaluation

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrShapeMismatch indicates two volumes that must align do not.
	ErrShapeMismatch = errors.New("evaluation: shape mismatch")

	// ErrResolutionMismatch indicates two volumes with different voxel sizes.
	ErrResolutionMismatch = errors.New("evaluation: resolution mismatch")

	// ErrInvalidShape indicates a volume with unsupported dimensionality.
	ErrInvalidShape = errors.New("evaluation: invalid shape")

	// ErrInvalidAxis indicates a slice axis outside the volume.
	ErrInvalidAxis = errors.New("evaluation: invalid axis")

	// ErrInvalidThreshold indicates a non-positive or non-finite threshold.
	ErrInvalidThreshold = errors.New("evaluation: invalid threshold")

	// ErrInvalidCostMatrix indicates a cost matrix the assignment solver
	// cannot handle.
	ErrInvalidCostMatrix = errors.New("evaluation: invalid cost matrix")

	// ErrDimensionMismatch indicates annotation locations whose
	// dimensionality differs from the segmentation's.
	ErrDimensionMismatch = errors.New("evaluation: dimension mismatch")
)
