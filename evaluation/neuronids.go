package evaluation

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/jamesainslie/go-cremi/volume"
)

// BackgroundLabel is written over masked label borders. RemapBackground
// turns it into 0.
const BackgroundLabel uint64 = math.MaxUint64

// RemapBackground adds 1 to every label in place, so that BackgroundLabel
// wraps to 0 and every other label stays distinct and non-zero.
func RemapBackground(labels []uint64) {
	for i := range labels {
		labels[i]++
	}
}

// NeuronIDs scores neuron segmentations against a ground truth.
type NeuronIDs struct {
	groundtruth     *volume.Volume
	borderThreshold float64

	// ground truth after border masking and RemapBackground
	gt []uint64

	logger *slog.Logger
}

// NewNeuronIDs prepares gt for evaluation. When borderThreshold is
// positive, voxels within borderThreshold (physical units, measured in the
// x-y plane) of a label border in the same section are ignored.
//
// gt must be 3-D with equal x and y resolution.
func NewNeuronIDs(gt *volume.Volume, borderThreshold float64, opts ...Option) (*NeuronIDs, error) {
	cfg := newConfig(opts)

	if err := gt.Validate(); err != nil {
		return nil, fmt.Errorf("ground truth: %w", err)
	}
	if gt.Dims() != 3 {
		return nil, fmt.Errorf("%w: ground truth must be 3-D, got shape %v", ErrInvalidShape, gt.Shape)
	}
	if gt.Resolution[1] != gt.Resolution[2] {
		return nil, fmt.Errorf("%w: x and y resolutions of ground truth are not the same (%f != %f)",
			ErrResolutionMismatch, gt.Resolution[1], gt.Resolution[2])
	}

	n := &NeuronIDs{
		groundtruth:     gt,
		borderThreshold: borderThreshold,
		logger:          cfg.logger,
	}

	if borderThreshold > 0 {
		n.logger.Info("computing border mask", "border_threshold", borderThreshold)
		masked := &volume.Volume{Data: make([]uint64, gt.Len()), Shape: slices.Clone(gt.Shape)}
		if err := CreateBorderMask(gt, masked, borderThreshold/gt.Resolution[1], BackgroundLabel, 0); err != nil {
			return nil, err
		}
		n.gt = masked.Data
	} else {
		n.gt = slices.Clone(gt.Data)
	}

	RemapBackground(n.gt)
	return n, nil
}

// GroundTruth returns the masked and remapped ground-truth labels. The
// returned slice must not be modified.
func (n *NeuronIDs) GroundTruth() []uint64 { return n.gt }

func (n *NeuronIDs) check(seg *volume.Volume) error {
	if !volume.SameShape(seg, n.groundtruth) {
		return fmt.Errorf("%w: segmentation %v, ground truth %v", ErrShapeMismatch, seg.Shape, n.groundtruth.Shape)
	}
	if !slices.Equal(seg.Resolution, n.groundtruth.Resolution) {
		return fmt.Errorf("%w: segmentation %v, ground truth %v", ErrResolutionMismatch, seg.Resolution, n.groundtruth.Resolution)
	}
	return checkData(seg)
}

// VOI returns the split and merge variation of information of seg,
// ignoring masked ground-truth voxels.
func (n *NeuronIDs) VOI(seg *volume.Volume) (split, merge float64, err error) {
	if err := n.check(seg); err != nil {
		return 0, 0, err
	}
	n.logger.Info("computing VOI")
	split, merge = VOI(seg.Data, n.gt, nil, []uint64{0})
	return split, merge, nil
}

// AdaptedRand returns the adapted Rand error of seg.
func (n *NeuronIDs) AdaptedRand(seg *volume.Volume) (float64, error) {
	if err := n.check(seg); err != nil {
		return 0, err
	}
	n.logger.Info("computing RAND")
	return AdaptedRand(seg.Data, n.gt), nil
}
