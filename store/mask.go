package store

import (
	"context"
	"fmt"

	"github.com/jamesainslie/go-cremi/evaluation"
	"github.com/jamesainslie/go-cremi/volume"
)

// CreateAndWriteMaskedNeuronIDs reads the neuron ids of in, masks every
// voxel within maxDist voxels of an in-plane label border with background
// and writes the result as the neuron ids of out.
//
// It does nothing if in has no neuron ids, or if out already has neuron ids
// and overwrite is false.
func CreateAndWriteMaskedNeuronIDs(ctx context.Context, in, out *File, maxDist float64, background uint64, overwrite bool) error {
	if err := out.writable(); err != nil {
		return err
	}

	ok, err := in.HasNeuronIDs(ctx)
	if err != nil || !ok {
		return err
	}
	if !overwrite {
		exists, err := out.HasNeuronIDs(ctx)
		if err != nil || exists {
			return err
		}
	}

	ids, err := in.ReadNeuronIDs(ctx)
	if err != nil {
		return err
	}

	masked := &volume.Volume{
		Data:       make([]uint64, len(ids.Data)),
		Shape:      ids.Shape,
		Resolution: ids.Resolution,
		Offset:     ids.Offset,
		Comment:    fmt.Sprintf("Border masked with max_dist=%f", maxDist),
	}
	if ids.Comment != "" {
		masked.Comment = ids.Comment + " " + masked.Comment
	}
	if err := evaluation.CreateBorderMask(ids, masked, maxDist, background, 0); err != nil {
		return fmt.Errorf("mask neuron ids of %s: %w", in.Path(), err)
	}
	return out.WriteNeuronIDs(ctx, masked)
}
