package evaluation

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/go-cremi/volume"
)

// CreateBorderMask writes input into target with every voxel within maxDist
// of a label border replaced by background.
//
// Borders are found independently in each slice perpendicular to axis: a
// voxel is a border voxel if one of its orthogonal in-slice neighbours has a
// different label (4-neighbours for 3-D volumes). Slices are edge padded, so
// the slice perimeter is not a border by itself. maxDist is in voxels;
// negative values are clamped to 0, which selects exactly the border voxels.
//
// target may be input. input is never modified unless it is target.
func CreateBorderMask(input, target *volume.Volume, maxDist float64, background uint64, axis int) error {
	if len(input.Shape) < 2 {
		return fmt.Errorf("%w: border mask needs at least 2 dimensions, got shape %v", ErrInvalidShape, input.Shape)
	}
	if !volume.SameShape(input, target) {
		return fmt.Errorf("%w: input %v, target %v", ErrShapeMismatch, input.Shape, target.Shape)
	}
	if err := checkData(input); err != nil {
		return err
	}
	if err := checkData(target); err != nil {
		return err
	}
	if axis < 0 || axis >= len(input.Shape) {
		return fmt.Errorf("%w: axis %d for shape %v", ErrInvalidAxis, axis, input.Shape)
	}
	if !(maxDist > 0) {
		maxDist = 0
	}

	sliceShape := make([]int, 0, len(input.Shape)-1)
	for d, s := range input.Shape {
		if d != axis {
			sliceShape = append(sliceShape, s)
		}
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for z := 0; z < input.Shape[axis]; z++ {
		g.Go(func() error {
			idx := sliceIndices(input.Shape, axis, z)
			labels := make([]uint64, len(idx))
			for k, i := range idx {
				labels[k] = input.Data[i]
			}
			mask := BorderMaskSlice(labels, sliceShape, maxDist)
			for k, i := range idx {
				if mask[k] {
					target.Data[i] = background
				} else {
					target.Data[i] = labels[k]
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// BorderMaskSlice returns which elements of a single slice lie within
// maxDist of a border element.
func BorderMaskSlice(labels []uint64, shape []int, maxDist float64) []bool {
	if !(maxDist > 0) {
		maxDist = 0
	}

	strides := volume.Strides(shape)
	interior := make([]bool, len(labels))
	for i, l := range labels {
		interior[i] = true
		for d, n := range shape {
			c := (i / strides[d]) % n
			if c > 0 && labels[i-strides[d]] != l {
				interior[i] = false
				break
			}
			if c < n-1 && labels[i+strides[d]] != l {
				interior[i] = false
				break
			}
		}
	}

	dist := DistanceTransform(interior, shape, nil)
	mask := make([]bool, len(labels))
	for i, d := range dist {
		mask[i] = d <= maxDist
	}
	return mask
}

// sliceIndices returns the flat volume offsets of slice z along axis, in
// row-major order of the remaining axes.
func sliceIndices(shape []int, axis, z int) []int {
	strides := volume.Strides(shape)
	n := 1
	for d, s := range shape {
		if d != axis {
			n *= s
		}
	}
	idx := make([]int, n)
	for k := range idx {
		rem := k
		flat := z * strides[axis]
		for d := len(shape) - 1; d >= 0; d-- {
			if d == axis {
				continue
			}
			flat += (rem % shape[d]) * strides[d]
			rem /= shape[d]
		}
		idx[k] = flat
	}
	return idx
}

func checkData(v *volume.Volume) error {
	n := 1
	for _, s := range v.Shape {
		n *= s
	}
	if len(v.Data) != n {
		return fmt.Errorf("%w: %d values for shape %v", ErrInvalidShape, len(v.Data), v.Shape)
	}
	return nil
}
