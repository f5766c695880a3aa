// Package volume holds N-dimensional label volumes with physical voxel
// geometry.
package volume

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/jamesainslie/go-cremi/geom"
)

var (
	// ErrOutOfBounds indicates a physical location outside the volume.
	ErrOutOfBounds = errors.New("volume: location does not lie inside volume")

	// ErrInvalidVolume indicates inconsistent data, shape or resolution.
	ErrInvalidVolume = errors.New("volume: invalid volume")
)

// OutOfBoundsError reports a lookup that resolved to a voxel outside the
// volume. It matches ErrOutOfBounds with errors.Is.
type OutOfBoundsError struct {
	Location []float64
	Index    []int
	Shape    []int
	cause    error
}

func (e *OutOfBoundsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("location %v does not lie inside volume: %v", e.Location, e.cause)
	}
	return fmt.Sprintf("location %v does not lie inside volume", e.Location)
}

func (e *OutOfBoundsError) Unwrap() error { return e.cause }

func (e *OutOfBoundsError) Is(target error) bool { return target == ErrOutOfBounds }

// Volume is a row-major N-dimensional array of uint64 labels.
//
// Resolution is the physical size of a voxel per axis and Offset the
// physical position of voxel zero. Locations passed to At and Set are
// relative to Offset.
type Volume struct {
	Data       []uint64
	Shape      []int
	Resolution []float64
	Offset     []float64
	Comment    string
}

// New allocates a zero-filled volume with unit resolution and zero offset.
func New(shape ...int) *Volume {
	n := 1
	for _, s := range shape {
		n *= s
	}
	res := make([]float64, len(shape))
	for i := range res {
		res[i] = 1
	}
	return &Volume{
		Data:       make([]uint64, n),
		Shape:      slices.Clone(shape),
		Resolution: res,
		Offset:     make([]float64, len(shape)),
	}
}

// Validate checks the volume invariants.
func (v *Volume) Validate() error {
	if len(v.Shape) == 0 {
		return fmt.Errorf("%w: empty shape", ErrInvalidVolume)
	}
	n := 1
	for d, s := range v.Shape {
		if s < 0 {
			return fmt.Errorf("%w: negative extent %d on axis %d", ErrInvalidVolume, s, d)
		}
		n *= s
	}
	if len(v.Data) != n {
		return fmt.Errorf("%w: %d values for shape %v", ErrInvalidVolume, len(v.Data), v.Shape)
	}
	if len(v.Resolution) != len(v.Shape) {
		return fmt.Errorf("%w: resolution %v for %d dimensions", ErrInvalidVolume, v.Resolution, len(v.Shape))
	}
	for d, r := range v.Resolution {
		if !(r > 0) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: resolution %v on axis %d", ErrInvalidVolume, r, d)
		}
	}
	if len(v.Offset) != 0 && len(v.Offset) != len(v.Shape) {
		return fmt.Errorf("%w: offset %v for %d dimensions", ErrInvalidVolume, v.Offset, len(v.Shape))
	}
	return nil
}

// Dims returns the number of dimensions.
func (v *Volume) Dims() int { return len(v.Shape) }

// Len returns the number of voxels.
func (v *Volume) Len() int { return len(v.Data) }

// Origin returns Offset, or zeros if Offset is unset.
func (v *Volume) Origin() []float64 {
	return geom.OrZeros(v.Offset, len(v.Shape))
}

// Strides returns the row-major element strides.
func (v *Volume) Strides() []int {
	return Strides(v.Shape)
}

// Strides returns the row-major element strides for shape.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = s
		s *= shape[d]
	}
	return strides
}

// SameShape reports whether a and b have identical shapes.
func SameShape(a, b *Volume) bool {
	return slices.Equal(a.Shape, b.Shape)
}

// Index returns the flat offset of coords, or false if coords lie outside
// the volume.
func (v *Volume) Index(coords []int) (int, bool) {
	if len(coords) != len(v.Shape) {
		return 0, false
	}
	idx := 0
	stride := 1
	for d := len(v.Shape) - 1; d >= 0; d-- {
		c := coords[d]
		if c < 0 || c >= v.Shape[d] {
			return 0, false
		}
		idx += c * stride
		stride *= v.Shape[d]
	}
	return idx, true
}

// VoxelIndex rounds a physical location to the nearest voxel coordinates.
func (v *Volume) VoxelIndex(location []float64) []int {
	idx := make([]int, len(location))
	for d := range location {
		idx[d] = int(math.Round(location[d] / v.Resolution[d]))
	}
	return idx
}

func (v *Volume) locate(location []float64) (int, error) {
	if len(location) != len(v.Shape) {
		return 0, &OutOfBoundsError{
			Location: slices.Clone(location),
			Shape:    slices.Clone(v.Shape),
			cause:    fmt.Errorf("%d coordinates for %d dimensions", len(location), len(v.Shape)),
		}
	}
	if len(v.Resolution) != len(v.Shape) {
		return 0, fmt.Errorf("%w: resolution %v for %d dimensions", ErrInvalidVolume, v.Resolution, len(v.Shape))
	}
	for d, x := range location {
		// int conversion of NaN, Inf or values past the int range is
		// implementation-defined
		if r := math.Round(x / v.Resolution[d]); math.IsNaN(r) || math.Abs(r) >= math.MaxInt64 {
			return 0, &OutOfBoundsError{
				Location: slices.Clone(location),
				Shape:    slices.Clone(v.Shape),
				cause:    fmt.Errorf("coordinate %v on axis %d has no voxel index", x, d),
			}
		}
	}
	idx := v.VoxelIndex(location)
	if slices.Min(idx) < 0 {
		return 0, &OutOfBoundsError{Location: slices.Clone(location), Index: idx, Shape: slices.Clone(v.Shape)}
	}
	flat, ok := v.Index(idx)
	if !ok {
		return 0, &OutOfBoundsError{
			Location: slices.Clone(location),
			Index:    idx,
			Shape:    slices.Clone(v.Shape),
			cause:    fmt.Errorf("index %v out of range for shape %v", idx, v.Shape),
		}
	}
	return flat, nil
}

// At returns the label of the voxel nearest to location.
func (v *Volume) At(location []float64) (uint64, error) {
	flat, err := v.locate(location)
	if err != nil {
		return 0, err
	}
	return v.Data[flat], nil
}

// Set assigns the label of the voxel nearest to location.
func (v *Volume) Set(location []float64, value uint64) error {
	flat, err := v.locate(location)
	if err != nil {
		return err
	}
	v.Data[flat] = value
	return nil
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	return &Volume{
		Data:       slices.Clone(v.Data),
		Shape:      slices.Clone(v.Shape),
		Resolution: slices.Clone(v.Resolution),
		Offset:     slices.Clone(v.Offset),
		Comment:    v.Comment,
	}
}
