package evaluation

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/jamesainslie/go-cremi/volume"
)

const (
	// NoCleftLabel marks voxels outside any cleft.
	NoCleftLabel uint64 = math.MaxUint64

	// InvalidLabel marks voxels excluded from cleft evaluation.
	InvalidLabel uint64 = math.MaxUint64 - 1
)

// Stats summarises distances of mismatched cleft voxels. With Count == 0
// every float field is NaN.
type Stats struct {
	Mean   float64
	Std    float64
	Max    float64
	Count  int
	Median float64
}

// Clefts compares a predicted cleft volume against ground truth.
type Clefts struct {
	testMask  []bool
	truthMask []bool

	// distance of every voxel to the nearest cleft voxel of that volume,
	// in physical units
	testDist  []float64
	truthDist []float64

	logger *slog.Logger
}

// NewClefts builds the cleft masks of test and truth and their distance
// fields. Voxels labelled InvalidLabel in either volume are removed from
// both masks.
func NewClefts(test, truth *volume.Volume, opts ...Option) (*Clefts, error) {
	cfg := newConfig(opts)

	if err := test.Validate(); err != nil {
		return nil, fmt.Errorf("test clefts: %w", err)
	}
	if err := truth.Validate(); err != nil {
		return nil, fmt.Errorf("truth clefts: %w", err)
	}
	if !volume.SameShape(test, truth) {
		return nil, fmt.Errorf("%w: test %v, truth %v", ErrShapeMismatch, test.Shape, truth.Shape)
	}

	c := &Clefts{
		testMask:  make([]bool, test.Len()),
		truthMask: make([]bool, truth.Len()),
		logger:    cfg.logger,
	}
	for i := range c.testMask {
		valid := test.Data[i] != InvalidLabel && truth.Data[i] != InvalidLabel
		c.testMask[i] = valid && test.Data[i] != NoCleftLabel
		c.truthMask[i] = valid && truth.Data[i] != NoCleftLabel
	}

	c.logger.Debug("computing cleft distance fields", "shape", test.Shape)

	var g errgroup.Group
	g.Go(func() error {
		c.testDist = DistanceTransform(invert(c.testMask), test.Shape, test.Resolution)
		return nil
	})
	g.Go(func() error {
		c.truthDist = DistanceTransform(invert(c.truthMask), truth.Shape, truth.Resolution)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

// CountFalsePositives counts predicted cleft voxels farther than threshold
// from the nearest ground-truth cleft voxel.
func (c *Clefts) CountFalsePositives(threshold float64) int {
	return countBeyond(c.testMask, c.truthDist, threshold)
}

// CountFalseNegatives counts ground-truth cleft voxels farther than
// threshold from the nearest predicted cleft voxel.
func (c *Clefts) CountFalseNegatives(threshold float64) int {
	return countBeyond(c.truthMask, c.testDist, threshold)
}

// AccFalsePositives summarises the distance of every predicted cleft voxel
// to the ground truth.
func (c *Clefts) AccFalsePositives() Stats {
	return summarize(selectWhere(c.testMask, c.truthDist))
}

// AccFalseNegatives summarises the distance of every ground-truth cleft
// voxel to the prediction.
func (c *Clefts) AccFalseNegatives() Stats {
	return summarize(selectWhere(c.truthMask, c.testDist))
}

func countBeyond(mask []bool, dist []float64, threshold float64) int {
	n := 0
	for i, m := range mask {
		if m && dist[i] > threshold {
			n++
		}
	}
	return n
}

func selectWhere(mask []bool, dist []float64) []float64 {
	var out []float64
	for i, m := range mask {
		if m {
			out = append(out, dist[i])
		}
	}
	return out
}

func invert(mask []bool) []bool {
	out := make([]bool, len(mask))
	for i, m := range mask {
		out[i] = !m
	}
	return out
}

func summarize(x []float64) Stats {
	if len(x) == 0 {
		nan := math.NaN()
		return Stats{Mean: nan, Std: nan, Max: nan, Median: nan}
	}
	mean, std := stat.PopMeanStdDev(x, nil)
	return Stats{
		Mean:   mean,
		Std:    std,
		Max:    floats.Max(x),
		Count:  len(x),
		Median: median(x),
	}
}

func median(x []float64) float64 {
	s := slices.Clone(x)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
