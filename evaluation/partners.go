package evaluation

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jamesainslie/go-cremi/annotations"
	"github.com/jamesainslie/go-cremi/geom"
	"github.com/jamesainslie/go-cremi/volume"
)

// Match is an accepted pairing of a predicted partner pair (Rec) with a
// ground-truth partner pair (GT), as indices into the partner lists.
type Match struct {
	Rec  int
	GT   int
	Cost float64
}

// PartnerStats is the full result of a synaptic partner evaluation.
type PartnerStats struct {
	Score
	Matches []Match
}

// SynapticPartners scores predicted synaptic partners against ground truth.
type SynapticPartners struct {
	threshold float64
	logger    *slog.Logger
}

// NewSynapticPartners returns an evaluator that accepts a pair of partner
// pairs as a potential match when both their pre- and postsynaptic sites
// lie within matchingThreshold (physical units) of each other.
func NewSynapticPartners(matchingThreshold float64, opts ...Option) (*SynapticPartners, error) {
	if !(matchingThreshold > 0) || math.IsInf(matchingThreshold, 0) {
		return nil, fmt.Errorf("%w: matching threshold %v", ErrInvalidThreshold, matchingThreshold)
	}
	cfg := newConfig(opts)
	return &SynapticPartners{threshold: matchingThreshold, logger: cfg.logger}, nil
}

// MatchingThreshold returns the configured threshold.
func (s *SynapticPartners) MatchingThreshold() float64 { return s.threshold }

// FScore returns the F-score of rec against gt. gtSeg is the ground-truth
// neuron segmentation used to look up the segments each pair connects.
func (s *SynapticPartners) FScore(rec, gt *annotations.Annotations, gtSeg *volume.Volume) (float64, error) {
	stats, err := s.Stats(rec, gt, gtSeg)
	if err != nil {
		return 0, err
	}
	return stats.FScore, nil
}

// Stats returns the F-score together with precision, recall, false
// positive and false negative counts, and the accepted matches.
func (s *SynapticPartners) Stats(rec, gt *annotations.Annotations, gtSeg *volume.Volume) (*PartnerStats, error) {
	costs, err := s.CostMatrix(rec, gt, gtSeg)
	if err != nil {
		return nil, err
	}

	var matches []Match
	if costs != nil {
		s.logger.Debug("finding cost-minimal matches")
		rowToCol, err := SolveAssignment(costs)
		if err != nil {
			return nil, err
		}
		for i, j := range rowToCol {
			if c := costs.At(i, j); c <= s.threshold {
				matches = append(matches, Match{Rec: i, GT: j, Cost: c})
			}
		}
	}
	s.logger.Debug("matches found", "matches", len(matches))

	numRec := len(rec.PrePostPartners())
	numGT := len(gt.PrePostPartners())

	// unmatched in rec are false positives, unmatched in gt false negatives
	fp := numRec - len(matches)
	fn := numGT - len(matches)
	tp := numGT - fn

	return &PartnerStats{Score: NewScore(tp, fp, fn), Matches: matches}, nil
}

// CostMatrix returns the square matching cost matrix between the partner
// pairs of rec (rows) and gt (columns), or nil if both have no pairs.
//
// Entries are the mean of the pre- and postsynaptic distances, or
// 2*threshold when the pairs connect different segments, either distance
// exceeds the threshold, or the entry pads the smaller side.
func (s *SynapticPartners) CostMatrix(rec, gt *annotations.Annotations, gtSeg *volume.Volume) (*mat.Dense, error) {
	s.logger.Debug("computing matching costs")

	if err := gtSeg.Validate(); err != nil {
		return nil, fmt.Errorf("ground truth segmentation: %w", err)
	}

	recLocs, err := prePostLocations(rec, gtSeg)
	if err != nil {
		return nil, fmt.Errorf("predicted partners: %w", err)
	}
	gtLocs, err := prePostLocations(gt, gtSeg)
	if err != nil {
		return nil, fmt.Errorf("ground truth partners: %w", err)
	}
	recLabels, err := prePostLabels(recLocs, gtSeg)
	if err != nil {
		return nil, fmt.Errorf("predicted partners: %w", err)
	}
	gtLabels, err := prePostLabels(gtLocs, gtSeg)
	if err != nil {
		return nil, fmt.Errorf("ground truth partners: %w", err)
	}

	size := max(len(recLocs), len(gtLocs))
	if size == 0 {
		return nil, nil
	}

	maxCost := 2 * s.threshold
	costs := mat.NewDense(size, size, nil)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			costs.Set(i, j, maxCost)
		}
	}

	potential := 0
	for i := range recLocs {
		for j := range gtLocs {
			c := s.cost(recLocs[i], gtLocs[j], recLabels[i], gtLabels[j])
			costs.Set(i, j, c)
			if c <= s.threshold {
				potential++
			}
		}
	}
	s.logger.Debug("potential matches found", "potential", potential, "size", size)

	return costs, nil
}

func (s *SynapticPartners) cost(a, b prePost, labelsA, labelsB [2]uint64) float64 {
	maxCost := 2 * s.threshold

	// pairs do not link the same segments
	if labelsA != labelsB {
		return maxCost
	}

	preDist := geom.Distance(a.pre, b.pre)
	postDist := geom.Distance(a.post, b.post)
	if preDist > s.threshold || postDist > s.threshold {
		return maxCost
	}

	return 0.5 * (preDist + postDist)
}

type prePost struct {
	pre  []float64
	post []float64
}

// prePostLocations returns the partner locations of a relative to the
// offset of seg.
func prePostLocations(a *annotations.Annotations, seg *volume.Volume) ([]prePost, error) {
	partners := a.PrePostPartners()
	if len(partners) == 0 {
		return nil, nil
	}

	origin := a.Origin()
	if len(origin) != seg.Dims() {
		return nil, fmt.Errorf("%w: annotation offset %v for %d-dimensional segmentation", ErrDimensionMismatch, origin, seg.Dims())
	}
	shift := geom.Sub(origin, seg.Origin())

	locs := make([]prePost, len(partners))
	for i, p := range partners {
		_, pre, err := a.Get(p.Pre)
		if err != nil {
			return nil, err
		}
		_, post, err := a.Get(p.Post)
		if err != nil {
			return nil, err
		}
		if len(pre) != len(shift) || len(post) != len(shift) {
			return nil, fmt.Errorf("%w: partners %d -> %d for %d-dimensional segmentation", ErrDimensionMismatch, p.Pre, p.Post, len(shift))
		}
		locs[i] = prePost{pre: geom.Add(pre, shift), post: geom.Add(post, shift)}
	}
	return locs, nil
}

func prePostLabels(locs []prePost, seg *volume.Volume) ([][2]uint64, error) {
	labels := make([][2]uint64, len(locs))
	for i, l := range locs {
		pre, err := seg.At(l.pre)
		if err != nil {
			return nil, fmt.Errorf("presynaptic site of pair %d: %w", i, err)
		}
		post, err := seg.At(l.post)
		if err != nil {
			return nil, fmt.Errorf("postsynaptic site of pair %d: %w", i, err)
		}
		labels[i] = [2]uint64{pre, post}
	}
	return labels, nil
}
