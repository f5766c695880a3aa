package bench

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	cremi "github.com/jamesainslie/go-cremi"
)

// SweepResult holds metrics for one matching threshold.
type SweepResult struct {
	Threshold float64
	Metrics   Metrics
}

// SweepThresholds generates threshold values from min up to, but not
// including, max.
func SweepThresholds(min, max, step float64) []float64 {
	if !(step > 0) {
		return nil
	}
	var thresholds []float64
	for i := 0; ; i++ {
		t := min + float64(i)*step
		if t >= max {
			break
		}
		thresholds = append(thresholds, t)
	}
	return thresholds
}

// Sweep evaluates every sample at each matching threshold and returns the
// pooled results sorted by weighted score, best first. Undefined scores
// sort last. Each ground truth is loaded once; only the partner matching
// is repeated per threshold.
func Sweep(ctx context.Context, samples []*Sample, cfg Config, thresholds []float64, opts ...cremi.Option) ([]SweepResult, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	perThreshold := make([][]*cremi.Report, len(thresholds))
	for _, s := range samples {
		reports, err := sweepSample(ctx, s, cfg, thresholds, opts...)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", s.ID, err)
		}
		for i, r := range reports {
			perThreshold[i] = append(perThreshold[i], r)
		}
	}

	results := make([]SweepResult, 0, len(thresholds))
	for i, threshold := range thresholds {
		results = append(results, SweepResult{
			Threshold: threshold,
			Metrics:   Aggregate(perThreshold[i], cfg),
		})
	}

	// Sort by weighted score descending
	slices.SortStableFunc(results, func(a, b SweepResult) int {
		return cmp.Compare(b.Metrics.WeightedScore, a.Metrics.WeightedScore)
	})

	return results, nil
}

// sweepSample returns one report per threshold for s. Neuron id and cleft
// results do not depend on the matching threshold and are shared.
func sweepSample(ctx context.Context, s *Sample, cfg Config, thresholds []float64, opts ...cremi.Option) ([]*cremi.Report, error) {
	cfg.MatchingThreshold = thresholds[0]
	ev, err := cremi.New(ctx, s.TruthPath(), append(cfg.Options(), opts...)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ev.Close() }()

	submission := s.SubmissionPath(cfg.Submission)
	base, err := ev.Evaluate(ctx, submission)
	if err != nil {
		return nil, err
	}
	partners, err := ev.EvaluatePartnersAt(ctx, submission, thresholds)
	if err != nil {
		return nil, err
	}

	reports := make([]*cremi.Report, len(thresholds))
	for i := range thresholds {
		r := *base
		if partners != nil {
			r.Partners = partners[i]
		}
		reports[i] = &r
	}
	return reports, nil
}
