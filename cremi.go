package cremi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/go-cremi/annotations"
	"github.com/jamesainslie/go-cremi/evaluation"
	"github.com/jamesainslie/go-cremi/metrics"
	"github.com/jamesainslie/go-cremi/store"
	"github.com/jamesainslie/go-cremi/volume"
)

// Component names used in logs and metrics.
const (
	ComponentNeuronIDs = "neuron_ids"
	ComponentClefts    = "clefts"
	ComponentPartners  = "synaptic_partners"
)

// NeuronIDsReport holds the segmentation scores.
type NeuronIDsReport struct {
	VOISplit    float64
	VOIMerge    float64
	AdaptedRand float64
}

// CleftsReport holds the cleft detection scores. Distances are in nm.
type CleftsReport struct {
	Threshold          float64
	FalsePositives     int
	FalseNegatives     int
	DistanceToTruth    evaluation.Stats
	DistanceToProposal evaluation.Stats
}

// PartnersReport holds the synaptic partner scores.
type PartnersReport struct {
	Threshold float64
	evaluation.PartnerStats
}

// Report is the result of evaluating one test container. A nil field means
// the ground truth has no data for that component.
type Report struct {
	NeuronIDs *NeuronIDsReport
	Clefts    *CleftsReport
	Partners  *PartnersReport
}

// Evaluator scores test containers against one ground truth container.
// It is safe for concurrent use.
type Evaluator struct {
	neuronIDs      *evaluation.NeuronIDs
	partners       *evaluation.SynapticPartners
	gtSeg          *volume.Volume
	gtClefts       *volume.Volume
	gtAnnotations  *annotations.Annotations
	cleftThreshold float64
	metrics        *metrics.Recorder
	logger         *slog.Logger
}

// New loads the ground truth container at truthPath.
func New(ctx context.Context, truthPath string, opts ...Option) (*Evaluator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if math.IsNaN(cfg.matchingThreshold) {
		return nil, fmt.Errorf("%w: matching threshold", ErrMissingThreshold)
	}
	if math.IsNaN(cfg.cleftThreshold) {
		return nil, fmt.Errorf("%w: cleft threshold", ErrMissingThreshold)
	}
	if cfg.cleftThreshold < 0 || math.IsInf(cfg.cleftThreshold, 0) {
		return nil, fmt.Errorf("%w: cleft threshold %v", evaluation.ErrInvalidThreshold, cfg.cleftThreshold)
	}
	if !(cfg.borderThreshold >= 0) || math.IsInf(cfg.borderThreshold, 0) {
		return nil, fmt.Errorf("%w: border threshold %v", evaluation.ErrInvalidThreshold, cfg.borderThreshold)
	}

	evalOpts := []evaluation.Option{evaluation.WithLogger(cfg.logger)}

	partners, err := evaluation.NewSynapticPartners(cfg.matchingThreshold, evalOpts...)
	if err != nil {
		return nil, err
	}

	truth, err := store.Open(ctx, truthPath, store.ModeRead)
	if err != nil {
		return nil, fmt.Errorf("opening ground truth: %w", err)
	}
	defer func() { _ = truth.Close() }()

	e := &Evaluator{
		partners:       partners,
		cleftThreshold: cfg.cleftThreshold,
		metrics:        cfg.metrics,
		logger:         cfg.logger,
	}

	e.gtSeg, err = readOptional(ctx, truth.ReadNeuronIDs)
	if err != nil {
		return nil, err
	}
	if e.gtSeg != nil {
		e.neuronIDs, err = evaluation.NewNeuronIDs(e.gtSeg, cfg.borderThreshold, evalOpts...)
		if err != nil {
			return nil, fmt.Errorf("preparing ground truth neuron ids: %w", err)
		}
	}

	e.gtClefts, err = readOptional(ctx, truth.ReadClefts)
	if err != nil {
		return nil, err
	}

	gtAnnotations, err := truth.ReadAnnotations(ctx)
	if err != nil {
		return nil, err
	}
	if gtAnnotations.Len() > 0 {
		if e.gtSeg == nil {
			return nil, fmt.Errorf("%w: %s has annotations but no neuron ids", store.ErrNotFound, truthPath)
		}
		e.gtAnnotations = gtAnnotations
	}

	if e.gtSeg == nil && e.gtClefts == nil && e.gtAnnotations == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoGroundTruth, truthPath)
	}

	e.logger.Info("loaded ground truth",
		"path", truthPath,
		"neuron_ids", e.gtSeg != nil,
		"clefts", e.gtClefts != nil,
		"annotations", gtAnnotations.Len(),
		"matching_threshold", cfg.matchingThreshold,
		"cleft_threshold", cfg.cleftThreshold,
		"border_threshold", cfg.borderThreshold)

	return e, nil
}

func readOptional(ctx context.Context, read func(context.Context) (*volume.Volume, error)) (*volume.Volume, error) {
	v, err := read(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// Evaluate opens the test container at testPath and scores it.
func (e *Evaluator) Evaluate(ctx context.Context, testPath string) (*Report, error) {
	test, err := store.Open(ctx, testPath, store.ModeRead)
	if err != nil {
		e.metrics.CountEvaluation(err)
		return nil, fmt.Errorf("opening test container: %w", err)
	}
	defer func() { _ = test.Close() }()

	return e.EvaluateFile(ctx, test)
}

// EvaluateFile scores an open test container. Components are evaluated
// concurrently; the first error cancels the rest and no partial report is
// returned.
func (e *Evaluator) EvaluateFile(ctx context.Context, test *store.File) (*Report, error) {
	start := time.Now()
	report := &Report{}

	g, ctx := errgroup.WithContext(ctx)
	if e.neuronIDs != nil {
		g.Go(func() (err error) {
			report.NeuronIDs, err = e.evaluateNeuronIDs(ctx, test)
			return err
		})
	}
	if e.gtClefts != nil {
		g.Go(func() (err error) {
			report.Clefts, err = e.evaluateClefts(ctx, test)
			return err
		})
	}
	if e.gtAnnotations != nil {
		g.Go(func() (err error) {
			report.Partners, err = e.evaluatePartners(ctx, test)
			return err
		})
	}
	err := g.Wait()
	e.metrics.CountEvaluation(err)
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", test.Path(), err)
	}

	e.logger.Info("evaluated", "path", test.Path(), "duration", time.Since(start))
	return report, nil
}

func (e *Evaluator) observe(component string, start time.Time) {
	d := time.Since(start)
	e.metrics.ObserveDuration(component, d)
	e.logger.Debug("component done", "component", component, "duration", d)
}

func (e *Evaluator) evaluateNeuronIDs(ctx context.Context, test *store.File) (*NeuronIDsReport, error) {
	defer e.observe(ComponentNeuronIDs, time.Now())

	seg, err := test.ReadNeuronIDs(ctx)
	if err != nil {
		return nil, err
	}
	split, merge, err := e.neuronIDs.VOI(seg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	are, err := e.neuronIDs.AdaptedRand(seg)
	if err != nil {
		return nil, err
	}

	e.metrics.SetScore(ComponentNeuronIDs, "voi_split", split)
	e.metrics.SetScore(ComponentNeuronIDs, "voi_merge", merge)
	e.metrics.SetScore(ComponentNeuronIDs, "adapted_rand", are)
	e.logger.Info("neuron ids",
		"voi_split", split,
		"voi_merge", merge,
		"adapted_rand", are)

	return &NeuronIDsReport{VOISplit: split, VOIMerge: merge, AdaptedRand: are}, nil
}

func (e *Evaluator) evaluateClefts(ctx context.Context, test *store.File) (*CleftsReport, error) {
	defer e.observe(ComponentClefts, time.Now())

	clefts, err := test.ReadClefts(ctx)
	if err != nil {
		return nil, err
	}
	c, err := evaluation.NewClefts(clefts, e.gtClefts, evaluation.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}

	r := &CleftsReport{
		Threshold:          e.cleftThreshold,
		FalsePositives:     c.CountFalsePositives(e.cleftThreshold),
		FalseNegatives:     c.CountFalseNegatives(e.cleftThreshold),
		DistanceToTruth:    c.AccFalsePositives(),
		DistanceToProposal: c.AccFalseNegatives(),
	}

	e.metrics.SetScore(ComponentClefts, "false_positives", float64(r.FalsePositives))
	e.metrics.SetScore(ComponentClefts, "false_negatives", float64(r.FalseNegatives))
	e.metrics.SetScore(ComponentClefts, "distance_to_truth_mean", r.DistanceToTruth.Mean)
	e.metrics.SetScore(ComponentClefts, "distance_to_proposal_mean", r.DistanceToProposal.Mean)
	e.logger.Info("clefts",
		"threshold", r.Threshold,
		"false_positives", r.FalsePositives,
		"false_negatives", r.FalseNegatives,
		"distance_to_truth_mean", r.DistanceToTruth.Mean,
		"distance_to_proposal_mean", r.DistanceToProposal.Mean)

	return r, nil
}

func (e *Evaluator) evaluatePartners(ctx context.Context, test *store.File) (*PartnersReport, error) {
	defer e.observe(ComponentPartners, time.Now())

	rec, err := test.ReadAnnotations(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := e.partners.Stats(rec, e.gtAnnotations, e.gtSeg)
	if err != nil {
		return nil, err
	}

	e.metrics.SetScore(ComponentPartners, "fscore", stats.FScore)
	e.metrics.SetScore(ComponentPartners, "precision", stats.Precision)
	e.metrics.SetScore(ComponentPartners, "recall", stats.Recall)
	e.logger.Info("synaptic partners",
		"threshold", e.partners.MatchingThreshold(),
		"fscore", stats.FScore,
		"precision", stats.Precision,
		"recall", stats.Recall,
		"false_positives", stats.FalsePositives,
		"false_negatives", stats.FalseNegatives)

	return &PartnersReport{Threshold: e.partners.MatchingThreshold(), PartnerStats: *stats}, nil
}

// EvaluatePartnersAt scores the synaptic partners of the test container at
// testPath once per matching threshold, reusing the loaded ground truth.
// It returns nil if the ground truth has no annotations.
func (e *Evaluator) EvaluatePartnersAt(ctx context.Context, testPath string, thresholds []float64) ([]*PartnersReport, error) {
	if e.gtAnnotations == nil {
		return nil, nil
	}

	test, err := store.Open(ctx, testPath, store.ModeRead)
	if err != nil {
		return nil, fmt.Errorf("opening test container: %w", err)
	}
	defer func() { _ = test.Close() }()

	rec, err := test.ReadAnnotations(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*PartnersReport, 0, len(thresholds))
	for _, threshold := range thresholds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sp, err := evaluation.NewSynapticPartners(threshold, evaluation.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		stats, err := sp.Stats(rec, e.gtAnnotations, e.gtSeg)
		if err != nil {
			return nil, fmt.Errorf("matching threshold %v: %w", threshold, err)
		}
		e.logger.Debug("synaptic partners", "threshold", threshold, "fscore", stats.FScore)
		reports = append(reports, &PartnersReport{Threshold: threshold, PartnerStats: *stats})
	}
	return reports, nil
}

// Close releases resources held by the Evaluator. The ground truth
// container is closed by New once loaded, so there is currently nothing to
// release.
func (e *Evaluator) Close() error {
	return nil
}
