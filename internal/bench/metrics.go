package bench

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	cremi "github.com/jamesainslie/go-cremi"
	"github.com/jamesainslie/go-cremi/evaluation"
)

// Config holds evaluation parameters.
type Config struct {
	MatchingThreshold float64 // nm
	CleftThreshold    float64 // nm
	BorderThreshold   float64 // nm
	Submission        string  // container file name inside each sample
	PrecisionWeight   float64
	RecallWeight      float64
}

// DefaultConfig returns default evaluation configuration.
func DefaultConfig() Config {
	return Config{
		MatchingThreshold: 400,
		CleftThreshold:    200,
		Submission:        "test" + ContainerExt,
		PrecisionWeight:   1.0,
		RecallWeight:      1.0,
	}
}

// Options returns the evaluator options for cfg.
func (c Config) Options() []cremi.Option {
	return []cremi.Option{
		cremi.WithMatchingThreshold(c.MatchingThreshold),
		cremi.WithCleftThreshold(c.CleftThreshold),
		cremi.WithBorderThreshold(c.BorderThreshold),
	}
}

// Metrics holds results pooled over a corpus.
type Metrics struct {
	Samples int

	// synaptic partners, counts summed over samples
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	F1             float64
	WeightedScore  float64

	// clefts
	CleftFalsePositives int
	CleftFalseNegatives int
	CleftDistance       float64 // mean of the two average distances, averaged over samples

	// neuron ids, averaged over samples
	VOISplit    float64
	VOIMerge    float64
	AdaptedRand float64
}

// EvaluateSample scores cfg.Submission of s against its ground truth.
func EvaluateSample(ctx context.Context, s *Sample, cfg Config, opts ...cremi.Option) (*cremi.Report, error) {
	ev, err := cremi.New(ctx, s.TruthPath(), append(cfg.Options(), opts...)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ev.Close() }()

	return ev.Evaluate(ctx, s.SubmissionPath(cfg.Submission))
}

// Aggregate pools per-sample reports. Averages over samples lacking a
// component are NaN.
func Aggregate(reports []*cremi.Report, cfg Config) Metrics {
	m := Metrics{Samples: len(reports)}

	var cleftDist, voiSplit, voiMerge, rand []float64
	for _, r := range reports {
		if p := r.Partners; p != nil {
			m.TruePositives += p.TruePositives
			m.FalsePositives += p.FalsePositives
			m.FalseNegatives += p.FalseNegatives
		}
		if c := r.Clefts; c != nil {
			m.CleftFalsePositives += c.FalsePositives
			m.CleftFalseNegatives += c.FalseNegatives
			cleftDist = append(cleftDist, (c.DistanceToTruth.Mean+c.DistanceToProposal.Mean)/2)
		}
		if n := r.NeuronIDs; n != nil {
			voiSplit = append(voiSplit, n.VOISplit)
			voiMerge = append(voiMerge, n.VOIMerge)
			rand = append(rand, n.AdaptedRand)
		}
	}

	score := evaluation.NewScore(m.TruePositives, m.FalsePositives, m.FalseNegatives)
	m.Precision, m.Recall, m.F1 = score.Precision, score.Recall, score.FScore

	wp := cfg.PrecisionWeight
	wr := cfg.RecallWeight
	if wp+wr > 0 {
		m.WeightedScore = (wp*m.Precision + wr*m.Recall) / (wp + wr)
	}

	m.CleftDistance = mean(cleftDist)
	m.VOISplit = mean(voiSplit)
	m.VOIMerge = mean(voiMerge)
	m.AdaptedRand = mean(rand)
	return m
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}
