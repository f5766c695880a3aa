package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	cremi "github.com/jamesainslie/go-cremi"
	"github.com/jamesainslie/go-cremi/internal/bench"
	"github.com/jamesainslie/go-cremi/metrics"
)

func main() {
	var (
		corpusDir   = flag.String("corpus", "testdata/cremi", "Directory containing one sub-directory per sample")
		submission  = flag.String("submission", "test.cremi", "Submission container file name inside each sample")
		submissions = flag.String("submissions", "", "Comma-separated submission names for comparison")
		matching    = flag.Float64("matching-threshold", 400, "Synaptic partner matching threshold in nm")
		cleft       = flag.Float64("cleft-threshold", 200, "Cleft distance threshold in nm")
		border      = flag.Float64("border-threshold", 0, "Neuron border exclusion distance in nm")
		wp          = flag.Float64("wp", 1.0, "Precision weight")
		wr          = flag.Float64("wr", 1.0, "Recall weight")
		sweep       = flag.Bool("sweep", false, "Run matching threshold sweep")
		sweepMin    = flag.Float64("sweep-min", 100, "Sweep minimum threshold in nm")
		sweepMax    = flag.Float64("sweep-max", 1000, "Sweep maximum threshold in nm")
		sweepStep   = flag.Float64("sweep-step", 100, "Sweep step size in nm")
		metricsPath = flag.String("metrics", "", "Write Prometheus textfile metrics to this path")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Load corpus
	samples, err := bench.LoadCorpus(*corpusDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading corpus: %v\n", err)
		os.Exit(1)
	}
	if len(samples) == 0 {
		fmt.Fprintf(os.Stderr, "error: no samples in %s\n", *corpusDir)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d samples from %s\n\n", len(samples), *corpusDir)

	cfg := bench.Config{
		MatchingThreshold: *matching,
		CleftThreshold:    *cleft,
		BorderThreshold:   *border,
		Submission:        *submission,
		PrecisionWeight:   *wp,
		RecallWeight:      *wr,
	}

	var rec *metrics.Recorder
	if *metricsPath != "" {
		rec = metrics.NewRecorder()
	}
	opts := []cremi.Option{cremi.WithLogger(logger), cremi.WithMetrics(rec)}

	ctx := context.Background()

	if *submissions != "" {
		// Submission comparison mode
		runComparison(ctx, strings.Split(*submissions, ","), samples, cfg, *sweep, *sweepMin, *sweepMax, *sweepStep, opts)
	} else if *sweep {
		runSweep(ctx, samples, cfg, *sweepMin, *sweepMax, *sweepStep, opts)
	} else {
		runSingle(ctx, samples, cfg, opts)
	}

	if rec != nil {
		if err := rec.WriteTextfile(*metricsPath); err != nil {
			fmt.Fprintf(os.Stderr, "error writing metrics: %v\n", err)
			os.Exit(1)
		}
	}
}

func evaluateAll(ctx context.Context, samples []*bench.Sample, cfg bench.Config, opts []cremi.Option) (bench.Metrics, error) {
	reports := make([]*cremi.Report, 0, len(samples))
	for _, s := range samples {
		r, err := bench.EvaluateSample(ctx, s, cfg, opts...)
		if err != nil {
			return bench.Metrics{}, fmt.Errorf("evaluating %s: %w", s.ID, err)
		}
		reports = append(reports, r)
	}
	return bench.Aggregate(reports, cfg), nil
}

func runSingle(ctx context.Context, samples []*bench.Sample, cfg bench.Config, opts []cremi.Option) {
	m, err := evaluateAll(ctx, samples, cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	printMetrics(m)
}

func runSweep(ctx context.Context, samples []*bench.Sample, cfg bench.Config, min, max, step float64, opts []cremi.Option) {
	thresholds := bench.SweepThresholds(min, max, step)

	fmt.Printf("Matching Threshold Sweep (wp=%.1f, wr=%.1f)\n", cfg.PrecisionWeight, cfg.RecallWeight)
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("%-8s %-8s %-8s %-8s %-8s\n", "Thresh", "Prec", "Rec", "F1", "Weighted")

	results, err := bench.Sweep(ctx, samples, cfg, thresholds, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error during sweep: %v\n", err)
		os.Exit(1)
	}

	// Print sorted by threshold for readability
	for _, t := range thresholds {
		for _, r := range results {
			if r.Threshold == t {
				fmt.Printf("%-8.0f %-8.2f %-8.2f %-8.2f %-8.2f\n",
					r.Threshold, r.Metrics.Precision, r.Metrics.Recall, r.Metrics.F1, r.Metrics.WeightedScore)
				break
			}
		}
	}

	fmt.Println(strings.Repeat("-", 50))
	if len(results) > 0 {
		best := results[0]
		fmt.Printf("Optimal: %.0f nm (Weighted: %.2f)\n", best.Threshold, best.Metrics.WeightedScore)
	}
}

func runComparison(ctx context.Context, names []string, samples []*bench.Sample, cfg bench.Config, sweep bool, min, max, step float64, opts []cremi.Option) {
	fmt.Printf("Submission Comparison (wp=%.1f, wr=%.1f)\n", cfg.PrecisionWeight, cfg.RecallWeight)
	fmt.Println(strings.Repeat("-", 86))
	fmt.Printf("%-24s %-8s %-8s %-8s %-10s %-10s %-8s\n", "Submission", "Thresh", "F1", "Weighted", "VOI split", "VOI merge", "ARAND")

	for _, name := range names {
		cfg.Submission = strings.TrimSpace(name)

		var bestThreshold float64
		var bestMetrics bench.Metrics

		if sweep {
			thresholds := bench.SweepThresholds(min, max, step)
			results, err := bench.Sweep(ctx, samples, cfg, thresholds, opts...)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error with %s: %v\n", cfg.Submission, err)
				continue
			}
			if len(results) > 0 {
				bestThreshold = results[0].Threshold
				bestMetrics = results[0].Metrics
			}
		} else {
			m, err := evaluateAll(ctx, samples, cfg, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error with %s: %v\n", cfg.Submission, err)
				continue
			}
			bestThreshold = cfg.MatchingThreshold
			bestMetrics = m
		}

		fmt.Printf("%-24s %-8.0f %-8.2f %-8.2f %-10.4f %-10.4f %-8.4f\n", cfg.Submission, bestThreshold,
			bestMetrics.F1, bestMetrics.WeightedScore, bestMetrics.VOISplit, bestMetrics.VOIMerge, bestMetrics.AdaptedRand)
	}
}

func printMetrics(m bench.Metrics) {
	fmt.Printf("Samples: %d\n", m.Samples)
	fmt.Printf("Synaptic partners  Precision: %.2f  Recall: %.2f  F1: %.2f  Weighted: %.2f\n",
		m.Precision, m.Recall, m.F1, m.WeightedScore)
	fmt.Printf("(TP: %d, FP: %d, FN: %d)\n", m.TruePositives, m.FalsePositives, m.FalseNegatives)
	fmt.Printf("Clefts             FP: %d  FN: %d  mean distance: %.2f\n",
		m.CleftFalsePositives, m.CleftFalseNegatives, m.CleftDistance)
	fmt.Printf("Neuron IDs         VOI split: %.4f  VOI merge: %.4f  adapted RAND: %.4f\n",
		m.VOISplit, m.VOIMerge, m.AdaptedRand)
}
