package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"

	cremi "github.com/jamesainslie/go-cremi"
	"github.com/jamesainslie/go-cremi/evaluation"
	"github.com/jamesainslie/go-cremi/metrics"
	"github.com/jamesainslie/go-cremi/store"
)

func main() {
	mode := flag.String("mode", "evaluate", "Mode: evaluate or mask")
	truthPath := flag.String("truth", "", "Ground truth container (evaluate)")
	testPath := flag.String("test", "", "Test container (evaluate)")
	matching := flag.Float64("matching-threshold", 400, "Synaptic partner matching threshold in nm")
	cleft := flag.Float64("cleft-threshold", 200, "Cleft false positive/negative distance threshold in nm")
	border := flag.Float64("border-threshold", 0, "Neuron border exclusion distance in nm, 0 to disable")
	metricsPath := flag.String("metrics", "", "Write Prometheus textfile metrics to this path")
	inPath := flag.String("in", "", "Input container (mask)")
	outPath := flag.String("out", "", "Output container (mask)")
	maxDist := flag.Float64("max-dist", 1, "Border mask distance in voxels (mask)")
	background := flag.Uint64("background", math.MaxUint64, "Label written into masked voxels (mask)")
	overwrite := flag.Bool("overwrite", false, "Replace existing neuron ids in the output container (mask)")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	switch *mode {
	case "evaluate":
		if *truthPath == "" || *testPath == "" {
			fmt.Fprintln(os.Stderr, "Usage: cremi-cli -truth GROUNDTRUTH -test TEST [OPTIONS]")
			flag.PrintDefaults()
			os.Exit(1)
		}

		var rec *metrics.Recorder
		if *metricsPath != "" {
			rec = metrics.NewRecorder()
		}

		ev, err := cremi.New(ctx, *truthPath,
			cremi.WithMatchingThreshold(*matching),
			cremi.WithCleftThreshold(*cleft),
			cremi.WithBorderThreshold(*border),
			cremi.WithMetrics(rec),
			cremi.WithLogger(logger),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading ground truth: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = ev.Close() }() // Cleanup error ignored in CLI

		report, err := ev.Evaluate(ctx, *testPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printReport(report)

		if rec != nil {
			if err := rec.WriteTextfile(*metricsPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing metrics: %v\n", err)
				os.Exit(1)
			}
		}

	case "mask":
		if *inPath == "" || *outPath == "" {
			fmt.Fprintln(os.Stderr, "Usage: cremi-cli -mode mask -in INPUT -out OUTPUT [OPTIONS]")
			flag.PrintDefaults()
			os.Exit(1)
		}
		if err := mask(ctx, *inPath, *outPath, *maxDist, *background, *overwrite); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger.Info("wrote masked neuron ids", "path", *outPath, "max_dist", *maxDist)

	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		os.Exit(1)
	}
}

func mask(ctx context.Context, inPath, outPath string, maxDist float64, background uint64, overwrite bool) error {
	in, err := store.Open(ctx, inPath, store.ModeRead)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := store.Open(ctx, outPath, store.ModeAppend)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	return store.CreateAndWriteMaskedNeuronIDs(ctx, in, out, maxDist, background, overwrite)
}

func printReport(r *cremi.Report) {
	if n := r.NeuronIDs; n != nil {
		fmt.Println("Neuron IDs")
		fmt.Println("==========")
		fmt.Printf("\tvoi split   : %.6f\n", n.VOISplit)
		fmt.Printf("\tvoi merge   : %.6f\n", n.VOIMerge)
		fmt.Printf("\tadapted RAND: %.6f\n", n.AdaptedRand)
	}

	if c := r.Clefts; c != nil {
		fmt.Println("Clefts")
		fmt.Println("======")
		fmt.Printf("\tfalse positives: %d\n", c.FalsePositives)
		fmt.Printf("\tfalse negatives: %d\n", c.FalseNegatives)
		fmt.Printf("\tdistance to ground truth: %s\n", formatStats(c.DistanceToTruth))
		fmt.Printf("\tdistance to proposal    : %s\n", formatStats(c.DistanceToProposal))
	}

	if p := r.Partners; p != nil {
		fmt.Println("Synaptic partners")
		fmt.Println("=================")
		fmt.Printf("\tfscore: %.6f\n", p.FScore)
		fmt.Printf("\tprecision: %.6f  recall: %.6f\n", p.Precision, p.Recall)
		fmt.Printf("\t(TP: %d, FP: %d, FN: %d)\n", p.TruePositives, p.FalsePositives, p.FalseNegatives)
	}
}

func formatStats(s evaluation.Stats) string {
	return fmt.Sprintf("mean %.2f, std %.2f, max %.2f, count %d, median %.2f",
		s.Mean, s.Std, s.Max, s.Count, s.Median)
}
