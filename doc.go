// Package cremi scores neuron segmentations, synaptic cleft detections and
// synaptic partner annotations against CREMI ground truth.
//
// # Quick Start
//
//	ev, err := cremi.New(ctx, "groundtruth.cremi",
//	    cremi.WithMatchingThreshold(400),
//	    cremi.WithCleftThreshold(200),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ev.Close()
//
//	report, err := ev.Evaluate(ctx, "test.cremi")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("synaptic partners F-score: %.4f\n", report.Partners.FScore)
//
// # Components
//
// Each component is scored only when the ground truth holds the data it
// needs: neuron ids for VOI and adapted Rand, clefts for the cleft distance
// statistics, and annotations plus neuron ids for synaptic partners. The
// corresponding Report field is nil otherwise.
//
// # Thread Safety
//
// Evaluator is safe for concurrent use. Ground truth is loaded once by New
// and never modified.
//
// # Containers
//
// Test and ground truth are container files written by package store.
package cremi
