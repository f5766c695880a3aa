package evaluation

import "math"

// Score holds detection counts and the ratios derived from them.
//
// Precision is NaN without predictions (TP+FP == 0) and Recall is NaN
// without ground truth (TP+FN == 0). FScore is NaN if either is NaN, and 0
// if both are 0.
type Score struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	FScore         float64
}

// NewScore derives precision, recall and F-score from detection counts.
func NewScore(tp, fp, fn int) Score {
	s := Score{
		TruePositives:  tp,
		FalsePositives: fp,
		FalseNegatives: fn,
		Precision:      math.NaN(),
		Recall:         math.NaN(),
		FScore:         math.NaN(),
	}

	if tp+fp > 0 {
		s.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		s.Recall = float64(tp) / float64(tp+fn)
	}
	switch {
	case math.IsNaN(s.Precision) || math.IsNaN(s.Recall):
	case s.Precision+s.Recall == 0:
		s.FScore = 0
	default:
		s.FScore = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}

	return s
}
