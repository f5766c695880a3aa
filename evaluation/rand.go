package evaluation

// AdaptedRand returns the adapted Rand error, 1 - F, between seg and gt.
//
// Ground-truth label 0 is ignored. Voxels with segmentation label 0 are
// counted as singletons. Returns NaN when gt has no non-zero voxel.
func AdaptedRand(seg, gt []uint64) float64 {
	n := float64(len(gt))

	joint := make(map[labelPair]uint64)
	rows := make(map[uint64]uint64)
	cols := make(map[uint64]uint64)
	var unlabeled uint64
	for i := range gt {
		if gt[i] == 0 {
			continue
		}
		rows[gt[i]]++
		if seg[i] == 0 {
			unlabeled++
			continue
		}
		joint[labelPair{seg[i], gt[i]}]++
		cols[seg[i]]++
	}

	// integer sums are exact and independent of map order
	var sumA, sumB, sumAB uint64
	for _, c := range rows {
		sumA += c * c
	}
	for _, c := range cols {
		sumB += c * c
	}
	for _, c := range joint {
		sumAB += c * c
	}

	singletons := float64(unlabeled) / n
	precision := (float64(sumAB) + singletons) / (float64(sumB) + singletons)
	recall := (float64(sumAB) + singletons) / float64(sumA)
	f := 2 * precision * recall / (precision + recall)
	return 1 - f
}
