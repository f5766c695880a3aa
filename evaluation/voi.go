package evaluation

import (
	"cmp"
	"math"
	"slices"
)

type labelPair struct {
	seg uint64
	gt  uint64
}

// contingency counts co-occurring labels, skipping voxels whose label is
// in ignoreSeg or ignoreGT.
func contingency(seg, gt, ignoreSeg, ignoreGT []uint64) (joint map[labelPair]int64, segCounts, gtCounts map[uint64]int64, total int64) {
	joint = make(map[labelPair]int64)
	segCounts = make(map[uint64]int64)
	gtCounts = make(map[uint64]int64)
	for i := range gt {
		if slices.Contains(ignoreSeg, seg[i]) || slices.Contains(ignoreGT, gt[i]) {
			continue
		}
		joint[labelPair{seg[i], gt[i]}]++
		segCounts[seg[i]]++
		gtCounts[gt[i]]++
		total++
	}
	return joint, segCounts, gtCounts, total
}

// VOI returns the variation of information between seg and gt split into
// its conditional entropies, in bits: split is H(seg|gt) and merge is
// H(gt|seg). Voxels labelled with an ignored label on either side are left
// out. Without any remaining voxel both values are NaN.
func VOI(seg, gt, ignoreSeg, ignoreGT []uint64) (split, merge float64) {
	joint, segCounts, gtCounts, total := contingency(seg, gt, ignoreSeg, ignoreGT)
	if total == 0 {
		return math.NaN(), math.NaN()
	}

	// sorted keys keep the float sums reproducible
	pairs := make([]labelPair, 0, len(joint))
	for p := range joint {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b labelPair) int {
		if c := cmp.Compare(a.gt, b.gt); c != 0 {
			return c
		}
		return cmp.Compare(a.seg, b.seg)
	})

	n := float64(total)
	for _, p := range pairs {
		pxy := float64(joint[p]) / n
		pSeg := float64(segCounts[p.seg]) / n
		pGT := float64(gtCounts[p.gt]) / n
		split -= pxy * math.Log2(pxy/pGT)
		merge -= pxy * math.Log2(pxy/pSeg)
	}
	return split, merge
}
