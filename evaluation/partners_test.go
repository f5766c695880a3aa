package evaluation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-cremi/annotations"
	"github.com/jamesainslie/go-cremi/volume"
)

const testMatchingThreshold = 50

// uniqueSegmentation is a 10x10x10 volume at 10 nm where every voxel has
// its own label.
func uniqueSegmentation() *volume.Volume {
	v := volume.New(10, 10, 10)
	v.Resolution = []float64{10, 10, 10}
	for i := range v.Data {
		v.Data[i] = uint64(i + 1)
	}
	return v
}

// columnSegmentation labels voxels by their x coordinate only.
func columnSegmentation() *volume.Volume {
	v := volume.New(10, 10, 10)
	v.Resolution = []float64{10, 10, 10}
	for i := range v.Data {
		v.Data[i] = uint64(i%10 + 1)
	}
	return v
}

// fourPairs builds partners (0,4), (1,5), (2,6), (3,7) with presynaptic
// sites along x and postsynaptic sites one row further in y.
func fourPairs() *annotations.Annotations {
	a := annotations.New()
	for id := uint64(0); id < 4; id++ {
		a.Add(id, annotations.PresynapticSite, []float64{0, 0, float64(id) * 20})
	}
	for id := uint64(4); id < 8; id++ {
		a.Add(id, annotations.PostsynapticSite, []float64{0, 10, float64(id-4) * 20})
	}
	for pre := uint64(0); pre < 4; pre++ {
		if err := a.SetPrePostPartners(pre, pre+4); err != nil {
			panic(err)
		}
	}
	return a
}

func newPartners(t *testing.T) *SynapticPartners {
	t.Helper()
	sp, err := NewSynapticPartners(testMatchingThreshold)
	require.NoError(t, err)
	return sp
}

func TestSynapticPartners_Identical(t *testing.T) {
	sp := newPartners(t)

	stats, err := sp.Stats(fourPairs(), fourPairs(), uniqueSegmentation())
	require.NoError(t, err)

	assert.Equal(t, 1.0, stats.FScore)
	assert.Equal(t, 1.0, stats.Precision)
	assert.Equal(t, 1.0, stats.Recall)
	assert.Equal(t, 0, stats.FalsePositives)
	assert.Equal(t, 0, stats.FalseNegatives)
	assert.Equal(t, []Match{{0, 0, 0}, {1, 1, 0}, {2, 2, 0}, {3, 3, 0}}, stats.Matches)

	f, err := sp.FScore(fourPairs(), fourPairs(), uniqueSegmentation())
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)
}

func TestSynapticPartners_ShiftBeyondThreshold(t *testing.T) {
	sp := newPartners(t)

	rec := fourPairs()
	rec.Add(1, annotations.PresynapticSite, []float64{0, 60, 20})

	stats, err := sp.Stats(rec, fourPairs(), columnSegmentation())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FalsePositives)
	assert.Equal(t, 1, stats.FalseNegatives)
	assert.Equal(t, 3, stats.TruePositives)
	assert.InDelta(t, 0.75, stats.FScore, 1e-12)
	assert.Len(t, stats.Matches, 3)
	for _, m := range stats.Matches {
		assert.NotEqual(t, 1, m.Rec)
	}
}

func TestSynapticPartners_ShiftWithinThreshold(t *testing.T) {
	sp := newPartners(t)

	rec := fourPairs()
	rec.Add(2, annotations.PresynapticSite, []float64{0, 20, 40})

	stats, err := sp.Stats(rec, fourPairs(), columnSegmentation())
	require.NoError(t, err)

	assert.Equal(t, 1.0, stats.FScore)
	require.Len(t, stats.Matches, 4)
	assert.Equal(t, Match{Rec: 2, GT: 2, Cost: 10}, stats.Matches[2])
}

func TestSynapticPartners_DifferentSegments(t *testing.T) {
	sp := newPartners(t)

	// same pre and post sites, partners reversed
	rec := annotations.New()
	gt := fourPairs()
	for _, id := range gt.IDs() {
		typ, loc, err := gt.Get(id)
		require.NoError(t, err)
		rec.Add(id, typ, loc)
	}
	for pre := uint64(0); pre < 4; pre++ {
		require.NoError(t, rec.SetPrePostPartners(pre+4, pre))
	}

	stats, err := sp.Stats(rec, gt, uniqueSegmentation())
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.FScore)
	assert.Equal(t, 0.0, stats.Precision)
	assert.Equal(t, 0.0, stats.Recall)
	assert.Empty(t, stats.Matches)
}

func TestSynapticPartners_UnequalCounts(t *testing.T) {
	sp := newPartners(t)

	rec := fourPairs()
	gt := fourPairs()
	gt.Add(8, annotations.PresynapticSite, []float64{50, 50, 50})
	gt.Add(9, annotations.PostsynapticSite, []float64{50, 60, 50})
	require.NoError(t, gt.SetPrePostPartners(8, 9))

	costs, err := sp.CostMatrix(rec, gt, uniqueSegmentation())
	require.NoError(t, err)
	r, c := costs.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 5, c)
	for j := 0; j < 5; j++ {
		assert.Equal(t, 2.0*testMatchingThreshold, costs.At(4, j), "padding row")
	}

	stats, err := sp.Stats(rec, gt, uniqueSegmentation())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FalsePositives)
	assert.Equal(t, 1, stats.FalseNegatives)
	assert.InDelta(t, 1.0, stats.Precision, 1e-12)
	assert.InDelta(t, 0.8, stats.Recall, 1e-12)
}

func TestSynapticPartners_Offsets(t *testing.T) {
	sp := newPartners(t)

	// the same physical sites, expressed relative to a shifted origin
	rec := annotations.New()
	rec.Offset = []float64{0, 0, 10}
	gt := fourPairs()
	for _, id := range gt.IDs() {
		typ, loc, err := gt.Get(id)
		require.NoError(t, err)
		rec.Add(id, typ, []float64{loc[0], loc[1], loc[2] - 10})
	}
	for _, p := range gt.PrePostPartners() {
		require.NoError(t, rec.SetPrePostPartners(p.Pre, p.Post))
	}

	f, err := sp.FScore(rec, gt, uniqueSegmentation())
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)
}

func TestSynapticPartners_Empty(t *testing.T) {
	sp := newPartners(t)

	stats, err := sp.Stats(annotations.New(), fourPairs(), uniqueSegmentation())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(stats.Precision))
	assert.Equal(t, 0.0, stats.Recall)
	assert.True(t, math.IsNaN(stats.FScore))
	assert.Equal(t, 4, stats.FalseNegatives)

	stats, err = sp.Stats(annotations.New(), annotations.New(), uniqueSegmentation())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(stats.FScore))
	assert.Empty(t, stats.Matches)
}

func TestSynapticPartners_OutOfBounds(t *testing.T) {
	sp := newPartners(t)

	rec := fourPairs()
	rec.Add(0, annotations.PresynapticSite, []float64{0, 0, 500})

	_, err := sp.Stats(rec, fourPairs(), uniqueSegmentation())
	assert.ErrorIs(t, err, volume.ErrOutOfBounds)
}

func TestSynapticPartners_InvalidSegmentation(t *testing.T) {
	sp := newPartners(t)

	tests := []struct {
		name string
		seg  *volume.Volume
	}{
		{"no resolution", &volume.Volume{Data: make([]uint64, 8), Shape: []int{2, 2, 2}}},
		{"short resolution", &volume.Volume{Data: make([]uint64, 8), Shape: []int{2, 2, 2}, Resolution: []float64{10, 10}}},
		{"short data", &volume.Volume{Data: make([]uint64, 7), Shape: []int{2, 2, 2}, Resolution: []float64{10, 10, 10}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sp.Stats(fourPairs(), fourPairs(), tt.seg)
			assert.ErrorIs(t, err, volume.ErrInvalidVolume)

			_, err = sp.FScore(annotations.New(), annotations.New(), tt.seg)
			assert.ErrorIs(t, err, volume.ErrInvalidVolume)
		})
	}
}

func TestSynapticPartners_Deterministic(t *testing.T) {
	sp := newPartners(t)

	rec := fourPairs()
	// two predictions equally close to the same ground truth pair
	rec.Add(0, annotations.PresynapticSite, []float64{0, 0, 20})
	rec.Add(4, annotations.PostsynapticSite, []float64{0, 10, 20})

	first, err := sp.Stats(rec, fourPairs(), columnSegmentation())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := sp.Stats(rec, fourPairs(), columnSegmentation())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNewSynapticPartners_InvalidThreshold(t *testing.T) {
	for _, th := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewSynapticPartners(th)
		assert.ErrorIs(t, err, ErrInvalidThreshold, "threshold %v", th)
	}
}
