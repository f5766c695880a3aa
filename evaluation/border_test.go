package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-cremi/volume"
)

const testBackground uint64 = 255

// stripeVolume is a single 5x5 section of label 1 with label 2 in column 2.
func stripeVolume() *volume.Volume {
	v := volume.New(1, 5, 5)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			v.Data[y*5+x] = 1
			if x == 2 {
				v.Data[y*5+x] = 2
			}
		}
	}
	return v
}

func maskedColumns(t *testing.T, v *volume.Volume) map[int]bool {
	t.Helper()
	cols := map[int]bool{}
	for i, l := range v.Data {
		if l == testBackground {
			cols[i%5] = true
		}
	}
	return cols
}

func TestCreateBorderMask_Uniform(t *testing.T) {
	v := volume.New(2, 5, 5)
	for i := range v.Data {
		v.Data[i] = 3
	}

	for _, maxDist := range []float64{0, 1, 10} {
		target := volume.New(2, 5, 5)
		require.NoError(t, CreateBorderMask(v, target, maxDist, testBackground, 0))
		assert.Equal(t, v.Data, target.Data, "max_dist %v", maxDist)
	}
}

func TestCreateBorderMask_Stripe(t *testing.T) {
	v := stripeVolume()

	target := volume.New(1, 5, 5)
	require.NoError(t, CreateBorderMask(v, target, 0, testBackground, 0))

	// the stripe and its direct neighbours differ from a 4-neighbour
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, maskedColumns(t, target))
	for y := 0; y < 5; y++ {
		assert.Equal(t, uint64(1), target.Data[y*5])
		assert.Equal(t, uint64(1), target.Data[y*5+4])
	}

	// input is untouched
	assert.Equal(t, stripeVolume().Data, v.Data)
}

func TestCreateBorderMask_Monotonic(t *testing.T) {
	v := stripeVolume()
	// a second, off-centre blob so growth is visible in both directions
	v.Data[0] = 7

	prev := map[int]bool{}
	for _, maxDist := range []float64{0, 0.5, 1, 1.5, 2, 3} {
		target := volume.New(1, 5, 5)
		require.NoError(t, CreateBorderMask(v, target, maxDist, testBackground, 0))

		masked := map[int]bool{}
		for i, l := range target.Data {
			if l == testBackground {
				masked[i] = true
			}
		}
		for i := range prev {
			assert.True(t, masked[i], "voxel %d dropped at max_dist %v", i, maxDist)
		}
		prev = masked
	}
	assert.Len(t, prev, 25)
}

func TestCreateBorderMask_DiagonalsIgnored(t *testing.T) {
	// checkerboard corners touch only diagonally
	v := volume.New(1, 2, 2)
	copy(v.Data, []uint64{1, 2, 2, 1})
	target := volume.New(1, 2, 2)
	require.NoError(t, CreateBorderMask(v, target, 0, testBackground, 0))
	for _, l := range target.Data {
		assert.Equal(t, testBackground, l)
	}

	// a lone corner voxel: its orthogonal neighbours differ, the opposite
	// corner only touches diagonally and stays unmasked
	v = volume.New(1, 3, 3)
	copy(v.Data, []uint64{
		5, 1, 1,
		1, 1, 1,
		1, 1, 1,
	})
	target = volume.New(1, 3, 3)
	require.NoError(t, CreateBorderMask(v, target, 0, testBackground, 0))
	assert.Equal(t, []uint64{
		testBackground, testBackground, 1,
		testBackground, 1, 1,
		1, 1, 1,
	}, target.Data)
}

func TestCreateBorderMask_NegativeDistanceClamps(t *testing.T) {
	v := stripeVolume()
	a := volume.New(1, 5, 5)
	b := volume.New(1, 5, 5)
	require.NoError(t, CreateBorderMask(v, a, -3, testBackground, 0))
	require.NoError(t, CreateBorderMask(v, b, 0, testBackground, 0))
	assert.Equal(t, b.Data, a.Data)
}

func TestCreateBorderMask_InPlace(t *testing.T) {
	v := stripeVolume()
	separate := volume.New(1, 5, 5)
	require.NoError(t, CreateBorderMask(v, separate, 1, testBackground, 0))

	require.NoError(t, CreateBorderMask(v, v, 1, testBackground, 0))
	assert.Equal(t, separate.Data, v.Data)
}

func TestCreateBorderMask_Axis(t *testing.T) {
	// (1,5,5) sliced along axis 0 and (5,5,1) along axis 2 share a layout
	v := stripeVolume()
	want := volume.New(1, 5, 5)
	require.NoError(t, CreateBorderMask(v, want, 0, testBackground, 0))

	w := volume.New(5, 5, 1)
	copy(w.Data, v.Data)
	got := volume.New(5, 5, 1)
	require.NoError(t, CreateBorderMask(w, got, 0, testBackground, 2))
	assert.Equal(t, want.Data, got.Data)
}

func TestCreateBorderMask_SlicesIndependent(t *testing.T) {
	// labels change between sections but not within them
	v := volume.New(3, 4, 4)
	for z := 0; z < 3; z++ {
		for i := 0; i < 16; i++ {
			v.Data[z*16+i] = uint64(z + 1)
		}
	}
	target := volume.New(3, 4, 4)
	require.NoError(t, CreateBorderMask(v, target, 2, testBackground, 0))
	assert.Equal(t, v.Data, target.Data)
}

func TestCreateBorderMask_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   *volume.Volume
		target  *volume.Volume
		axis    int
		wantErr error
	}{
		{name: "shape mismatch", input: volume.New(1, 5, 5), target: volume.New(1, 5, 4), wantErr: ErrShapeMismatch},
		{name: "too few dimensions", input: volume.New(5), target: volume.New(5), wantErr: ErrInvalidShape},
		{name: "axis out of range", input: volume.New(1, 5, 5), target: volume.New(1, 5, 5), axis: 3, wantErr: ErrInvalidAxis},
		{name: "negative axis", input: volume.New(1, 5, 5), target: volume.New(1, 5, 5), axis: -1, wantErr: ErrInvalidAxis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := range tt.target.Data {
				tt.target.Data[i] = 42
			}
			err := CreateBorderMask(tt.input, tt.target, 1, testBackground, tt.axis)
			assert.ErrorIs(t, err, tt.wantErr)
			for _, l := range tt.target.Data {
				assert.Equal(t, uint64(42), l)
			}
		})
	}
}
