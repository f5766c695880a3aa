package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-cremi/volume"
)

func stripes() *volume.Volume {
	v := volume.New(2, 3, 6)
	v.Resolution = []float64{40, 4, 4}
	v.Comment = "proofread"
	for i := range v.Data {
		v.Data[i] = 1
		if i%6 >= 3 {
			v.Data[i] = 2
		}
	}
	return v
}

func TestCreateAndWriteMaskedNeuronIDs(t *testing.T) {
	ctx := context.Background()
	in, _ := tempContainer(t, ModeWrite)
	out, _ := tempContainer(t, ModeWrite)

	require.NoError(t, in.WriteNeuronIDs(ctx, stripes()))
	require.NoError(t, CreateAndWriteMaskedNeuronIDs(ctx, in, out, 0, 0, false))

	got, err := out.ReadNeuronIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "proofread Border masked with max_dist=0.000000", got.Comment)
	assert.Equal(t, []float64{40, 4, 4}, got.Resolution)
	for i, l := range got.Data {
		switch i % 6 {
		case 2, 3:
			assert.Equal(t, uint64(0), l, "voxel %d", i)
		default:
			assert.Equal(t, stripes().Data[i], l, "voxel %d", i)
		}
	}

	// existing ids are kept without overwrite
	require.NoError(t, CreateAndWriteMaskedNeuronIDs(ctx, in, out, 2, 0, false))
	again, err := out.ReadNeuronIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	require.NoError(t, CreateAndWriteMaskedNeuronIDs(ctx, in, out, 2, 0, true))
	again, err = out.ReadNeuronIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "proofread Border masked with max_dist=2.000000", again.Comment)
	for _, l := range again.Data {
		assert.Equal(t, uint64(0), l)
	}
}

func TestCreateAndWriteMaskedNeuronIDs_NoInput(t *testing.T) {
	ctx := context.Background()
	in, _ := tempContainer(t, ModeWrite)
	out, _ := tempContainer(t, ModeWrite)

	require.NoError(t, CreateAndWriteMaskedNeuronIDs(ctx, in, out, 1, 0, true))
	ok, err := out.HasNeuronIDs(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
