package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-cremi/annotations"
	"github.com/jamesainslie/go-cremi/volume"
)

func tempContainer(t *testing.T, mode Mode) (*File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.cremi")
	f, err := Open(context.Background(), path, mode)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f, path
}

func labelVolume() *volume.Volume {
	v := volume.New(2, 3, 4)
	v.Resolution = []float64{40, 4, 4}
	v.Offset = []float64{80, 0, 12}
	v.Comment = "hand traced"
	for i := range v.Data {
		v.Data[i] = uint64(i) * 1000003
	}
	v.Data[0] = math.MaxUint64
	v.Data[1] = math.MaxUint64 - 1
	return v
}

func TestVolumeRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, _ := tempContainer(t, ModeWrite)

	want := labelVolume()
	require.NoError(t, f.WriteNeuronIDs(ctx, want))

	got, err := f.ReadNeuronIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	ok, err := f.HasNeuronIDs(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.HasClefts(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVolumeZeroOffset(t *testing.T) {
	ctx := context.Background()
	f, _ := tempContainer(t, ModeWrite)

	v := volume.New(1, 2, 2)
	v.Offset = nil
	require.NoError(t, f.WriteClefts(ctx, v))

	got, err := f.ReadClefts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, got.Offset)
	assert.Equal(t, []uint64{0, 0, 0, 0}, got.Data)
}

func TestVolumeOverwrite(t *testing.T) {
	ctx := context.Background()
	f, _ := tempContainer(t, ModeWrite)

	require.NoError(t, f.WriteRaw(ctx, labelVolume()))
	v := volume.New(3)
	v.Data = []uint64{7, 8, 9}
	require.NoError(t, f.WriteRaw(ctx, v))

	got, err := f.ReadRaw(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 8, 9}, got.Data)
	assert.Equal(t, []int{3}, got.Shape)
}

func TestReadMissingVolume(t *testing.T) {
	f, _ := tempContainer(t, ModeWrite)
	_, err := f.ReadClefts(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteInvalidVolume(t *testing.T) {
	f, _ := tempContainer(t, ModeWrite)
	v := volume.New(2, 2)
	v.Data = v.Data[:3]
	err := f.WriteRaw(context.Background(), v)
	assert.ErrorIs(t, err, volume.ErrInvalidVolume)
}

func TestModes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "modes.cremi")

	_, err := Open(ctx, path, ModeRead)
	assert.ErrorIs(t, err, os.ErrNotExist)

	f, err := Open(ctx, path, ModeWrite)
	require.NoError(t, err)
	require.NoError(t, f.WriteRaw(ctx, labelVolume()))
	require.NoError(t, f.Close())

	f, err = Open(ctx, path, ModeAppend)
	require.NoError(t, err)
	require.NoError(t, f.WriteClefts(ctx, volume.New(2, 2)))
	require.NoError(t, f.Close())

	f, err = Open(ctx, path, ModeRead)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	format, err := f.FileFormat(ctx)
	require.NoError(t, err)
	assert.Equal(t, FileFormat, format)

	ok, err := f.HasRaw(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.HasClefts(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, f.WriteRaw(ctx, labelVolume()), ErrReadOnly)
	assert.ErrorIs(t, f.WriteAnnotations(ctx, sampleAnnotations(t)), ErrReadOnly)

	// write mode truncates
	w, err := Open(ctx, path, ModeWrite)
	require.NoError(t, err)
	ok, err = w.HasRaw(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, w.Close())
}

func TestOpenNotAContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a database, just some text padding it out"), 0o600))

	_, err := Open(context.Background(), path, ModeRead)
	assert.ErrorIs(t, err, ErrInvalidContainer)
}

func sampleAnnotations(t *testing.T) *annotations.Annotations {
	t.Helper()
	a := annotations.New()
	a.Offset = []float64{40, 8, 8}
	a.Add(9, annotations.PostsynapticSite, []float64{1, 2, 3})
	a.Add(math.MaxUint64, annotations.PresynapticSite, []float64{4.5, 5, 6})
	a.Add(3, annotations.PostsynapticSite, []float64{7, 8, 9})
	require.NoError(t, a.AddComment(3, "uncertain"))
	require.NoError(t, a.SetPrePostPartners(math.MaxUint64, 9))
	require.NoError(t, a.SetPrePostPartners(math.MaxUint64, 3))
	return a
}

func TestAnnotationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, _ := tempContainer(t, ModeWrite)

	want := sampleAnnotations(t)
	require.NoError(t, f.WriteAnnotations(ctx, want))

	ok, err := f.HasAnnotations(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.ReadAnnotations(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.IDs(), got.IDs())
	assert.Equal(t, want.Types(), got.Types())
	assert.Equal(t, want.Locations(), got.Locations())
	assert.Equal(t, want.PrePostPartners(), got.PrePostPartners())
	assert.Equal(t, want.Offset, got.Offset)

	comment, ok := got.Comment(3)
	assert.True(t, ok)
	assert.Equal(t, "uncertain", comment)
	_, ok = got.Comment(9)
	assert.False(t, ok)
}

func TestAnnotationsEmpty(t *testing.T) {
	ctx := context.Background()
	f, _ := tempContainer(t, ModeWrite)

	got, err := f.ReadAnnotations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Empty(t, got.Offset)

	// writing an empty set keeps what is stored
	require.NoError(t, f.WriteAnnotations(ctx, sampleAnnotations(t)))
	require.NoError(t, f.WriteAnnotations(ctx, annotations.New()))
	got, err = f.ReadAnnotations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
}

func TestAnnotationsReplace(t *testing.T) {
	ctx := context.Background()
	f, _ := tempContainer(t, ModeWrite)
	require.NoError(t, f.WriteAnnotations(ctx, sampleAnnotations(t)))

	a := annotations.New()
	a.Add(1, annotations.PresynapticSite, []float64{0, 0, 0})
	require.NoError(t, f.WriteAnnotations(ctx, a))

	got, err := f.ReadAnnotations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, got.IDs())
	assert.Empty(t, got.PrePostPartners())
	assert.Empty(t, got.CommentIDs())
	assert.Empty(t, got.Offset)
}
