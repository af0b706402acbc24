package translation

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldcore/memlayer/datalayer"
	"github.com/coldcore/memlayer/layer"
	"github.com/coldcore/memlayer/memspace"
)

func newFixture(t *testing.T) *memspace.Memory {
	t.Helper()
	mem := memspace.New()
	data := make([]byte, 0x2000)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, mem.AddLayer(datalayer.NewBufferDataLayer("base", data, nil)))
	return mem
}

func TestBlockTranslationLayerReadAcrossTuples(t *testing.T) {
	mem := newFixture(t)
	tl, err := NewBlockTranslationLayer("tl0", []layer.MappingTuple{
		{Offset: 0, MappedOffset: 0x1000, Length: 0x100, LayerName: "base"},
		{Offset: 0x100, MappedOffset: 0x0, Length: 0x100, LayerName: "base"},
	}, mem, nil)
	require.NoError(t, err)
	require.NoError(t, mem.AddLayer(tl))

	got, err := mem.Read("tl0", 0, 0x200, false)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), got[0])
	assert.Equal(t, byte(0x00), got[0x100])
}

func TestBlockTranslationLayerGap(t *testing.T) {
	mem := newFixture(t)
	tl, err := NewBlockTranslationLayer("tl0", []layer.MappingTuple{
		{Offset: 0, MappedOffset: 0, Length: 0x100, LayerName: "base"},
		{Offset: 0x200, MappedOffset: 0x200, Length: 0x100, LayerName: "base"},
	}, mem, nil)
	require.NoError(t, err)
	require.NoError(t, mem.AddLayer(tl))

	_, err = mem.Read("tl0", 0, 0x300, false)
	require.Error(t, err)
	assert.True(t, layer.IsInvalidAddress(err))

	padded, err := mem.Read("tl0", 0, 0x300, true)
	require.NoError(t, err)
	assert.Len(t, padded, 0x300)

	mapping, err := tl.Mapping(0, 0x300, true)
	expect.NoError(t, err)
	expect.EQ(t, len(mapping), 2)
}

func TestBlockTranslationLayerOverlapRejected(t *testing.T) {
	mem := newFixture(t)
	_, err := NewBlockTranslationLayer("tl0", []layer.MappingTuple{
		{Offset: 0, MappedOffset: 0, Length: 0x100, LayerName: "base"},
		{Offset: 0x50, MappedOffset: 0x50, Length: 0x100, LayerName: "base"},
	}, mem, nil)
	require.Error(t, err)
}

func TestBlockTranslationLayerDependencies(t *testing.T) {
	mem := newFixture(t)
	tl, err := NewBlockTranslationLayer("tl0", []layer.MappingTuple{
		{Offset: 0, MappedOffset: 0, Length: 0x100, LayerName: "base"},
	}, mem, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"base"}, tl.Dependencies())
}
