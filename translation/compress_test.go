package translation

import (
	"encoding/binary"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldcore/memlayer/datalayer"
	"github.com/coldcore/memlayer/layer"
	"github.com/coldcore/memlayer/memspace"
)

func buildSnappyBlocks(t *testing.T, blocks [][]byte) ([]byte, []int64) {
	t.Helper()
	var buf []byte
	var offsets []int64
	for _, b := range blocks {
		offsets = append(offsets, int64(len(buf)))
		compressed := snappy.Encode(nil, b)
		var lenPrefix [4]byte
		binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(compressed)))
		buf = append(buf, lenPrefix[:]...)
		buf = append(buf, compressed...)
	}
	return buf, offsets
}

func TestCompressedTranslationLayerRead(t *testing.T) {
	mem := memspace.New()
	blocks := [][]byte{
		[]byte("0123456789ABCDEF"),
		[]byte("GHIJKLMNOPQRSTUV"),
	}
	raw, offsets := buildSnappyBlocks(t, blocks)
	require.NoError(t, mem.AddLayer(datalayer.NewBufferDataLayer("raw", raw, nil)))

	ctl, err := NewCompressedTranslationLayer("ctl0", "raw", mem, "snappy", 16, offsets, 32, nil)
	require.NoError(t, err)
	require.NoError(t, mem.AddLayer(ctl))

	got, err := mem.Read("ctl0", 8, 16, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("89ABCDEFGHIJKLMN"), got)
}

func TestCompressedTranslationLayerWriteRejected(t *testing.T) {
	mem := memspace.New()
	raw, offsets := buildSnappyBlocks(t, [][]byte{[]byte("0123456789ABCDEF")})
	require.NoError(t, mem.AddLayer(datalayer.NewBufferDataLayer("raw", raw, nil)))
	ctl, err := NewCompressedTranslationLayer("ctl0", "raw", mem, "snappy", 16, offsets, 16, nil)
	require.NoError(t, err)
	require.NoError(t, mem.AddLayer(ctl))

	err = mem.Write("ctl0", 0, []byte{1})
	require.Error(t, err)
}

func TestCompressedTranslationLayerMapping(t *testing.T) {
	mem := memspace.New()
	raw, offsets := buildSnappyBlocks(t, [][]byte{[]byte("0123456789ABCDEF")})
	require.NoError(t, mem.AddLayer(datalayer.NewBufferDataLayer("raw", raw, nil)))
	ctl, err := NewCompressedTranslationLayer("ctl0", "raw", mem, "snappy", 16, offsets, 16, nil)
	require.NoError(t, err)

	tuples, err := ctl.Mapping(0, 16, false)
	require.NoError(t, err)
	require.Len(t, tuples, 1)
	assert.Equal(t, "raw", tuples[0].LayerName)
	assert.Equal(t, layer.MappingTuple{Offset: 0, MappedOffset: 0, Length: 16, LayerName: "raw"}, tuples[0])
}
