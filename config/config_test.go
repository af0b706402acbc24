package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldcore/memlayer/datalayer"
	"github.com/coldcore/memlayer/memspace"
)

func TestLoadYAML(t *testing.T) {
	cfg, err := Load([]byte(`
class: github.com/coldcore/memlayer/datalayer.BufferDataLayer
name: buf0
size: 64
`))
	require.NoError(t, err)
	class, ok := cfg.Get("class")
	require.True(t, ok)
	assert.Equal(t, classBuffer, class)
}

func TestBuildLayerBuffer(t *testing.T) {
	cfg, err := Load([]byte("class: github.com/coldcore/memlayer/datalayer.BufferDataLayer\nname: buf0\nsize: 16\n"))
	require.NoError(t, err)
	l, err := BuildLayer(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "buf0", l.Name())
	assert.Equal(t, int64(15), l.MaximumAddress())
}

func TestBuildLayerUnknownClass(t *testing.T) {
	cfg, err := Load([]byte("class: not.a.real.Class\n"))
	require.NoError(t, err)
	_, err = BuildLayer(cfg, nil)
	require.Error(t, err)
}

func TestBuildLayerBlockRoundTrip(t *testing.T) {
	cfg, err := Load([]byte(`
class: github.com/coldcore/memlayer/translation.BlockTranslationLayer
name: tl0
tuples:
  - offset: 0
    mapped_offset: 0
    length: 16
    layer: base
`))
	require.NoError(t, err)

	mem := memspace.New()
	require.NoError(t, mem.AddLayer(datalayer.NewBufferDataLayer("base", make([]byte, 16), nil)))

	l, err := BuildLayer(cfg, mem)
	require.NoError(t, err)
	assert.Equal(t, "tl0", l.Name())
}
