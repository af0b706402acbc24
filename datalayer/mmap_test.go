package datalayer

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapDataLayerReadWrite(t *testing.T) {
	f, err := ioutil.TempFile("", "mmapdatalayer")
	require.NoError(t, err)
	defer os.Remove(f.Name()) // nolint: errcheck
	_, err = f.Write(make([]byte, 4096))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	l, err := NewMmapDataLayer("mmap0", f.Name(), true, nil)
	require.NoError(t, err)
	defer l.Destroy() // nolint: errcheck

	assert.Equal(t, int64(4095), l.MaximumAddress())

	require.NoError(t, l.Write(10, []byte{1, 2, 3}))
	got, err := l.Read(10, 3, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestMmapDataLayerReadOnly(t *testing.T) {
	f, err := ioutil.TempFile("", "mmapdatalayer")
	require.NoError(t, err)
	defer os.Remove(f.Name()) // nolint: errcheck
	_, err = f.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	l, err := NewMmapDataLayer("mmap0", f.Name(), false, nil)
	require.NoError(t, err)
	defer l.Destroy() // nolint: errcheck

	got, err := l.Read(0, 5, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestMmapDataLayerDestroy(t *testing.T) {
	f, err := ioutil.TempFile("", "mmapdatalayer")
	require.NoError(t, err)
	defer os.Remove(f.Name()) // nolint: errcheck
	_, err = f.Write(make([]byte, 16))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	l, err := NewMmapDataLayer("mmap0", f.Name(), true, nil)
	require.NoError(t, err)
	require.NoError(t, l.Destroy())

	_, err = l.Read(0, 1, false)
	require.Error(t, err)
}
