// +build cgo

package translation

import (
	"bytes"
	"io/ioutil"

	"github.com/klauspost/compress/gzip"
	"github.com/yasushi-saito/zlibng"
)

// zlibngCodec wraps yasushi-saito/zlibng, following the cgo-only
// compression path encoding/bgzf/writer_cgo.go takes when cgo is
// available, in place of compress/gzip's pure-Go deflate.
type zlibngCodecImpl struct{}

func zlibngCodec() Codec { return zlibngCodecImpl{} }

func (zlibngCodecImpl) Name() string { return "zlibng" }

func (zlibngCodecImpl) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlibng.NewWriter(&buf, zlibng.Opts{Level: 6})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads with klauspost/compress/gzip rather than zlibng: zlibng
// only exposes an encoder in the examples this is grounded on
// (encoding/bgzf's writer_cgo.go), and its Writer emits a standard
// gzip stream (GzipHeader), so any gzip reader decodes it.
func (zlibngCodecImpl) Decode(dst, src []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer r.Close() // nolint: errcheck
	return ioutil.ReadAll(r)
}
