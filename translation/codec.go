package translation

// Codec compresses and decompresses independent blocks. Each Encode
// output must be a valid, self-contained input to Decode — blocks are
// never chained, so any block can be decoded without its neighbors.
type Codec interface {
	Name() string
	Encode(src []byte) ([]byte, error)
	Decode(dst, src []byte) ([]byte, error)
}

// snappyCodec and gzipCodec are defined in codec_snappy.go and
// codec_gzip.go; zlibngCodec, available only when built with cgo, in
// codec_cgo.go/codec_nocgo.go, following the +build cgo / +build !cgo
// split encoding/bgzf uses to make zlibng opt-in.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "snappy":
		return snappyCodec{}, true
	case "gzip":
		return gzipCodec{}, true
	case "zlibng":
		return zlibngCodec(), true
	}
	return nil, false
}
