package translation

import "github.com/golang/snappy"

// snappyCodec follows the block-at-a-time snappy.Encode/Decode usage
// in cmd/bio-bam-sort/sorter/sortshard.go, rather than the streaming
// snappy.NewWriter/NewReader, since each compressed block here must be
// independently decodable.
type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }

func (snappyCodec) Encode(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (snappyCodec) Decode(dst, src []byte) ([]byte, error) {
	return snappy.Decode(dst, src)
}
