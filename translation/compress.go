package translation

import (
	"encoding/binary"

	"github.com/coldcore/memlayer/layer"
	"github.com/coldcore/memlayer/scan"
)

// CompressedTranslationLayer presents a logical, uncompressed address
// space over a sequence of independently compressed blocks stored
// back-to-back in an underlying layer, each prefixed by a 4-byte
// little-endian length of the compressed payload that follows.
//
// Unlike BlockTranslationLayer, read is decode-driven rather than
// span-concatenation-driven (spec.md §4.10): a compressed block's
// mapped offset in the underlying layer says nothing about where its
// *decoded* bytes land without first decompressing it, so Mapping
// always reports a single tuple spanning the requested range and Read
// decompresses the blocks it needs directly.
type CompressedTranslationLayer struct {
	name          string
	under         string
	mr            layer.MemoryReader
	codec         Codec
	blockSize     int64 // uncompressed size of every block but the last
	blockOffsets  []int64 // offset in the underlying layer of each block's length prefix
	uncompressedSize int64
	metadata      map[string]string
	destroyed     bool
}

// NewCompressedTranslationLayer builds a CompressedTranslationLayer
// named name over the layer underlying, whose bytes are
// len(blockOffsets) blocks each decoding to blockSize bytes (the last
// may be shorter, per uncompressedSize).
func NewCompressedTranslationLayer(name, underlying string, mr layer.MemoryReader, codecName string, blockSize int64, blockOffsets []int64, uncompressedSize int64, metadata map[string]string) (*CompressedTranslationLayer, error) {
	codec, ok := CodecByName(codecName)
	if !ok {
		return nil, layer.NewError("translation: unknown codec %q", codecName)
	}
	if blockSize <= 0 {
		return nil, layer.NewError("translation: block size must be positive")
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &CompressedTranslationLayer{
		name: name, under: underlying, mr: mr, codec: codec,
		blockSize: blockSize, blockOffsets: blockOffsets,
		uncompressedSize: uncompressedSize, metadata: metadata,
	}, nil
}

func (c *CompressedTranslationLayer) Name() string { return c.name }

func (c *CompressedTranslationLayer) MinimumAddress() int64 { return 0 }

func (c *CompressedTranslationLayer) MaximumAddress() int64 {
	if c.uncompressedSize == 0 {
		return 0
	}
	return c.uncompressedSize - 1
}

func (c *CompressedTranslationLayer) AddressMask() uint64 {
	return layer.AddressMaskFor(c.MaximumAddress())
}

func (c *CompressedTranslationLayer) IsValid(offset, length int64) bool {
	if c.destroyed {
		return false
	}
	return layer.CheckBounds(0, c.MaximumAddress(), offset, length)
}

// Mapping always reports exactly one tuple for the requested range,
// per spec.md §4.10: the destination offset in the underlying layer is
// not meaningful for byte production (only Read's block decode is),
// but it still identifies which blocks the range touches, which is
// enough for translate() and for the scan pipeline's span enumeration.
func (c *CompressedTranslationLayer) Mapping(offset, length int64, ignoreErrors bool) ([]layer.MappingTuple, error) {
	if c.destroyed {
		return nil, layer.NewInvalidAddress(c.name, offset, "layer destroyed")
	}
	if offset < 0 || offset+length > c.uncompressedSize {
		if ignoreErrors {
			length = c.uncompressedSize - offset
			if length < 0 {
				length = 0
			}
		} else {
			return nil, layer.NewInvalidAddress(c.name, offset, "out of range")
		}
	}
	blockIdx := offset / c.blockSize
	if int(blockIdx) >= len(c.blockOffsets) {
		if ignoreErrors {
			return nil, nil
		}
		return nil, layer.NewInvalidAddress(c.name, offset, "beyond last block")
	}
	return []layer.MappingTuple{{
		Offset:       offset,
		MappedOffset: c.blockOffsets[blockIdx],
		Length:       length,
		LayerName:    c.under,
	}}, nil
}

// Read decompresses every block touched by [offset, offset+length),
// rather than delegating to layer.ReadThroughMapping, since the
// mapped offset Mapping reports is not where the decoded bytes live.
func (c *CompressedTranslationLayer) Read(offset, length int64, pad bool) ([]byte, error) {
	if c.destroyed {
		return nil, layer.NewInvalidAddress(c.name, offset, "layer destroyed")
	}
	out := make([]byte, 0, length)
	pos := offset
	end := offset + length
	for pos < end {
		blockIdx := pos / c.blockSize
		blockStart := blockIdx * c.blockSize
		within := pos - blockStart
		wantInBlock := c.blockSize - within
		if remaining := end - pos; wantInBlock > remaining {
			wantInBlock = remaining
		}

		if int(blockIdx) >= len(c.blockOffsets) {
			if !pad {
				return nil, layer.NewInvalidAddress(c.name, pos, "beyond last block")
			}
			out = append(out, make([]byte, wantInBlock)...)
			pos += wantInBlock
			continue
		}

		block, err := c.readBlock(int(blockIdx))
		if err != nil {
			if !pad {
				return nil, err
			}
			out = append(out, make([]byte, wantInBlock)...)
			pos += wantInBlock
			continue
		}

		avail := int64(len(block)) - within
		if avail < 0 {
			avail = 0
		}
		have := wantInBlock
		if have > avail {
			have = avail
		}
		if have > 0 {
			out = append(out, block[within:within+have]...)
		}
		if have < wantInBlock {
			if !pad {
				return nil, layer.NewInvalidAddress(c.name, pos+have, "short block")
			}
			out = append(out, make([]byte, wantInBlock-have)...)
		}
		pos += wantInBlock
	}
	return out, nil
}

func (c *CompressedTranslationLayer) readBlock(idx int) ([]byte, error) {
	lenPrefix, err := c.mr.Read(c.under, c.blockOffsets[idx], 4, false)
	if err != nil {
		return nil, err
	}
	compressedLen := int64(binary.LittleEndian.Uint32(lenPrefix))
	compressed, err := c.mr.Read(c.under, c.blockOffsets[idx]+4, compressedLen, false)
	if err != nil {
		return nil, err
	}
	return c.codec.Decode(nil, compressed)
}

// Write always fails: a CompressedTranslationLayer is read-only
// (spec.md §4.10).
func (c *CompressedTranslationLayer) Write(offset int64, data []byte) error {
	return layer.NewError("layer %s is read-only", c.name)
}

func (c *CompressedTranslationLayer) Destroy() error {
	c.destroyed = true
	return nil
}

func (c *CompressedTranslationLayer) Dependencies() []string { return []string{c.under} }

func (c *CompressedTranslationLayer) DirectMetadata() map[string]string { return c.metadata }

func (c *CompressedTranslationLayer) GetRequirements() []layer.Requirement {
	return []layer.Requirement{
		{Name: "underlying", Description: "layer holding the compressed blocks", Type: "string"},
		{Name: "codec", Description: "gzip, snappy, or zlibng", Type: "string"},
		{Name: "block_size", Description: "uncompressed size of each block", Type: "int"},
	}
}

func (c *CompressedTranslationLayer) BuildConfiguration() layer.HierarchicalDict {
	return layer.HierarchicalDict{
		"class":      "github.com/coldcore/memlayer/translation.CompressedTranslationLayer",
		"name":       c.name,
		"underlying": c.under,
		"codec":      c.codec.Name(),
		"block_size": c.blockSize,
	}
}

// ScanIterator implements scan.CustomIterable: chunk starts are
// snapped to block boundaries and consecutive chunks advance by a whole
// number of blocks; each chunk spans those blocks plus overlap bytes
// taken from the start of the following block.
func (c *CompressedTranslationLayer) ScanIterator(chunkSize, overlap int64) scan.Iterator {
	return func(minAddr, maxAddr int64) <-chan scan.ChunkDescriptor {
		out := make(chan scan.ChunkDescriptor)
		go func() {
			defer close(out)
			blocksPerChunk := chunkSize / c.blockSize
			if blocksPerChunk < 1 {
				blocksPerChunk = 1
			}
			step := blocksPerChunk * c.blockSize
			offset := (minAddr / c.blockSize) * c.blockSize
			for offset < maxAddr {
				length := step + overlap
				if offset+length > c.uncompressedSize {
					length = c.uncompressedSize - offset
				}
				if length <= 0 {
					break
				}
				out <- scan.ChunkDescriptor{
					Spans:    []scan.ChunkSpan{{LayerName: c.name, MappedOffset: offset, Length: length}},
					ChunkEnd: offset + length,
				}
				offset += step
			}
		}()
		return out
	}
}
