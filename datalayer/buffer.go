// Package datalayer provides concrete leaf layer.DataLayer
// implementations: an in-memory buffer, a local/S3 file, and an
// mmap'd region.
package datalayer

import (
	"github.com/coldcore/memlayer/layer"
)

// BufferDataLayer is a []byte-backed leaf DataLayer. It exists for
// tests and small synthetic layers (gap fillers, patched regions)
// that don't warrant a filesystem handle.
type BufferDataLayer struct {
	name     string
	data     []byte
	metadata map[string]string
	destroyed bool
}

// NewBufferDataLayer wraps data (not copied) as a layer named name.
func NewBufferDataLayer(name string, data []byte, metadata map[string]string) *BufferDataLayer {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &BufferDataLayer{name: name, data: data, metadata: metadata}
}

func (b *BufferDataLayer) Name() string { return b.name }

func (b *BufferDataLayer) MinimumAddress() int64 { return 0 }

func (b *BufferDataLayer) MaximumAddress() int64 {
	if len(b.data) == 0 {
		return 0
	}
	return int64(len(b.data)) - 1
}

func (b *BufferDataLayer) AddressMask() uint64 {
	return layer.AddressMaskFor(b.MaximumAddress())
}

func (b *BufferDataLayer) IsValid(offset, length int64) bool {
	if b.destroyed {
		return false
	}
	return layer.CheckBounds(0, b.MaximumAddress(), offset, length)
}

func (b *BufferDataLayer) Read(offset, length int64, pad bool) ([]byte, error) {
	if b.destroyed {
		return nil, layer.NewInvalidAddress(b.name, offset, "layer destroyed")
	}
	out := make([]byte, length)
	for i := int64(0); i < length; i++ {
		pos := offset + i
		if pos < 0 || pos >= int64(len(b.data)) {
			if !pad {
				return nil, layer.NewInvalidAddress(b.name, pos, "out of range")
			}
			continue
		}
		out[i] = b.data[pos]
	}
	return out, nil
}

func (b *BufferDataLayer) Write(offset int64, data []byte) error {
	if b.destroyed {
		return layer.NewInvalidAddress(b.name, offset, "layer destroyed")
	}
	for i, c := range data {
		pos := offset + int64(i)
		if pos < 0 || pos >= int64(len(b.data)) {
			return layer.NewInvalidAddress(b.name, pos, "out of range")
		}
		b.data[pos] = c
	}
	return nil
}

func (b *BufferDataLayer) Destroy() error {
	b.destroyed = true
	b.data = nil
	return nil
}

func (b *BufferDataLayer) Dependencies() []string { return nil }

func (b *BufferDataLayer) DirectMetadata() map[string]string { return b.metadata }

func (b *BufferDataLayer) GetRequirements() []layer.Requirement { return nil }

func (b *BufferDataLayer) BuildConfiguration() layer.HierarchicalDict {
	return layer.HierarchicalDict{
		"class": "github.com/coldcore/memlayer/datalayer.BufferDataLayer",
		"name":  b.name,
	}
}
