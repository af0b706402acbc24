// Package translation provides concrete layer.TranslationLayer
// implementations: an explicit sorted block map, and a compressed
// variant built on top of it.
package translation

import (
	"sort"

	"github.com/coldcore/memlayer/layer"
)

// BlockTranslationLayer maps disjoint, ascending-order address ranges
// of its own space onto ranges of one or more dependency layers,
// given an explicit list of layer.MappingTuple at construction. Gaps
// between tuples are holes: addresses falling in one raise
// *layer.InvalidAddressError.
//
// Lookups use binary search over the tuples' start offsets, the same
// technique interval.BEDUnion uses for disjoint sorted interval sets
// (searchPosType/fwdsearchPosType in interval/bedunion.go), adapted
// here to a slice of structs instead of a flattened []int32 pair
// sequence since mapping tuples also carry a destination layer name
// and offset.
type BlockTranslationLayer struct {
	name      string
	tuples    []layer.MappingTuple // sorted ascending by Offset, non-overlapping
	mr        layer.MemoryReader
	metadata  map[string]string
	destroyed bool
}

// NewBlockTranslationLayer builds a BlockTranslationLayer named name
// from tuples, which need not be pre-sorted but must not overlap. mr
// is the Memory this layer will be registered into; Read/Write resolve
// dependency layers through it, since DataLayer.Read/Write take no
// MemoryReader of their own.
func NewBlockTranslationLayer(name string, tuples []layer.MappingTuple, mr layer.MemoryReader, metadata map[string]string) (*BlockTranslationLayer, error) {
	sorted := make([]layer.MappingTuple, len(tuples))
	copy(sorted, tuples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		if prev.Offset+prev.Length > sorted[i].Offset {
			return nil, layer.NewError("translation: overlapping mapping tuples in %s at 0x%x", name, sorted[i].Offset)
		}
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &BlockTranslationLayer{name: name, tuples: sorted, mr: mr, metadata: metadata}, nil
}

func (b *BlockTranslationLayer) Name() string { return b.name }

func (b *BlockTranslationLayer) MinimumAddress() int64 {
	if len(b.tuples) == 0 {
		return 0
	}
	return b.tuples[0].Offset
}

func (b *BlockTranslationLayer) MaximumAddress() int64 {
	if len(b.tuples) == 0 {
		return 0
	}
	last := b.tuples[len(b.tuples)-1]
	return last.Offset + last.Length - 1
}

func (b *BlockTranslationLayer) AddressMask() uint64 { return layer.AddressMaskFor(b.MaximumAddress()) }

// tupleFor returns the index of the tuple containing offset, or the
// tuple immediately following it if offset falls in a gap, via binary
// search over ascending tuple start offsets (mirrors
// interval.searchPosType's sort.Search-based lookup).
func (b *BlockTranslationLayer) tupleFor(offset int64) (int, bool) {
	idx := sort.Search(len(b.tuples), func(i int) bool { return b.tuples[i].Offset+b.tuples[i].Length > offset })
	if idx >= len(b.tuples) {
		return idx, false
	}
	t := b.tuples[idx]
	return idx, offset >= t.Offset && offset < t.Offset+t.Length
}

func (b *BlockTranslationLayer) IsValid(offset, length int64) bool {
	if b.destroyed || length <= 0 {
		return false
	}
	_, _, _, err := b.translateRange(offset, length, false)
	return err == nil
}

// translateRange walks the tuples covering [offset, offset+length),
// returning the mapping tuples that cover the range (clipped to it)
// in order. With ignoreErrors=false, a gap anywhere in the range fails
// immediately; with ignoreErrors=true, gaps are silently skipped, as
// spec.md §4.3's ignore_errors parameter requires.
func (b *BlockTranslationLayer) translateRange(offset, length int64, ignoreErrors bool) ([]layer.MappingTuple, int64, int64, error) {
	var out []layer.MappingTuple
	pos := offset
	end := offset + length
	for pos < end {
		idx, ok := b.tupleFor(pos)
		if !ok {
			if ignoreErrors {
				if idx >= len(b.tuples) {
					break
				}
				pos = b.tuples[idx].Offset
				continue
			}
			return nil, 0, 0, layer.NewInvalidAddress(b.name, pos, "unmapped address")
		}
		t := b.tuples[idx]
		spanStart := pos
		spanEnd := t.Offset + t.Length
		if spanEnd > end {
			spanEnd = end
		}
		out = append(out, layer.MappingTuple{
			Offset:       spanStart,
			MappedOffset: t.MappedOffset + (spanStart - t.Offset),
			Length:       spanEnd - spanStart,
			LayerName:    t.LayerName,
		})
		pos = spanEnd
	}
	return out, offset, length, nil
}

// Mapping implements layer.TranslationLayer.
func (b *BlockTranslationLayer) Mapping(offset, length int64, ignoreErrors bool) ([]layer.MappingTuple, error) {
	if b.destroyed {
		return nil, layer.NewInvalidAddress(b.name, offset, "layer destroyed")
	}
	tuples, _, _, err := b.translateRange(offset, length, ignoreErrors)
	return tuples, err
}

func (b *BlockTranslationLayer) Read(offset, length int64, pad bool) ([]byte, error) {
	return layer.ReadThroughMapping(b, b.mr, offset, length, pad)
}

func (b *BlockTranslationLayer) Write(offset int64, data []byte) error {
	return layer.WriteThroughMapping(b, b.mr, offset, data)
}

func (b *BlockTranslationLayer) Destroy() error {
	b.destroyed = true
	return nil
}

func (b *BlockTranslationLayer) Dependencies() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range b.tuples {
		if !seen[t.LayerName] {
			seen[t.LayerName] = true
			out = append(out, t.LayerName)
		}
	}
	return out
}

func (b *BlockTranslationLayer) DirectMetadata() map[string]string { return b.metadata }

func (b *BlockTranslationLayer) GetRequirements() []layer.Requirement {
	return []layer.Requirement{
		{Name: "tuples", Description: "list of mapping tuples (offset, mapped_offset, length, layer)", Type: "list"},
	}
}

func (b *BlockTranslationLayer) BuildConfiguration() layer.HierarchicalDict {
	tuples := make([]layer.HierarchicalDict, len(b.tuples))
	for i, t := range b.tuples {
		tuples[i] = layer.HierarchicalDict{
			"offset":        t.Offset,
			"mapped_offset": t.MappedOffset,
			"length":        t.Length,
			"layer":         t.LayerName,
		}
	}
	return layer.HierarchicalDict{
		"class":  "github.com/coldcore/memlayer/translation.BlockTranslationLayer",
		"name":   b.name,
		"tuples": tuples,
	}
}
