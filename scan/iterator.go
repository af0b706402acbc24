package scan

import "github.com/coldcore/memlayer/layer"

// ChunkSpan is one constituent piece of a chunk: chunkSize bytes read
// from layerName starting at mappedOffset.
type ChunkSpan struct {
	LayerName    string
	MappedOffset int64
	Length       int64
}

// ChunkDescriptor is one item yielded by a ScanIterator: the spans
// that make up this chunk (concatenated in order), and chunkEnd, the
// scan-space address just past the chunk.
type ChunkDescriptor struct {
	Spans    []ChunkSpan
	ChunkEnd int64
}

// Iterator partitions [minAddr, maxAddr) into ChunkDescriptors no
// larger than chunkSize+overlap. It is finite, single-consumer, and
// non-restartable, matching interfaces/layers.py's generator-based
// _scan_iterator.
type Iterator func(minAddr, maxAddr int64) <-chan ChunkDescriptor

// GaplessIterator is the default iterator for a leaf DataLayer: it is
// assumed gapless across its own range, so it walks linearly,
// advancing by chunkSize between pieces (the last overlap bytes of
// one piece re-appear at the head of the next).
func GaplessIterator(layerName string, chunkSize, overlap int64) Iterator {
	return func(minAddr, maxAddr int64) <-chan ChunkDescriptor {
		out := make(chan ChunkDescriptor)
		go func() {
			defer close(out)
			offset := minAddr
			length := maxAddr - minAddr
			for length > 0 {
				size := length
				if size > chunkSize+overlap {
					size = chunkSize + overlap
				}
				out <- ChunkDescriptor{
					Spans:    []ChunkSpan{{LayerName: layerName, MappedOffset: offset, Length: size}},
					ChunkEnd: offset + size,
				}
				advance := size
				if advance > chunkSize {
					advance -= overlap
				}
				length -= advance
				offset += advance
			}
		}()
		return out
	}
}

// MappingIterator is the default iterator for a TranslationLayer: it
// walks tl.Mapping(minAddr, maxAddr-minAddr, ignoreErrors=true) and
// chunks each mapped span independently, so no chunk ever crosses a
// gap between spans.
func MappingIterator(tl layer.TranslationLayer, chunkSize, overlap int64) Iterator {
	return func(minAddr, maxAddr int64) <-chan ChunkDescriptor {
		out := make(chan ChunkDescriptor)
		go func() {
			defer close(out)
			tuples, err := tl.Mapping(minAddr, maxAddr-minAddr, true)
			if err != nil {
				return
			}
			for _, t := range tuples {
				offset, mappedOffset, length := t.Offset, t.MappedOffset, t.Length
				for length > 0 {
					size := length
					if size > chunkSize+overlap {
						size = chunkSize + overlap
					}
					out <- ChunkDescriptor{
						Spans:    []ChunkSpan{{LayerName: t.LayerName, MappedOffset: mappedOffset, Length: size}},
						ChunkEnd: offset + size,
					}
					advance := size
					if advance > chunkSize {
						advance -= overlap
					}
					length -= advance
					mappedOffset += advance
					offset += advance
				}
			}
		}()
		return out
	}
}

// CustomIterable is an optional interface a concrete layer can
// implement to override the default gapless/mapping-based iterator —
// used by CompressedTranslationLayer, whose chunk boundaries must
// align with compressed-block boundaries rather than raw byte counts.
type CustomIterable interface {
	ScanIterator(chunkSize, overlap int64) Iterator
}

// defaultIterator picks the iterator for l exactly as spec.md §4.5
// describes: the layer's own override if it has one (CustomIterable),
// else the mapping-based walk for a TranslationLayer, else the
// gapless walk for a leaf DataLayer.
func defaultIterator(l layer.DataLayer, chunkSize, overlap int64) Iterator {
	if ci, ok := l.(CustomIterable); ok {
		return ci.ScanIterator(chunkSize, overlap)
	}
	if tl, ok := l.(layer.TranslationLayer); ok {
		return MappingIterator(tl, chunkSize, overlap)
	}
	return GaplessIterator(l.Name(), chunkSize, overlap)
}
