// Package scanners provides example Scanner implementations exercising
// the scan contract: a literal byte-pattern matcher and a per-chunk
// content fingerprint.
package scanners

import (
	"bytes"

	"github.com/coldcore/memlayer/scan"
)

// PatternMatch reports a single occurrence of a pattern.
type PatternMatch struct {
	Offset int64
}

// PatternScanner reports every offset where an immutable byte pattern
// occurs. It holds no mutable state, so it is safe to run from
// multiple worker goroutines concurrently (ThreadSafe returns true).
type PatternScanner struct {
	scan.BaseScanner
	pattern []byte
}

// NewPatternScanner returns a scanner reporting every occurrence of
// pattern, using scan's default chunk size and overlap.
func NewPatternScanner(pattern []byte) *PatternScanner {
	return &PatternScanner{BaseScanner: scan.NewBaseScanner(), pattern: pattern}
}

func (p *PatternScanner) ThreadSafe() bool { return true }

// ScanChunk reports every occurrence of p.pattern in data, suppressing
// any match that starts at or beyond dataOffset+ChunkSize() unless the
// chunk is shorter than ChunkSize() (the final chunk of a scan), per
// spec.md §4.1's overlap/dedup rule: such a match's start lies wholly
// within the tail-overlap region and will reappear as the head of the
// next chunk.
func (p *PatternScanner) ScanChunk(data []byte, dataOffset int64) []scan.Match {
	if len(p.pattern) == 0 {
		return nil
	}
	var matches []scan.Match
	boundary := dataOffset + p.ChunkSize()
	tailChunk := int64(len(data)) <= p.ChunkSize()

	pos := 0
	for {
		idx := bytes.Index(data[pos:], p.pattern)
		if idx < 0 {
			break
		}
		offset := dataOffset + int64(pos+idx)
		if tailChunk || offset < boundary {
			matches = append(matches, PatternMatch{Offset: offset})
		}
		pos += idx + 1
	}
	return matches
}
