package scanners

import (
	"github.com/dgryski/go-farm"
	"github.com/minio/highwayhash"

	"github.com/coldcore/memlayer/scan"
)

// FingerprintMatch is the one match a FingerprintScanner ever emits
// per chunk: the chunk's digest over its non-overlap bytes, plus a
// cheap farm hash of the same bytes for callers that want a fast
// pre-filter (compare QuickHash across two scans first; only two
// chunks whose QuickHash already differ are guaranteed to have
// differed, so a match still requires comparing Digest) before paying
// for a highwayhash-strength comparison on every chunk.
type FingerprintMatch struct {
	Offset    int64
	Digest    [highwayhash.Size]uint8
	QuickHash uint64
}

// FingerprintScanner emits one match per chunk: a highwayhash digest
// of the chunk's bytes excluding the tail overlap, so that two scans
// of the same layer can be diffed chunk-for-chunk without the tail
// replay making every chunk after an edit look changed. Grounded on
// fusion/postprocess.go's highwayhash.Sum usage, adapted from a
// per-record digest to a per-chunk one. Immutable and holds no
// mutable state, so it is thread-safe.
type FingerprintScanner struct {
	scan.BaseScanner
	seed [highwayhash.Size]byte
}

// NewFingerprintScanner returns a scanner keyed by the all-zero seed,
// matching fusion/postprocess.go's zeroSeed convention.
func NewFingerprintScanner() *FingerprintScanner {
	return &FingerprintScanner{BaseScanner: scan.NewBaseScanner()}
}

func (f *FingerprintScanner) ThreadSafe() bool { return true }

func (f *FingerprintScanner) ScanChunk(data []byte, dataOffset int64) []scan.Match {
	body := data
	if int64(len(body)) > f.ChunkSize() {
		body = body[:f.ChunkSize()]
	}
	digest := highwayhash.Sum(body, f.seed[:])
	quick := farm.Hash64WithSeed(body, 0)
	return []scan.Match{FingerprintMatch{Offset: dataOffset, Digest: digest, QuickHash: quick}}
}
