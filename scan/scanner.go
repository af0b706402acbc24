// Package scan implements the scan pipeline: chunking a layer's
// mapped address range, optionally in parallel, and streaming a
// Scanner's matches back to the caller.
package scan

import "github.com/coldcore/memlayer/layer"

// Default chunk and overlap sizes, per spec.md §3.
const (
	DefaultChunkSize = 0x1000000 // 16 MiB
	DefaultOverlap   = 0x1000    // 4 KiB
)

// Match is an opaque result produced by a Scanner. The pipeline never
// inspects it; only the caller and the Scanner agree on its shape.
type Match interface{}

// Context is the read-only view of the Memory DAG a Scanner is bound
// to while it runs.
type Context interface {
	Memory() layer.MemoryReader
}

type simpleContext struct{ mr layer.MemoryReader }

func (c simpleContext) Memory() layer.MemoryReader { return c.mr }

// NewContext wraps a layer.MemoryReader as a scan.Context.
func NewContext(mr layer.MemoryReader) Context { return simpleContext{mr: mr} }

// Scanner inspects a contiguous byte window and yields zero or more
// matches. A Scanner must not return a match whose reported position
// lies entirely within the tail overlap of the chunk it was given
// (i.e. at or beyond dataOffset+ChunkSize()); suppressing duplicates
// across chunk boundaries is the Scanner's own responsibility.
type Scanner interface {
	// ScanChunk searches data for matches; dataOffset is the address in
	// the layer's space where data[0] starts.
	ScanChunk(data []byte, dataOffset int64) []Match

	ChunkSize() int64
	Overlap() int64

	// ThreadSafe reports whether ScanChunk may be invoked concurrently
	// from multiple goroutines. A thread-safe Scanner must not hold
	// mutable state observed or modified by ScanChunk.
	ThreadSafe() bool

	SetContext(ctx Context)
	SetLayerName(name string)
}

// BaseScanner supplies the bookkeeping every Scanner needs
// (chunk/overlap sizing, bound Context/layer name) so concrete
// scanners need only implement ScanChunk (and ThreadSafe, if true).
// Mirrors interfaces/layers.py's ScannerInterface.__init__ defaults.
type BaseScanner struct {
	chunkSize int64
	overlap   int64
	ctx       Context
	layerName string
}

// NewBaseScanner returns a BaseScanner with the default chunk size
// (16 MiB) and overlap (4 KiB, one page).
func NewBaseScanner() BaseScanner {
	return BaseScanner{chunkSize: DefaultChunkSize, overlap: DefaultOverlap}
}

func (b *BaseScanner) ChunkSize() int64 { return b.chunkSize }
func (b *BaseScanner) Overlap() int64   { return b.overlap }

// SetChunkSize and SetOverlap let a concrete scanner tune its budget
// before a scan begins; they have no effect mid-scan.
func (b *BaseScanner) SetChunkSize(n int64) { b.chunkSize = n }
func (b *BaseScanner) SetOverlap(n int64)   { b.overlap = n }

func (b *BaseScanner) ThreadSafe() bool { return false }

func (b *BaseScanner) SetContext(ctx Context)  { b.ctx = ctx }
func (b *BaseScanner) SetLayerName(name string) { b.layerName = name }

func (b *BaseScanner) Context() Context    { return b.ctx }
func (b *BaseScanner) LayerName() string   { return b.layerName }
