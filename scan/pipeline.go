package scan

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	baseerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"

	"github.com/coldcore/memlayer/layer"
)

// ErrInvalidBounds is returned when MinAddr > MaxAddr, or either falls
// entirely outside the layer's own range, per spec.md §4.5.
var ErrInvalidBounds = errors.New("scan: minimum address cannot be larger than maximum address")

// Options configures one Scan call.
type Options struct {
	// MinAddr/MaxAddr bound the scan; nil means the layer's own bound.
	MinAddr, MaxAddr *int64

	// Iterator overrides the layer's default scan iterator.
	Iterator Iterator

	// ProgressCB, if non-nil, is called before each chunk (sequential
	// mode) or between worker-pool polls (parallel mode) with a
	// percentage in [0,100] and a human description.
	ProgressCB func(percent float64, description string)

	// Strict, if true, causes an error raised anywhere in the pipeline
	// (iterator, reader, scanner) to be returned from Scan instead of
	// being logged and swallowed. See spec.md §9's Open Question on
	// exception handling; Strict is the opt-in escape hatch the teacher
	// never exposed, kept here for the backward-compatible default.
	Strict bool
}

// Result is one item of the lazy match sequence: either a Match, or
// (in Strict mode only) the terminal error that aborted the scan.
type Result struct {
	Match Match
	Err   error
}

// Scan runs scanner over l, reading through mr, and returns a channel
// of Results. The channel is closed when the scan completes, whether
// normally, via ctx cancellation, or (non-Strict) after an internal
// error is logged and swallowed.
//
// Mirrors interfaces/layers.py's DataLayerInterface.scan: sequential
// execution unless scanner.ThreadSafe() and multithreaded scanning
// hasn't been disabled, in which case chunks fan out to a worker pool
// (see worker.go).
func Scan(ctx context.Context, l layer.DataLayer, mr layer.MemoryReader, scanner Scanner, opts Options) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		if err := runPipeline(ctx, l, mr, scanner, opts, out); err != nil {
			if opts.Strict {
				out <- Result{Err: err}
			} else {
				log.Debug.Printf("scan: failure scanning %s: %v", l.Name(), err)
			}
		}
	}()
	return out
}

func runPipeline(ctx context.Context, l layer.DataLayer, mr layer.MemoryReader, scanner Scanner, opts Options, out chan<- Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan: panic scanning %s: %v", l.Name(), r)
		}
	}()

	scanner.SetContext(NewContext(mr))
	scanner.SetLayerName(l.Name())

	minAddr := l.MinimumAddress()
	if opts.MinAddr != nil {
		minAddr = *opts.MinAddr
	}
	maxAddr := l.MaximumAddress()
	if opts.MaxAddr != nil {
		maxAddr = *opts.MaxAddr
	}
	if minAddr > l.MaximumAddress() || maxAddr < l.MinimumAddress() || minAddr > maxAddr {
		return ErrInvalidBounds
	}
	if minAddr < l.MinimumAddress() {
		minAddr = l.MinimumAddress()
	}
	if maxAddr > l.MaximumAddress() {
		maxAddr = l.MaximumAddress()
	}

	iter := opts.Iterator
	if iter == nil {
		iter = defaultIterator(l, scanner.ChunkSize(), scanner.Overlap())
	}

	description := fmt.Sprintf("Scanning %s using %T", l.Name(), scanner)
	metric := func(value int64) float64 {
		if maxAddr == minAddr {
			return 100
		}
		pct := float64(value-minAddr) * 100 / float64(maxAddr-minAddr)
		if pct < 0 {
			return 0
		}
		return pct
	}

	if scanner.ThreadSafe() && !DisableMultithreadedScanning {
		return runParallel(ctx, l, mr, scanner, iter, minAddr, maxAddr, opts.ProgressCB, description, metric, out)
	}
	return runSequential(ctx, l, mr, scanner, iter, minAddr, maxAddr, opts.ProgressCB, description, metric, out)
}

func runSequential(ctx context.Context, l layer.DataLayer, mr layer.MemoryReader, scanner Scanner, iter Iterator,
	minAddr, maxAddr int64, progressCB func(float64, string), description string, metric func(int64) float64, out chan<- Result) error {

	var progress int64 = minAddr
	for desc := range iter(minAddr, maxAddr) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if progressCB != nil {
			progressCB(metric(atomic.LoadInt64(&progress)), description)
		}
		matches, err := scanChunk(mr, scanner, desc, l.Name())
		if err != nil {
			return err
		}
		atomic.StoreInt64(&progress, desc.ChunkEnd)
		for _, m := range matches {
			select {
			case out <- Result{Match: m}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// scanChunk reads every constituent span of desc through mr,
// concatenating their bytes; a span that fails with an
// InvalidAddressError is logged and skipped (the chunk handed to the
// scanner may then be shorter than requested, or empty), matching
// spec.md §4.5's _scan_chunk.
func scanChunk(mr layer.MemoryReader, scanner Scanner, desc ChunkDescriptor, scanningLayer string) ([]Match, error) {
	var data []byte
	for _, span := range desc.Spans {
		b, err := mr.Read(span.LayerName, span.MappedOffset, span.Length, false)
		if err != nil {
			if layer.IsInvalidAddress(err) {
				log.Debug.Printf("scan: invalid address in layer %s found scanning %s at address 0x%x",
					span.LayerName, scanningLayer, span.MappedOffset)
				continue
			}
			return nil, err
		}
		data = append(data, b...)
	}
	return scanner.ScanChunk(data, desc.ChunkEnd-int64(len(data))), nil
}

// pollInterval is how often the parallel driver reports progress while
// the worker pool runs.
const pollInterval = 100 * time.Millisecond

// DisableMultithreadedScanning globally forces sequential execution
// even for thread-safe scanners, mirroring
// constants.DISABLE_MULTITHREADED_SCANNING in the original.
var DisableMultithreadedScanning = false

// errorAggregator is a tiny wrapper so worker.go can use the same
// errors.Once-based aggregation pattern the teacher uses in its
// worker pools (markduplicates/mark_duplicates.go), without every
// caller needing to import grailbio/base/errors directly.
type errorAggregator struct {
	once baseerrors.Once
}

func (a *errorAggregator) Set(err error) { a.once.Set(err) }
func (a *errorAggregator) Err() error     { return a.once.Err() }
