package scan

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coldcore/memlayer/layer"
)

// runParallel dispatches chunks from iter to a fixed worker pool, one
// goroutine per hardware thread by default (spec.md §5's "platform
// default"), each reading its chunk's spans through mr and invoking
// scanner independently. Adapted from the channel-of-work-items +
// sync.WaitGroup + errors.Once pattern in
// markduplicates/mark_duplicates.go's generatePAM/generateBAM, in
// place of the source's multiprocessing.Pool.
//
// Match ordering across chunks is not guaranteed, per spec.md §5.
func runParallel(ctx context.Context, l layer.DataLayer, mr layer.MemoryReader, scanner Scanner, iter Iterator,
	minAddr, maxAddr int64, progressCB func(float64, string), description string, metric func(int64) float64, out chan<- Result) error {

	numWorkers := runtime.NumCPU()
	if numWorkers < 1 {
		numWorkers = 1
	}

	work := iter(minAddr, maxAddr)

	var progress int64 = minAddr
	var errs errorAggregator
	var wg sync.WaitGroup

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	if progressCB != nil {
		go func() {
			ticker := time.NewTicker(pollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-pollCtx.Done():
					return
				case <-ticker.C:
					progressCB(metric(atomic.LoadInt64(&progress)), description)
				}
			}
		}()
	}

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for desc := range work {
				select {
				case <-ctx.Done():
					errs.Set(ctx.Err())
					continue
				default:
				}
				matches, err := scanChunk(mr, scanner, desc, l.Name())
				if err != nil {
					errs.Set(err)
					continue
				}
				atomic.StoreInt64(&progress, desc.ChunkEnd)
				for _, m := range matches {
					select {
					case out <- Result{Match: m}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	return errs.Err()
}
