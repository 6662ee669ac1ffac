// Package parallel provides the worker helpers used by cross-validation and
// ensemble training.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// Parallelize splits [0, items) into one contiguous range per CPU and runs fn
// on each range concurrently. A panic in any range is recovered in its own
// goroutine; the first one is returned as a *errors.PanicError.
func Parallelize(items int, fn func(start, end int)) error {
	if items == 0 {
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			err := errors.SafeExecute("parallel.Parallelize", func() error {
				fn(s, e)
				return nil
			})
			if err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}(start, end)
	}
	wg.Wait()
	return firstErr
}

// ParallelizeWithThreshold runs fn sequentially when items <= threshold.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) error {
	if items <= threshold {
		return errors.SafeExecute("parallel.Parallelize", func() error {
			fn(0, items)
			return nil
		})
	}
	return Parallelize(items, fn)
}

// ForEach calls fn for every index in [0, n) with at most limit calls in
// flight. limit <= 0 means GOMAXPROCS. The first error cancels the context
// passed to the remaining calls and is returned.
func ForEach(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
