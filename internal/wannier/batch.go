package wannier

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one file set in a batch
type BatchItem struct {
	Files  FileSet
	Result *Result
	Err    error
}

// ParseAll parses independent file sets concurrently with at most workers
// parses in flight. Items keep the order of sets. A failing set only fills
// its own Err; the returned error is the context error when ctx ends first.
func ParseAll(ctx context.Context, sets []FileSet, opts Options, workers int) ([]BatchItem, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make([]BatchItem, len(sets))
	semaphore := make(chan struct{}, workers)

	var g errgroup.Group
	for i, fs := range sets {
		items[i].Files = fs

		select {
		case <-ctx.Done():
			items[i].Err = ctx.Err()
			continue
		case semaphore <- struct{}{}:
		}

		g.Go(func() error {
			defer func() { <-semaphore }()
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = Parse(fs, opts)
			return nil
		})
	}
	_ = g.Wait()

	return items, ctx.Err()
}
