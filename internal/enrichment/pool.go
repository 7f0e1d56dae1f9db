package enrichment

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach calls fn for every index in [0, n). With concurrency 1 the calls
// run in order on the caller's goroutine; above that they run on a bounded
// errgroup. fn must write its result into a slot it owns, which keeps the
// output in input order whatever the completion order.
func forEach(ctx context.Context, concurrency, n int, fn func(ctx context.Context, i int)) {
	if concurrency <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			fn(ctx, i)
		}
		return
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(gCtx, i)
			return nil
		})
	}
	_ = g.Wait()
}
