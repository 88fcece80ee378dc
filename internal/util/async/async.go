package async

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunWorkers processes items with at most workers concurrent calls to fn.
// Items are handed out in order, but complete in any order.
//
// If fn returns an error, or ctx is cancelled, workers finish the item they
// hold and take no more; the first error is returned. Items that were never
// handed out are not passed to fn.
//
// Example:
//
//	err := RunWorkers(ctx, 10, tasks, func(ctx context.Context, t *Task) error {
//	    t.Run(ctx)
//	    return nil
//	})
func RunWorkers[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	if len(items) == 0 {
		return nil
	}
	workers = max(1, min(workers, len(items)))

	queue := make(chan T, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	g, ctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for item := range queue {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(ctx, item); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
