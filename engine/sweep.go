package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Sweep runs every calculation through the Calculator with at most `workers`
// in flight. Each invocation gets its own Calculation value and result
// buffers, so no locking is needed beyond what the Calculator itself does.
//
// Results line up positionally with calcs; a failed calculation leaves a nil
// slot. The returned error joins every per-calculation failure. A context
// cancellation abandons jobs not yet started.
func Sweep(ctx context.Context, c Calculator, calcs []Calculation, opts Options, workers int) ([]*Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]*Result, len(calcs))
	errs := make([]error, len(calcs))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, calc := range calcs {
		if err := ctx.Err(); err != nil {
			errs[i] = fmt.Errorf("calculation %q not started: %w", calc.ID, err)
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, calc Calculation) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := c.Calculate(ctx, calc, opts)
			if err != nil {
				errs[i] = fmt.Errorf("calculation %q: %w", calc.ID, err)
				return
			}
			results[i] = res
		}(i, calc)
	}

	wg.Wait()
	return results, errors.Join(errs...)
}
