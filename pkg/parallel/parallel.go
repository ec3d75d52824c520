package parallel

import (
	"context"
	"sync"
)

// ============================================================================
// Bounded Index-Tagged Fan-Out
// ============================================================================
//
// Every parallel path in the pipeline (per-region hazards, independent
// analysis stages, per-image descriptions) goes through Map. Each task owns
// the result slot matching its input index, so workers never write to the
// same location and the output order is the input order regardless of
// completion order.
// ============================================================================

// Map runs fn over items on at most limit goroutines and returns the results
// in input order. A limit below 1 is treated as 1. fn is responsible for its
// own failure handling; a failing task should return a degraded result rather
// than panic.
func Map[T any, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, index int, item T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(index int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[index] = fn(ctx, index, items[index])
		}(i)
	}
	wg.Wait()
	return results
}
