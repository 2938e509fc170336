// Package runner runs a batch of workers with a cap on how many are in flight at once.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

var ErrInvalidLimit = errors.New("concurrency limit must be at least 1")

// Result is the outcome of one item. Index is the item's position in the input.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Worker handles one item; index is the item's input position.
type Worker[T, R any] func(ctx context.Context, item T, index int) (R, error)

// RunAll feeds every item to worker with at most limit calls in flight and waits until all
// of them settle. Results come back in completion order, not input order.
//
// A failed or panicking worker only marks its own result. ctx is checked before each
// dequeue: once it is done, items not yet started are recorded with ctx.Err() and never run.
func RunAll[T, R any](ctx context.Context, items []T, limit int, worker Worker[T, R]) ([]Result[R], error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if len(items) == 0 {
		return []Result[R]{}, nil
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]Result[R], 0, len(items))
	)
	collect := func(r Result[R]) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	sem := semaphore.NewWeighted(int64(limit))
	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(items); j++ {
				collect(Result[R]{Index: j, Err: err})
			}
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			collect(call(ctx, worker, item, i))
		}()
	}

	wg.Wait()
	return results, nil
}

func call[T, R any](ctx context.Context, worker Worker[T, R], item T, index int) (res Result[R]) {
	res.Index = index
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("worker panicked on item %d: %v", index, r)
		}
	}()
	res.Value, res.Err = worker(ctx, item, index)
	return res
}

// SortByIndex restores input order in place.
func SortByIndex[R any](results []Result[R]) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Index < results[j].Index })
}

// Succeeded returns the values of successful results, keeping their order.
func Succeeded[R any](results []Result[R]) []R {
	out := make([]R, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}
