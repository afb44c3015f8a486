// Package parallel provides an explicit executor for embarrassingly parallel
// work: independent items distributed over a bounded set of goroutines.
//
// The tuning grid (fold x candidate) and forest training (one tree per item)
// both use an Executor. Passing the executor in, instead of registering a
// process-wide parallel backend, keeps the degree of parallelism a visible
// parameter with an explicit lifecycle.
package parallel

import (
	"runtime"
	"sync"
)

// Executor runs independent work items on at most Workers goroutines.
// The zero value uses runtime.NumCPU() workers.
type Executor struct {
	Workers int
}

// NewExecutor creates an executor with the given worker count.
// A count below 1 falls back to the number of CPUs.
func NewExecutor(workers int) *Executor {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Executor{Workers: workers}
}

// Run invokes fn(i) for i in [0, items). Items are pulled from a shared
// channel so uneven item costs still balance across workers. Run blocks
// until every item has completed.
func (e *Executor) Run(items int, fn func(i int)) {
	if items <= 0 {
		return
	}

	workers := e.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}

	if workers == 1 {
		for i := 0; i < items; i++ {
			fn(i)
		}
		return
	}

	work := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				fn(i)
			}
		}()
	}

	for i := 0; i < items; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
}
