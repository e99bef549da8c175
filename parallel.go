package stickerkit

import (
	"context"
	"runtime"
	"sync"
)

// runIndexed calls fn for every index in [0, n) on at most workers
// goroutines. Each call owns slot i of whatever result slice the caller
// keeps, so results stay in index order. The returned slice holds the error
// of each index; indexes not started before ctx is done get KindCanceled.
func runIndexed(ctx context.Context, n, workers int, fn func(i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range n {
		if err := checkContext(ctx); err != nil {
			for j := i; j < n; j++ {
				errs[j] = err
			}
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			errs[idx] = fn(idx)
		}(i)
	}
	wg.Wait()
	return errs
}
