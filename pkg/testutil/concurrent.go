package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "walletverify/pkg/domain-errors"
	"walletverify/pkg/platform/sentinel"
)

// ConcurrentResult buckets the outcomes of a RunConcurrent call.
type ConcurrentResult struct {
	Successes   int32
	Conflicts   int32
	NotFounds   int32
	Unavailable int32
	Errors      int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.NotFounds + r.Unavailable + r.Errors
}

// RunConcurrent starts n goroutines behind a shared gate so they race as
// closely as the scheduler allows, then buckets each returned error. Store
// sentinels and service domain codes land in the same bucket.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, conflicts, notFounds, down, errs atomic.Int32
	gate := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-gate
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict), dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			case errors.Is(err, sentinel.ErrNotFound), dErrors.HasCode(err, dErrors.CodeNotFound):
				notFounds.Add(1)
			case errors.Is(err, sentinel.ErrUnavailable), dErrors.HasCode(err, dErrors.CodeUnavailable):
				down.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	close(gate)
	wg.Wait()

	return &ConcurrentResult{
		Successes:   successes.Load(),
		Conflicts:   conflicts.Load(),
		NotFounds:   notFounds.Load(),
		Unavailable: down.Load(),
		Errors:      errs.Load(),
	}
}
