package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/multiio/internal/format"
)

// itemResult records what happened to one input or output.
type itemResult struct {
	attempted bool
	kind      format.Kind
	err       *ItemError
}

type itemTask func(ctx context.Context, i int) (format.Kind, *ItemError)

// each runs task for items 0..n-1 and returns their results in declaration
// order. Items never started because ctx ended are reported through
// unattempted.
//
// FastFail always runs sequentially and stops at the first failure, so no
// item after it is touched. Accumulate runs sequentially on a sync engine
// and concurrently on an async one.
func (e *Engine) each(ctx context.Context, n int, task itemTask, unattempted func(i int, err error) *ItemError) []itemResult {
	results := make([]itemResult, n)
	if !e.async || e.policy.IsFastFail() || n <= 1 {
		for i := range n {
			if err := ctx.Err(); err != nil {
				results[i].err = unattempted(i, err)
				if e.policy.IsFastFail() {
					break
				}
				continue
			}
			results[i].attempted = true
			results[i].kind, results[i].err = task(ctx, i)
			if results[i].err != nil && e.policy.IsFastFail() {
				break
			}
		}
		return results
	}

	// Each goroutine owns results[i]; completion order is never observable.
	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = unattempted(i, err)
				return nil
			}
			results[i].attempted = true
			results[i].kind, results[i].err = task(ctx, i)
			return nil
		})
	}
	_ = g.Wait() // tasks report through results, never through the group
	return results
}
