package tools

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/tripflow/types"
)

// ExecuteAll runs invocations concurrently, at most maxConcurrency at a
// time, and waits for every one of them. Results are indexed like invs.
// A non-retryable failure cancels the calls still outstanding; they report
// CANCELLED while completed calls keep their results.
func (e *Executor) ExecuteAll(ctx context.Context, invs []Invocation) []Result {
	results := make([]Result, len(invs))
	if len(invs) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)
	for i, inv := range invs {
		g.Go(func() error {
			r := e.Execute(gctx, inv)
			results[i] = r
			if !r.OK() && !r.Retryable {
				// first fatal result cancels gctx for the siblings
				return r.Err()
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Report aggregates a batch of results.
type Report struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Partial reports whether the batch both succeeded and failed in part.
func (r Report) Partial() bool { return r.Succeeded > 0 && r.Failed > 0 }

// AllSucceeded reports whether no call failed.
func (r Report) AllSucceeded() bool { return r.Failed == 0 }

// Summarize counts successes and failures.
func Summarize(results []Result) Report {
	rep := Report{Total: len(results)}
	for _, r := range results {
		if r.OK() {
			rep.Succeeded++
		} else {
			rep.Failed++
		}
	}
	return rep
}

// FirstFailure returns the error of the first failed result in request order.
func FirstFailure(results []Result) *types.Error {
	for _, r := range results {
		if !r.OK() {
			return r.Err()
		}
	}
	return nil
}

// FailedIndices returns the positions of failed results.
func FailedIndices(results []Result) []int {
	var idx []int
	for i, r := range results {
		if !r.OK() {
			idx = append(idx, i)
		}
	}
	return idx
}
