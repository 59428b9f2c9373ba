package review

import (
	"context"
	"strconv"

	"spanreview/internal/cache"
	"spanreview/internal/examples"
	"spanreview/internal/span"
)

const cacheKeyVersion = "spanreview/v2"

// CachedReviewer serves repeated reviews of the same input from a Memo.
// A nil Memo disables caching.
type CachedReviewer struct {
	Reviewer *Reviewer
	Memo     *cache.Memo
}

// Review returns the spans for ex and whether they came from the cache.
func (c *CachedReviewer) Review(ctx context.Context, ex examples.Example) ([]span.Resolved, bool, error) {
	key := c.Reviewer.CacheKey(ex)
	return c.Memo.Spans(ctx, key, func(ctx context.Context) ([]span.Resolved, error) {
		return c.Reviewer.Review(ctx, ex)
	})
}

// CacheKey identifies a review by everything that can change its output:
// the model, the task list, the match tolerance, the iteration cap and the
// example itself.
func (r *Reviewer) CacheKey(ex examples.Example) string {
	tasks := r.tasks()
	tol := r.Tolerance
	if tol == 0 {
		tol = 1
	}
	model := ""
	if r.LLM != nil {
		model = r.LLM.Name()
	}
	parts := []string{
		cacheKeyVersion,
		model,
		strconv.FormatFloat(tol, 'g', -1, 64),
		strconv.Itoa(r.maxIters()),
		strconv.Itoa(len(tasks)),
	}
	for _, t := range tasks {
		parts = append(parts, t.Name, t.Prompt)
	}
	parts = append(parts, ex.Query, ex.Code)
	return cache.KeyOf(parts...)
}
