package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spanreview/internal/cache"
	"spanreview/internal/cache/memory"
	"spanreview/internal/examples"
	"spanreview/internal/llm"
	"spanreview/internal/span"
)

const sampleCode = "import numpy as np\nx = np.linspace(0, 10, 100)\ny = np.sin(x)\n"

var sample = examples.Example{Query: "plot a sine wave", Code: sampleCode}

var twoTasks = []Task{
	{Name: "params", Prompt: "Find parameters."},
	{Name: "funcs", Prompt: "Find function calls."},
}

func addSpan(line int, quote, reason string) json.RawMessage {
	in, _ := json.Marshal(map[string]any{"start_line": line, "quote": quote, "reason": reason})
	out, _ := json.Marshal(map[string]any{"action": "tool", "tool_name": "review.add_span", "tool_input": json.RawMessage(in)})
	return out
}

var final = json.RawMessage(`{"action":"final","final":{"summary":"done"}}`)

func spanOf(t *testing.T, quote, reason string) span.Resolved {
	t.Helper()
	i := strings.Index(sampleCode, quote)
	require.GreaterOrEqual(t, i, 0)
	return span.Resolved{Start: i, Stop: i + len(quote), Reason: reason}
}

func TestReview_RetriesAfterQuoteNotFound(t *testing.T) {
	cli := llm.NewFakeClient(
		addSpan(2, "np.linspace(0, 10, 100)", "range"),
		final,
		addSpan(3, "np.cos(x)", "wrong"),
		addSpan(3, "np.sin(x)", "func"),
		final,
	)
	r := &Reviewer{LLM: cli, Tasks: twoTasks, Logger: llm.DiscardLogger()}

	got, err := r.Review(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, []span.Resolved{
		spanOf(t, "np.linspace(0, 10, 100)", "range"),
		spanOf(t, "np.sin(x)", "func"),
	}, got)

	assert.Zero(t, cli.Remaining())
	require.Len(t, cli.Prompts, 5)
	assert.Contains(t, cli.Prompts[0], "plot a sine wave")
	assert.Contains(t, cli.Prompts[0], "1| import numpy as np")
	assert.Contains(t, cli.Prompts[0], "Find parameters.")
	assert.Contains(t, cli.Prompts[2], "Find function calls.")
	assert.Contains(t, cli.Prompts[3], "quote not found")
}

func TestReview_MergesOverlapsAcrossTasks(t *testing.T) {
	cli := llm.NewFakeClient(
		addSpan(2, "np.linspace(0, 10", "start"),
		final,
		addSpan(2, "10, 100)", "end"),
		final,
	)
	r := &Reviewer{LLM: cli, Tasks: twoTasks, Logger: llm.DiscardLogger()}

	got, err := r.Review(context.Background(), sample)
	require.NoError(t, err)
	require.Len(t, got, 1)
	want := spanOf(t, "np.linspace(0, 10, 100)", "start"+span.ReasonSeparator+"end")
	assert.Equal(t, want, got[0])
}

func TestReview_FuzzyTolerance(t *testing.T) {
	cli := llm.NewFakeClient(addSpan(2, "np.linspase(0, 10, 100)", "typo"), final)
	r := &Reviewer{LLM: cli, Tasks: twoTasks[:1], Tolerance: 0.9, Logger: llm.DiscardLogger()}

	got, err := r.Review(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, []span.Resolved{spanOf(t, "np.linspace(0, 10, 100)", "typo")}, got)
}

func TestReview_PartialFailureKeepsSpans(t *testing.T) {
	cli := llm.NewFakeClient(addSpan(3, "np.sin(x)", "func"), final)
	r := &Reviewer{LLM: cli, Tasks: twoTasks, Logger: llm.DiscardLogger()}

	got, err := r.Review(context.Background(), sample)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReview_AllTasksFail(t *testing.T) {
	r := &Reviewer{LLM: llm.NewFakeClient(), Tasks: twoTasks, Logger: llm.DiscardLogger()}

	_, err := r.Review(context.Background(), sample)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrScriptExhausted)
	assert.Contains(t, err.Error(), "params")
	assert.Contains(t, err.Error(), "funcs")
}

func TestReview_IterationCapKeepsSpans(t *testing.T) {
	cli := llm.NewFakeClient(
		addSpan(1, "import", "a"), addSpan(1, "numpy", "b"), addSpan(1, "as", "c"), addSpan(1, "np", "d"), addSpan(2, "x", "e"),
		addSpan(2, "linspace", "f"), addSpan(2, "0, 10", "g"), addSpan(2, "100", "h"), addSpan(3, "y", "i"), addSpan(3, "sin", "j"),
	)
	var logs bytes.Buffer
	r := &Reviewer{LLM: cli, Tasks: twoTasks, MaxIters: 5, Logger: log.New(&logs, "", 0)}

	got, err := r.Review(context.Background(), sample)
	require.NoError(t, err)
	assert.Len(t, got, 10)
	assert.Equal(t, spanOf(t, "import", "a"), got[0])
	assert.Equal(t, spanOf(t, "sin", "j"), got[9])
	assert.Zero(t, cli.Remaining())

	assert.Contains(t, logs.String(), "running tasks params, funcs with FakeLLM")
	assert.Contains(t, logs.String(), "task funcs stopped early, keeping 5 spans")
}

func TestReview_FailureAfterSpansKeepsThem(t *testing.T) {
	// One span, then the script runs dry in both tasks.
	cli := llm.NewFakeClient(addSpan(3, "np.sin(x)", "func"))
	r := &Reviewer{LLM: cli, Tasks: twoTasks, Logger: llm.DiscardLogger()}

	got, err := r.Review(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, []span.Resolved{spanOf(t, "np.sin(x)", "func")}, got)
}

func TestReview_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Reviewer{LLM: llm.NewFakeClient(final, final), Tasks: twoTasks, Logger: llm.DiscardLogger()}

	_, err := r.Review(ctx, sample)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReview_RejectsBadTolerance(t *testing.T) {
	r := &Reviewer{LLM: llm.NewFakeClient(), Tolerance: 1.5}
	_, err := r.Review(context.Background(), sample)
	assert.ErrorIs(t, err, span.ErrInvalidTolerance)
}

func TestCachedReviewer_SecondCallIsHit(t *testing.T) {
	cli := llm.NewFakeClient(addSpan(3, "np.sin(x)", "func"), final)
	r := &Reviewer{LLM: cli, Tasks: twoTasks[:1], Logger: llm.DiscardLogger()}
	cr := &CachedReviewer{Reviewer: r, Memo: cache.NewMemo(memory.New(8, time.Minute))}
	ctx := context.Background()

	first, hit, err := cr.Review(ctx, sample)
	require.NoError(t, err)
	assert.False(t, hit)

	// The script is exhausted now, so only a cache hit can succeed.
	second, hit, err := cr.Review(ctx, sample)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
}

func TestCacheKey(t *testing.T) {
	base := &Reviewer{LLM: llm.NewFakeClient(), Tasks: twoTasks}
	key := base.CacheKey(sample)

	assert.Equal(t, key, (&Reviewer{LLM: llm.NewFakeClient(), Tasks: twoTasks, Tolerance: 1}).CacheKey(sample),
		"zero tolerance means literal matching")
	assert.NotEqual(t, key, (&Reviewer{LLM: llm.NewFakeClient(), Tasks: twoTasks, Tolerance: 0.9}).CacheKey(sample))
	assert.NotEqual(t, key, (&Reviewer{LLM: llm.NewFakeClient(), Tasks: twoTasks[:1]}).CacheKey(sample))
	assert.NotEqual(t, key, (&Reviewer{LLM: llm.NewFakeClient(), Tasks: twoTasks, MaxIters: 5}).CacheKey(sample))
	assert.Equal(t, key, (&Reviewer{LLM: llm.NewFakeClient(), Tasks: twoTasks, MaxIters: 25}).CacheKey(sample),
		"an unset cap means the default")
	assert.NotEqual(t, key, base.CacheKey(examples.Example{Query: sample.Query, Code: sampleCode + "\n"}))
	assert.NotEqual(t, key, base.CacheKey(examples.Example{Query: "other", Code: sampleCode}))
}
