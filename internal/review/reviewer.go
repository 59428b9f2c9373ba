package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"spanreview/internal/examples"
	"spanreview/internal/llm"
	"spanreview/internal/llmtool"
	"spanreview/internal/mcp"
	"spanreview/internal/span"
)

// Reviewer asks a model to select spans of code for each review task and
// returns the merged result.
type Reviewer struct {
	LLM       llm.Client
	Tasks     []Task
	MaxIters  int
	Tolerance float64 // 0 or 1 means literal matching
	Logger    *log.Logger
}

// finalOutput is what the model returns once a task is done.
var finalOutput = []llmtool.PromptField{
	{Name: "summary", Type: "string", Required: true, Description: "One or two sentences on what was selected for this task."},
}

func (r *Reviewer) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

func (r *Reviewer) tasks() []Task {
	if len(r.Tasks) == 0 {
		return DefaultTasks
	}
	return r.Tasks
}

func (r *Reviewer) resolver() (span.Resolver, error) {
	tol := r.Tolerance
	if tol == 0 {
		tol = 1
	}
	return span.NewResolver(tol)
}

func (r *Reviewer) maxIters() int {
	if r.MaxIters <= 0 {
		return llmtool.DefaultMaxIters
	}
	return r.MaxIters
}

// Review runs every task against one session and returns its merged spans.
// A task that fails is logged and skipped, and one that runs out of
// iterations keeps the spans it added. Review only fails when the context
// ends or every task failed without leaving a span behind.
func (r *Reviewer) Review(ctx context.Context, ex examples.Example) ([]span.Resolved, error) {
	if r == nil || r.LLM == nil {
		return nil, fmt.Errorf("review: missing LLM")
	}
	res, err := r.resolver()
	if err != nil {
		return nil, err
	}
	sess := NewSession(ex.Code, res)
	reg := mcp.NewRegistry()
	if err := mcp.RegisterReviewTools(reg, sess); err != nil {
		return nil, err
	}
	loop := &llmtool.ToolLoop{
		LLM:      r.LLM,
		Tools:    reg,
		MaxIters: r.maxIters(),
		Allowed:  []string{"review.add_span", "review.view_code"},
	}

	logger := r.logger()
	tasks := r.tasks()
	logger.Printf("review: running tasks %s with %s", strings.Join(TaskNames(tasks), ", "), r.LLM.Name())
	var failed []error
	for i, task := range tasks {
		tctx := llm.WithTask(ctx, task.Name)
		before := sess.Len()
		_, state, err := loop.Run(tctx, nil, r.promptFor(sess, ex, task, i == 0))
		added := sess.Len() - before
		switch {
		case err == nil:
			logger.Printf("review: task %s added %d spans in %d iterations (%d rejected)",
				task.Name, added, state.Iterations, state.Failed())
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, llmtool.ErrMaxIterations):
			logger.Printf("review: task %s stopped early, keeping %d spans: %v", task.Name, added, err)
		default:
			logger.Printf("review: task %s failed after adding %d spans: %v", task.Name, added, err)
			failed = append(failed, fmt.Errorf("%s: %w", task.Name, err))
		}
	}
	if len(tasks) > 0 && len(failed) == len(tasks) && sess.Len() == 0 {
		return nil, fmt.Errorf("review: every task failed: %w", errors.Join(failed...))
	}
	return sess.Merged(), nil
}

func (r *Reviewer) promptFor(sess *Session, ex examples.Example, task Task, first bool) llmtool.PromptBuilder {
	background := "Code under review (line numbers are for reference only):\n" + sess.ViewCode()
	if ex.Query != "" {
		background = "Query the code was written for: " + ex.Query + "\n\n" + background
	}
	purpose := "Identify portions of the code that a domain expert might want to review."
	if !first {
		purpose = "Review the same code again, selecting spans for a new task."
	}
	spec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose:      purpose,
		Background:   background,
		Task:         task.Prompt,
		OutputFields: finalOutput,
		Rules:        []string{"Use review.add_span once per selected span."},
		OutputFormat: "A single JSON object.",
	}, llmtool.PresetToolEnvelope(), llmtool.PresetVerbatimQuotes())
	return llmtool.StructuredPromptBuilder(spec)
}
