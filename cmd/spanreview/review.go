package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spanreview/internal/cache"
	"spanreview/internal/config"
	"spanreview/internal/display"
	"spanreview/internal/examples"
	"spanreview/internal/llm"
	"spanreview/internal/review"
	"spanreview/internal/span"
)

type reviewOptions struct {
	examples  string
	index     int
	cache     string
	model     string
	tolerance float64
	maxIters  int
	asJSON     bool
	noColor    bool
	clearCache bool
	listTasks  bool
}

// newLLM is swapped out in tests.
var newLLM = func(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	return llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
}

func newReviewCmd(root *rootOptions) *cobra.Command {
	opts := &reviewOptions{}
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Ask the model to select spans of an example's code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReview(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.examples, "examples", "e", "", "YAML file of {query, code} examples")
	cmd.Flags().IntVarP(&opts.index, "index", "i", 0, "Index of the example to review")
	cmd.Flags().StringVar(&opts.cache, "cache", "", "Cache backend: disk, memory, s3, postgres, none")
	cmd.Flags().StringVar(&opts.model, "model", "", "Gemini model id")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", 0, "Match tolerance in (0, 1]; 1 means literal")
	cmd.Flags().IntVar(&opts.maxIters, "max-iters", 0, "Tool-loop iterations per task")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print spans as JSON instead of highlighted code")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colours")
	cmd.Flags().BoolVar(&opts.clearCache, "clear-cache", false, "Empty the cache backend before reviewing")
	cmd.Flags().BoolVar(&opts.listTasks, "list-tasks", false, "Print the review task names and exit")
	return cmd
}

func (o *reviewOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("cache") {
		cfg.Cache = o.cache
	}
	if flags.Changed("model") {
		cfg.Model = o.model
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = o.tolerance
	}
	if flags.Changed("max-iters") {
		cfg.MaxIters = o.maxIters
	}
	return cfg.Validate()
}

func runReview(cmd *cobra.Command, root *rootOptions, opts *reviewOptions) (err error) {
	if opts.listTasks {
		for _, name := range review.TaskNames(review.DefaultTasks) {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
				return err
			}
		}
		return nil
	}
	if opts.examples == "" {
		return errors.New(`required flag(s) "examples" not set`)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := root.logger(cmd)

	cfg, err := root.config()
	if err != nil {
		return err
	}
	if err := opts.apply(cmd, cfg); err != nil {
		return err
	}

	list, err := examples.Load(opts.examples)
	if err != nil {
		return err
	}
	ex, err := examples.Pick(list, opts.index)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	var memo *cache.Memo
	if store != nil {
		defer func() {
			if cerr := store.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close %s cache: %w", cfg.Cache, cerr))
			}
		}()
		if opts.clearCache {
			if err := cache.Clear(ctx, store); err != nil {
				return fmt.Errorf("clear %s cache: %w", cfg.Cache, err)
			}
			logger.Printf("cache %s: cleared", cfg.Cache)
		}
		memo = cache.NewMemo(store)
	}

	inner, err := newLLM(ctx, cfg)
	if err != nil {
		return err
	}
	client := llm.Wrap(inner,
		llm.WithLogging(logger),
		llm.Retry(3, 300*time.Millisecond),
		llm.RateLimit(cfg.RPS, 1),
	)
	defer func() { err = errors.Join(err, client.Close()) }()

	reviewer := &review.CachedReviewer{
		Reviewer: &review.Reviewer{
			LLM:       client,
			Tasks:     review.DefaultTasks,
			MaxIters:  cfg.MaxIters,
			Tolerance: cfg.Tolerance,
			Logger:    logger,
		},
		Memo: memo,
	}
	spans, hit, err := reviewer.Review(ctx, ex)
	if err != nil {
		return err
	}
	if memo != nil {
		m := memo.Metrics()
		logger.Printf("cache %s: hit=%v (hits=%d misses=%d read_err=%d write_err=%d)",
			cfg.Cache, hit, m.Hits, m.Misses, m.ReadErr, m.WriteErr)
	}

	if opts.asJSON {
		if spans == nil {
			spans = []span.Resolved{}
		}
		return writeJSON(cmd.OutOrStdout(), spans)
	}
	return display.Render(cmd.OutOrStdout(), ex.Code, spans, display.Options{NoColor: opts.noColor})
}
