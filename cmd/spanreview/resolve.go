package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spanreview/internal/span"
)

type resolveOptions struct {
	file      string
	line      int
	quote     string
	reason    string
	tolerance float64
}

func newResolveCmd(root *rootOptions) *cobra.Command {
	opts := &resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a start line and quote to a byte range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd, root, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Source file")
	cmd.Flags().IntVarP(&opts.line, "line", "l", 1, "1-based line the quote starts on or after")
	cmd.Flags().StringVarP(&opts.quote, "quote", "q", "", "Verbatim text to locate")
	cmd.Flags().StringVar(&opts.reason, "reason", "", "Reason attached to the span")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", 1, "Match tolerance in (0, 1]; 1 means literal")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("quote")
	return cmd
}

func runResolve(cmd *cobra.Command, root *rootOptions, opts *resolveOptions) error {
	tol := opts.tolerance
	if !cmd.Flags().Changed("tolerance") {
		cfg, err := root.config()
		if err != nil {
			return err
		}
		tol = cfg.Tolerance
	}
	code, err := os.ReadFile(opts.file)
	if err != nil {
		return err
	}
	res, err := span.NewResolver(tol)
	if err != nil {
		return err
	}
	r, err := res.Resolve(span.Approximate{StartLine: opts.line, Quote: opts.quote, Reason: opts.reason}, string(code))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", opts.file, err)
	}
	return writeJSON(cmd.OutOrStdout(), r)
}
