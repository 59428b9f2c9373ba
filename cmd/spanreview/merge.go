package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"spanreview/internal/span"
)

func newMergeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge overlapping spans read as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readFileOrStdin(cmd, file)
			if err != nil {
				return err
			}
			var spans []span.Resolved
			if err := json.Unmarshal(raw, &spans); err != nil {
				return fmt.Errorf("decode spans: %w", err)
			}
			merged := span.Merge(spans)
			if merged == nil {
				merged = []span.Resolved{}
			}
			return writeJSON(cmd.OutOrStdout(), merged)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file of spans (default stdin)")
	return cmd
}
