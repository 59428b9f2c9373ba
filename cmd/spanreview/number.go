package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spanreview/internal/span"
)

func newNumberCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "number",
		Short: "Print a file with the line numbers the reviewer sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readFileOrStdin(cmd, file)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), span.NumberLines(string(raw)))
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Source file (default stdin)")
	return cmd
}
