package main

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"spanreview/internal/config"
	"spanreview/internal/llm"
	"spanreview/internal/util/jsonutil"
)

type rootOptions struct {
	verbose bool
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "spanreview",
		Short: "Locate and merge code spans selected by a reviewing model",
		Long: `spanreview asks a model to point at regions of code worth a second look,
resolves each pointer (start line + verbatim quote) to an exact byte range,
and merges overlapping ranges for display.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file to load before reading the environment")

	cmd.AddCommand(newReviewCmd(opts))
	cmd.AddCommand(newResolveCmd(opts))
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newNumberCmd())
	return cmd
}

func (o *rootOptions) config() (*config.Config, error) {
	if strings.TrimSpace(o.envFile) == "" {
		return config.FromEnv()
	}
	return config.Load(o.envFile)
}

func (o *rootOptions) logger(cmd *cobra.Command) *log.Logger {
	if !o.verbose {
		return llm.DiscardLogger()
	}
	return log.New(cmd.ErrOrStderr(), "spanreview: ", log.LstdFlags)
}

func writeJSON(w io.Writer, v any) error {
	b, err := jsonutil.MarshalNoEscapeIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func readFileOrStdin(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
