// Package main is the kurabe CLI entry point.
//
// kurabe runs retrieval benchmarks: a pipeline (bm25, dense, fusion, rerank,
// filter) over a vendor set (embedding, vector store, lexical store, reranker)
// against a fixed catalog and test cases.
//
//	kurabe list
//	kurabe run --pipeline-id bm25_only --vendor-set local_mock \
//	    --catalog data/catalog.tsv --testcases data/testcases.tsv
//	kurabe history --pipeline-id bm25_only
//
// Provider keys are read from the environment or a .env file: OPENAI_API_KEY,
// GOOGLE_API_KEY / GEMINI_API_KEY, COHERE_API_KEY, ELASTIC_AUTH_HEADER, plus
// any variable a vendor set names in its *_env fields.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperjump/kurabe/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitNotFound = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := buildRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(reportError(os.Stderr, err))
}

// reportError prints err and maps it to the process exit code.
func reportError(w io.Writer, err error) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	if errors.Is(err, config.ErrNotFound) {
		return exitNotFound
	}
	return exitError
}

type rootOptions struct {
	debug    bool
	envFiles []string
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "kurabe",
		Short:         "kurabe - retrieval benchmarking pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(opts.envFiles...)
		},
	}
	rootCmd.SetVersionTemplate("kurabe version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files to load (missing files are ignored)")

	rootCmd.AddCommand(
		buildListCmd(),
		buildRunCmd(opts),
		buildIndexCmd(opts),
		buildHistoryCmd(),
		buildServeCmd(opts),
		buildVersionCmd(),
	)
	return rootCmd
}
