package main

import (
	"fmt"

	"github.com/hyperjump/kurabe/internal/config"
	"github.com/hyperjump/kurabe/internal/indexer"
	"github.com/hyperjump/kurabe/internal/server"
	"github.com/spf13/cobra"
)

const (
	defaultOutDir       = "runs"
	defaultRegistryPath = "runs/registry.db"
)

func buildListCmd() *cobra.Command {
	var vendorsPath, pipelinesPath, output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured vendor sets and pipelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, vendorsPath, pipelinesPath, output)
		},
	}
	cmd.Flags().StringVar(&vendorsPath, "vendors", config.DefaultVendorsPath, "vendor sets YAML")
	cmd.Flags().StringVar(&pipelinesPath, "pipelines", config.DefaultPipelinesPath, "pipelines YAML")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

type runFlags struct {
	pipelineID    string
	vendorSetID   string
	catalogPath   string
	testcasesPath string
	outDir        string
	vendorsPath   string
	pipelinesPath string
	registryPath  string
	output        string
	watch         bool
}

func buildRunCmd(root *rootOptions) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one benchmark and write its artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, root, f)
		},
	}
	cmd.Flags().StringVar(&f.pipelineID, "pipeline-id", "", "pipeline id (required)")
	cmd.Flags().StringVar(&f.vendorSetID, "vendor-set", "", "vendor set id (required)")
	cmd.Flags().StringVar(&f.catalogPath, "catalog", "", "catalog TSV or XLSX (required)")
	cmd.Flags().StringVar(&f.testcasesPath, "testcases", "", "test cases TSV or XLSX (required)")
	cmd.Flags().StringVar(&f.outDir, "out-dir", defaultOutDir, "directory for run artifacts")
	cmd.Flags().StringVar(&f.vendorsPath, "vendors", config.DefaultVendorsPath, "vendor sets YAML")
	cmd.Flags().StringVar(&f.pipelinesPath, "pipelines", config.DefaultPipelinesPath, "pipelines YAML")
	cmd.Flags().StringVar(&f.registryPath, "registry", defaultRegistryPath, "SQLite run registry (empty disables recording)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "text", "output format: text or json")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "re-run whenever an input file changes")
	for _, name := range []string{"pipeline-id", "vendor-set", "catalog", "testcases"} {
		cobra.CheckErr(cmd.MarkFlagRequired(name))
	}
	return cmd
}

func buildIndexCmd(root *rootOptions) *cobra.Command {
	var vendorSetID, catalogPath, vendorsPath string
	var batch int
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Push a catalog into the Qdrant and Elasticsearch stores of a vendor set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, root, vendorsPath, vendorSetID, catalogPath, batch)
		},
	}
	cmd.Flags().StringVar(&vendorSetID, "vendor-set", "", "vendor set id (required)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog TSV or XLSX (required)")
	cmd.Flags().StringVar(&vendorsPath, "vendors", config.DefaultVendorsPath, "vendor sets YAML")
	cmd.Flags().IntVar(&batch, "batch", indexer.DefaultBatchSize, "documents per request")
	cobra.CheckErr(cmd.MarkFlagRequired("vendor-set"))
	cobra.CheckErr(cmd.MarkFlagRequired("catalog"))
	return cmd
}

func buildHistoryCmd() *cobra.Command {
	var registryPath, pipelineID, vendorSetID, output string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, registryPath, pipelineID, vendorSetID, limit, output)
		},
	}
	cmd.Flags().StringVar(&registryPath, "registry", defaultRegistryPath, "SQLite run registry")
	cmd.Flags().StringVar(&pipelineID, "pipeline-id", "", "only runs of this pipeline")
	cmd.Flags().StringVar(&vendorSetID, "vendor-set", "", "only runs of this vendor set")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func buildServeCmd(root *rootOptions) *cobra.Command {
	var registryPath string
	cfg := server.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, registryPath, cfg)
		},
	}
	cmd.Flags().StringVar(&registryPath, "registry", defaultRegistryPath, "SQLite run registry")
	cmd.Flags().StringVar(&cfg.Host, "host", cfg.Host, "listen host")
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kurabe version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kurabe version %s\n", version)
		},
	}
}
