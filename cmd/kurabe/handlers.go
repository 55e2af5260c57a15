package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/kurabe/internal/cli"
	"github.com/hyperjump/kurabe/internal/config"
	"github.com/hyperjump/kurabe/internal/dataset"
	"github.com/hyperjump/kurabe/internal/pipeline"
	"github.com/hyperjump/kurabe/internal/server"
	"github.com/hyperjump/kurabe/internal/storage"
	"github.com/hyperjump/kurabe/internal/watcher"
	"github.com/hyperjump/kurabe/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLogger(debug bool) (*zap.Logger, error) {
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func runList(cmd *cobra.Command, vendorsPath, pipelinesPath, output string) error {
	format, err := cli.ParseOutputFormat(output)
	if err != nil {
		return err
	}
	sets, err := config.LoadVendorSets(vendorsPath)
	if err != nil {
		return err
	}
	pls, err := config.LoadPipelines(pipelinesPath)
	if err != nil {
		return err
	}
	return cli.WriteListing(cmd.OutOrStdout(), cli.NewListing(sets, pls), format)
}

func runBenchmark(cmd *cobra.Command, root *rootOptions, f *runFlags) error {
	format, err := cli.ParseOutputFormat(f.output)
	if err != nil {
		return err
	}
	logger, err := newLogger(root.debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	runOnce := func(ctx context.Context) error {
		vs, err := config.VendorSetByID(f.vendorsPath, f.vendorSetID)
		if err != nil {
			return err
		}
		p, err := config.PipelineByID(f.pipelinesPath, f.pipelineID)
		if err != nil {
			return err
		}
		if err := pipeline.CheckGuards(p); err != nil {
			return err
		}
		opts := []pipeline.Option{pipeline.WithLogger(logger)}
		if f.registryPath != "" {
			reg, err := storage.NewSQLiteRegistry(f.registryPath)
			if err != nil {
				return err
			}
			defer reg.Close()
			opts = append(opts, pipeline.WithRegistry(reg))
		}
		res, err := pipeline.NewRunner(opts...).Run(ctx, pipeline.Input{
			VendorSet:     vs,
			Pipeline:      p,
			CatalogPath:   f.catalogPath,
			TestcasesPath: f.testcasesPath,
			VendorsPath:   f.vendorsPath,
			PipelinesPath: f.pipelinesPath,
			OutDir:        f.outDir,
		})
		if err != nil {
			return err
		}
		return cli.WriteRun(cmd.OutOrStdout(), &cli.RunOutput{Summary: res.Summary, Artifacts: res.Artifacts}, format)
	}

	ctx := cmd.Context()
	if !f.watch {
		return runOnce(ctx)
	}
	return watchAndRun(ctx, logger, []string{f.catalogPath, f.testcasesPath, f.vendorsPath, f.pipelinesPath}, runOnce)
}

// watchAndRun runs once, then again after every debounced change to files,
// until ctx is cancelled. Runs never overlap; changes during a run queue one
// more run. Run errors are logged, not returned.
func watchAndRun(ctx context.Context, logger *zap.Logger, files []string, run func(context.Context) error) error {
	trigger := make(chan struct{}, 1)
	w, err := watcher.NewWatcher(files, func(path string) {
		logger.Info("Input changed", zap.String("path", path))
		select {
		case trigger <- struct{}{}:
		default:
		}
	}, watcher.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	for {
		if err := run(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("Run failed", zap.Error(err))
		}
		logger.Info("Watching inputs for changes", zap.Strings("files", w.Files()))
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
		}
	}
}

func runIndex(cmd *cobra.Command, root *rootOptions, vendorsPath, vendorSetID, catalogPath string, batch int) error {
	logger, err := newLogger(root.debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	vs, err := config.VendorSetByID(vendorsPath, vendorSetID)
	if err != nil {
		return err
	}
	docs, err := dataset.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	idx, emb, err := pipeline.NewDefaultFactory(logger).Indexer(ctx, vs, batch)
	if err != nil {
		return err
	}
	if emb != nil {
		defer emb.Close()
	}
	stats, err := idx.IndexCatalog(ctx, docs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents (vector points: %d, lexical docs: %d)\n",
		stats.Docs, stats.VectorPoints, stats.LexicalDocs)
	return nil
}

func runHistory(cmd *cobra.Command, registryPath, pipelineID, vendorSetID string, limit int, output string) error {
	format, err := cli.ParseOutputFormat(output)
	if err != nil {
		return err
	}
	reg, err := storage.NewSQLiteRegistry(registryPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	runs, err := reg.ListRuns(cmd.Context(), storage.RunFilter{
		PipelineID:  pipelineID,
		VendorSetID: vendorSetID,
		Limit:       limit,
	})
	if err != nil {
		return err
	}
	return cli.WriteHistory(cmd.OutOrStdout(), runs, format)
}

func runServe(cmd *cobra.Command, root *rootOptions, registryPath string, cfg server.Config) error {
	logger, err := newLogger(root.debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg, err := storage.NewSQLiteRegistry(registryPath)
	if err != nil {
		return err
	}
	defer reg.Close()

	srv := server.NewServer(reg, cfg, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}
