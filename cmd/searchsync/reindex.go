package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	syncengine "github.com/lumenpress/searchsync/internal/sync"
)

var (
	reindexKinds         []string
	reindexBatchSize     int
	reindexWorkers       int
	reindexConfigureOnly bool
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the relational store",
	Long: `Pushes the engine schema and repopulates the shared index from the
relational store. Without --kinds every registered kind is rebuilt. A failed
batch does not stop the run; the command exits non-zero if any batch failed.`,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().StringSliceVar(&reindexKinds, "kinds", nil,
		"comma-separated kinds to rebuild (default: all)")
	reindexCmd.Flags().IntVar(&reindexBatchSize, "batch-size", 0,
		"documents per bulk upsert (default from config)")
	reindexCmd.Flags().IntVar(&reindexWorkers, "workers", 0,
		"concurrent bulk upserts (default from config)")
	reindexCmd.Flags().BoolVar(&reindexConfigureOnly, "configure-only", false,
		"push engine settings and exit without indexing")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	batchSize := reindexBatchSize
	if batchSize <= 0 {
		batchSize = a.cfg.Sync.BatchSize
	}
	workers := reindexWorkers
	if workers <= 0 {
		workers = a.cfg.Sync.Workers
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Indexing documents"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	indexer := syncengine.NewIndexer(a.db, a.builder, a.reg, a.engine, a.mon, a.log).
		WithBatchSize(batchSize).
		WithWorkers(workers).
		WithProgress(func(indexed int) { _ = bar.Add(indexed) })

	if err := indexer.ConfigureSchema(ctx); err != nil {
		return fmt.Errorf("configure schema: %w", err)
	}
	if reindexConfigureOnly {
		cmd.Println("Engine schema configured.")
		return nil
	}

	report, err := indexer.Reindex(ctx, reindexKinds)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	cmd.Printf("Reindex finished in %s\n", report.Elapsed.Round(time.Millisecond))
	cmd.Printf("  processed: %d\n  indexed:   %d\n  skipped:   %d\n  failed:    %d\n",
		report.Processed, report.Indexed, report.Skipped, report.Failed)
	for kind, kr := range report.Kinds {
		cmd.Printf("  %-10s processed=%d indexed=%d skipped=%d failed=%d\n",
			kind, kr.Processed, kr.Indexed, kr.Skipped, kr.Failed)
	}

	if report.Partial() {
		return fmt.Errorf("%d batch(es) failed, %d documents not indexed",
			report.FailedBatches, report.Failed)
	}
	return nil
}
