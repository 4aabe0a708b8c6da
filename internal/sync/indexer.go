package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/index"
	"github.com/lumenpress/searchsync/internal/metrics"
	"github.com/lumenpress/searchsync/internal/registry"
	"github.com/lumenpress/searchsync/internal/store"
)

// Batch defaults.
const (
	DefaultBatchSize = 100
	DefaultWorkers   = 2
)

// KindReport counts outcomes for one kind during a reindex run.
type KindReport struct {
	Processed int
	Indexed   int
	Skipped   int
	Failed    int
}

// Report summarizes a reindex run. Failed documents belong to batches
// whose bulk upsert failed; already-indexed batches are never rolled back.
type Report struct {
	Processed     int
	Indexed       int
	Skipped       int
	Failed        int
	FailedBatches int
	Kinds         map[string]KindReport
	Elapsed       time.Duration
}

// Partial reports whether any batch failed.
func (r Report) Partial() bool { return r.FailedBatches > 0 }

// Indexer drives full or per-kind rebuilds in bounded batches.
type Indexer struct {
	enum      store.Enumerator
	builder   DocumentBuilder
	registry  *registry.Registry
	idx       BulkWriter
	mon       Recorder
	log       *zap.Logger
	settings  index.Settings
	batchSize int
	workers   int
	progress  func(indexed int)
}

// NewIndexer creates an Indexer with default batch size and worker cap.
func NewIndexer(
	enum store.Enumerator, builder DocumentBuilder, reg *registry.Registry,
	idx BulkWriter, mon Recorder, log *zap.Logger,
) *Indexer {
	return &Indexer{
		enum:      enum,
		builder:   builder,
		registry:  reg,
		idx:       idx,
		mon:       mon,
		log:       log,
		settings:  index.DefaultSettings(),
		batchSize: DefaultBatchSize,
		workers:   DefaultWorkers,
	}
}

// WithBatchSize overrides the documents-per-bulk-call limit.
func (ix *Indexer) WithBatchSize(n int) *Indexer {
	if n > 0 {
		ix.batchSize = n
	}
	return ix
}

// WithWorkers overrides the concurrent bulk-upsert cap. Batches are
// independent and idempotent, so limited parallelism is safe.
func (ix *Indexer) WithWorkers(n int) *Indexer {
	if n > 0 {
		ix.workers = n
	}
	return ix
}

// WithProgress sets a callback invoked with the document count of each
// successfully indexed batch.
func (ix *Indexer) WithProgress(fn func(indexed int)) *Indexer {
	ix.progress = fn
	return ix
}

// ConfigureSchema pushes the engine schema. Idempotent; runnable
// standalone before population.
func (ix *Indexer) ConfigureSchema(ctx context.Context) error {
	if err := ix.idx.Configure(ctx, ix.settings); err != nil {
		return fmt.Errorf("configure schema: %w", err)
	}
	ix.log.Info("engine schema configured",
		zap.Strings("searchable", ix.settings.SearchableAttributes),
		zap.Strings("filterable", ix.settings.FilterableAttributes),
	)
	return nil
}

// Reindex rebuilds the index for the given kinds (all registered kinds
// when empty). Entities stream in primary-key order; documents accumulate
// into batches dispatched through a bounded worker group. A failed batch
// is logged and counted, and the run continues: one bad batch must not
// block the corpus. The returned error covers enumeration and
// cancellation only; partial batch failures are reported via Report.
func (ix *Indexer) Reindex(ctx context.Context, kinds []string) (Report, error) {
	if len(kinds) == 0 {
		kinds = ix.registry.Kinds()
	}
	for _, kind := range kinds {
		if _, ok := ix.registry.Spec(kind); !ok {
			return Report{}, fmt.Errorf("%w: %s", domain.ErrUnknownKind, kind)
		}
	}

	start := time.Now()
	report := Report{Kinds: make(map[string]KindReport, len(kinds))}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	var runErr error
	for _, kind := range kinds {
		kr, err := ix.reindexKind(gctx, g, kind, &mu, &report)
		mu.Lock()
		cur := report.Kinds[kind]
		cur.Processed += kr.Processed
		cur.Skipped += kr.Skipped
		report.Kinds[kind] = cur
		report.Processed += kr.Processed
		report.Skipped += kr.Skipped
		mu.Unlock()
		if err != nil {
			runErr = fmt.Errorf("reindex %s: %w", kind, err)
			break
		}
	}

	// Batches already dispatched always run to completion; the group
	// functions themselves never return errors.
	_ = g.Wait()

	report.Elapsed = time.Since(start)

	result := "success"
	if runErr != nil || report.Partial() {
		result = "partial"
	}
	metrics.ReindexRunsTotal.WithLabelValues(result).Inc()

	ix.log.Info("reindex finished",
		zap.Strings("kinds", kinds),
		zap.Int("processed", report.Processed),
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("failed_batches", report.FailedBatches),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, runErr
}

// reindexKind streams one kind, dispatching full batches as they fill.
// Cancellation is cooperative: checked between batches, not mid-batch.
func (ix *Indexer) reindexKind(
	ctx context.Context, g *errgroup.Group, kind string,
	mu *sync.Mutex, report *Report,
) (KindReport, error) {
	var kr KindReport
	batch := make([]domain.Document, 0, ix.batchSize)

	err := ix.enum.EnumerateKind(ctx, kind, func(entity any) error {
		kr.Processed++

		doc, outcome := ix.builder.Build(kind, entity)
		if outcome == registry.Skipped {
			kr.Skipped++
			return nil
		}

		batch = append(batch, doc)
		if len(batch) < ix.batchSize {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		ix.dispatch(ctx, g, kind, batch, mu, report)
		ix.log.Debug("batch dispatched",
			zap.String("kind", kind),
			zap.Int("processed", kr.Processed),
		)
		batch = make([]domain.Document, 0, ix.batchSize)
		return nil
	})
	if err != nil {
		return kr, err
	}

	if len(batch) > 0 {
		ix.dispatch(ctx, g, kind, batch, mu, report)
	}
	return kr, nil
}

// dispatch hands one batch to the worker group. Failures are recorded and
// counted, never returned: the run continues with the next batch.
func (ix *Indexer) dispatch(
	ctx context.Context, g *errgroup.Group, kind string,
	batch []domain.Document, mu *sync.Mutex, report *Report,
) {
	docs := batch
	g.Go(func() error {
		start := time.Now()
		err := ix.idx.BulkUpsert(ctx, docs)
		ix.mon.RecordSync(ctx, kind, domain.OpBatch, err == nil, time.Since(start), len(docs), err)

		mu.Lock()
		kr := report.Kinds[kind]
		if err != nil {
			kr.Failed += len(docs)
			report.Failed += len(docs)
			report.FailedBatches++
		} else {
			kr.Indexed += len(docs)
			report.Indexed += len(docs)
		}
		report.Kinds[kind] = kr
		mu.Unlock()

		if err != nil {
			ix.log.Warn("batch upsert failed, continuing with next batch",
				zap.String("kind", kind),
				zap.Int("documents", len(docs)),
				zap.Error(err),
			)
			return nil
		}
		if ix.progress != nil {
			ix.progress(len(docs))
		}
		return nil
	})
}
