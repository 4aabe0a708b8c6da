package sync

import (
	"context"
	"time"

	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/index"
	"github.com/lumenpress/searchsync/internal/registry"
)

// IndexWriter is the engine surface the orchestrator needs.
type IndexWriter interface {
	Upsert(ctx context.Context, doc domain.Document) error
	Delete(ctx context.Context, id string) error
}

// BulkWriter is the engine surface the batch indexer needs.
type BulkWriter interface {
	BulkUpsert(ctx context.Context, docs []domain.Document) error
	Configure(ctx context.Context, settings index.Settings) error
}

// Recorder records sync attempts for observability.
type Recorder interface {
	RecordSync(ctx context.Context, kind, operation string, success bool,
		duration time.Duration, count int, cause error)
}

// DocumentBuilder turns entities into documents.
type DocumentBuilder interface {
	Build(kind string, entity any) (domain.Document, registry.Outcome)
}
