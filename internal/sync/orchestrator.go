// Package sync keeps the external search engine consistent with the
// relational content store: in-line on the write path via the
// Orchestrator, and in bulk via the Indexer.
package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/registry"
	"github.com/lumenpress/searchsync/internal/store"
)

// Compile-time check: the orchestrator is a storage change listener.
var _ store.ChangeListener = (*Orchestrator)(nil)

// Orchestrator reacts to entity mutations and mirrors them into the
// engine. At-least-once, eventually consistent: a failed sync leaves the
// index stale until the next successful write or an operator reindex.
// Nothing here ever propagates an error back into the triggering mutation.
type Orchestrator struct {
	registry *registry.Registry
	builder  DocumentBuilder
	idx      IndexWriter
	mon      Recorder
	log      *zap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	reg *registry.Registry, builder DocumentBuilder,
	idx IndexWriter, mon Recorder, log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{registry: reg, builder: builder, idx: idx, mon: mon, log: log}
}

// EntitySaved handles a create or update. A Skipped build issues a delete
// so a visible-to-hidden transition removes the stale document; otherwise
// the whole document is upserted.
func (o *Orchestrator) EntitySaved(ctx context.Context, kind string, entity any) {
	doc, outcome := o.builder.Build(kind, entity)
	if outcome == registry.Skipped {
		if id := o.documentID(kind, entity); id != "" {
			o.delete(ctx, kind, id)
		}
		return
	}

	start := time.Now()
	err := o.idx.Upsert(ctx, doc)
	o.mon.RecordSync(ctx, kind, domain.OpIndex, err == nil, time.Since(start), 1, err)
	if err != nil {
		o.log.Warn("index upsert failed, document stale until next write",
			zap.String("kind", kind),
			zap.String("id", doc.ID),
			zap.Error(err),
		)
	}
}

// EntityDeleted handles a delete: the document is removed unconditionally.
func (o *Orchestrator) EntityDeleted(ctx context.Context, kind, nativeID string) {
	o.delete(ctx, kind, domain.DocumentID(kind, nativeID))
}

func (o *Orchestrator) delete(ctx context.Context, kind, id string) {
	start := time.Now()
	err := o.idx.Delete(ctx, id)
	o.mon.RecordSync(ctx, kind, domain.OpDelete, err == nil, time.Since(start), 1, err)
	if err != nil {
		o.log.Warn("index delete failed, document stale until next write",
			zap.String("kind", kind),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

// documentID resolves the composite id for an entity that did not build,
// tolerating extractor panics on malformed instances.
func (o *Orchestrator) documentID(kind string, entity any) (id string) {
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()

	spec, ok := o.registry.Spec(kind)
	if !ok {
		return ""
	}
	nativeID := spec.NativeID(entity)
	if nativeID == "" {
		return ""
	}
	return domain.DocumentID(kind, nativeID)
}
