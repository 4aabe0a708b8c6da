package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"go.uber.org/zap"

	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/registry"
)

func notes(n int, hidden ...int64) []any {
	hiddenSet := make(map[int64]bool, len(hidden))
	for _, id := range hidden {
		hiddenSet[id] = true
	}
	out := make([]any, n)
	for i := range out {
		id := int64(i + 1)
		out[i] = &note{
			id:      id,
			title:   fmt.Sprintf("note %d", id),
			visible: !hiddenSet[id],
		}
	}
	return out
}

func newTestIndexer(t *testing.T, enum *mockEnum, idx *mockIndex, rec *mockRecorder) *Indexer {
	t.Helper()
	reg := noteRegistry(t)
	return NewIndexer(enum, noteBuilder(t, reg), reg, idx, rec, zap.NewNop())
}

func docIDs(docs []domain.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	sort.Strings(ids)
	return ids
}

func TestReindex_BatchesWholeCorpus(t *testing.T) {
	enum := &mockEnum{entities: map[string][]any{"note": notes(250)}}
	idx := &mockIndex{}
	rec := &mockRecorder{}
	ix := newTestIndexer(t, enum, idx, rec).WithBatchSize(100).WithWorkers(1)

	report, err := ix.Reindex(context.Background(), nil)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if report.Processed != 250 || report.Indexed != 250 || report.Skipped != 0 || report.Failed != 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if len(idx.bulks) != 3 {
		t.Errorf("expected 3 bulk calls (100+100+50), got %d", len(idx.bulks))
	}
	if got := len(rec.byOperation(domain.OpBatch)); got != 3 {
		t.Errorf("expected 3 batch events, got %d", got)
	}
	if report.Partial() {
		t.Error("clean run must not be partial")
	}
}

func TestReindex_SkipsHiddenEntities(t *testing.T) {
	enum := &mockEnum{entities: map[string][]any{"note": notes(10, 3, 7)}}
	idx := &mockIndex{}
	ix := newTestIndexer(t, enum, idx, &mockRecorder{}).WithWorkers(1)

	report, err := ix.Reindex(context.Background(), []string{"note"})
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if report.Processed != 10 || report.Indexed != 8 || report.Skipped != 2 {
		t.Errorf("unexpected report %+v", report)
	}
	for _, id := range docIDs(idx.allDocs()) {
		if id == "note:3" || id == "note:7" {
			t.Errorf("hidden entity %s was indexed", id)
		}
	}
}

func TestReindex_OneBadEntityDoesNotFailRun(t *testing.T) {
	reg := noteRegistry(t)
	// A second kind whose URL builder panics on one specific entity.
	err := reg.Register(registry.Spec{
		Kind:     "draft",
		NativeID: func(e any) string { return e.(*note).title },
		Visible:  func(e any) bool { return true },
		URL: func(e any) (string, error) {
			if e.(*note).id == 2 {
				panic("corrupt slug")
			}
			return "/drafts/" + e.(*note).title, nil
		},
		Fields: func(e any) (registry.Fields, error) {
			n := e.(*note)
			if n.id == 5 {
				return registry.Fields{}, errors.New("unreadable row")
			}
			return registry.Fields{Title: n.title}, nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	entities := make([]any, 6)
	for i := range entities {
		entities[i] = &note{id: int64(i + 1), title: fmt.Sprintf("d%d", i+1), visible: true}
	}
	enum := &mockEnum{entities: map[string][]any{"draft": entities}}
	idx := &mockIndex{}
	ix := NewIndexer(enum, noteBuilder(t, reg), reg, idx, &mockRecorder{}, zap.NewNop()).WithWorkers(1)

	report, err := ix.Reindex(context.Background(), []string{"draft"})
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	// id=5 fails field extraction and is skipped; id=2 only loses its URL
	// to the fallback and still indexes.
	if report.Indexed != 5 || report.Skipped != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	for _, d := range idx.allDocs() {
		if d.NativeID == "d2" && d.URL != "/draft/d2" {
			t.Errorf("expected fallback url for d2, got %q", d.URL)
		}
	}
}

func TestReindex_FailedBatchContinues(t *testing.T) {
	enum := &mockEnum{entities: map[string][]any{"note": notes(250)}}
	idx := &mockIndex{bulkErr: errors.New("engine overloaded"), bulkErrOnce: true}
	rec := &mockRecorder{}
	ix := newTestIndexer(t, enum, idx, rec).WithBatchSize(100).WithWorkers(1)

	report, err := ix.Reindex(context.Background(), nil)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if !report.Partial() {
		t.Fatal("expected partial report")
	}
	if report.FailedBatches != 1 || report.Failed != 100 || report.Indexed != 150 {
		t.Errorf("unexpected report %+v", report)
	}

	var failures int
	for _, e := range rec.byOperation(domain.OpBatch) {
		if !e.Success {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 failed batch event, got %d", failures)
	}
}

func TestReindex_IdempotentRebuild(t *testing.T) {
	enum := &mockEnum{entities: map[string][]any{"note": notes(42, 10)}}

	idxA := &mockIndex{}
	ixA := newTestIndexer(t, enum, idxA, &mockRecorder{}).WithWorkers(1)
	if _, err := ixA.Reindex(context.Background(), nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	idxB := &mockIndex{}
	ixB := newTestIndexer(t, enum, idxB, &mockRecorder{}).WithWorkers(1)
	if _, err := ixB.Reindex(context.Background(), nil); err != nil {
		t.Fatalf("second run: %v", err)
	}

	a, b := docIDs(idxA.allDocs()), docIDs(idxB.allDocs())
	if len(a) != 41 {
		t.Fatalf("expected 41 documents, got %d", len(a))
	}
	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Errorf("rebuild not idempotent:\n%v\n%v", a, b)
	}
}

func TestReindex_UnknownKind(t *testing.T) {
	ix := newTestIndexer(t, &mockEnum{}, &mockIndex{}, &mockRecorder{})
	if _, err := ix.Reindex(context.Background(), []string{"widget"}); !errors.Is(err, domain.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestReindex_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enum := &mockEnum{entities: map[string][]any{"note": notes(10)}}
	ix := newTestIndexer(t, enum, &mockIndex{}, &mockRecorder{})
	if _, err := ix.Reindex(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReindex_ProgressCallback(t *testing.T) {
	enum := &mockEnum{entities: map[string][]any{"note": notes(25)}}
	var total int
	ix := newTestIndexer(t, enum, &mockIndex{}, &mockRecorder{}).
		WithBatchSize(10).WithWorkers(1).
		WithProgress(func(n int) { total += n })

	if _, err := ix.Reindex(context.Background(), nil); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if total != 25 {
		t.Errorf("progress total = %d, want 25", total)
	}
}

func TestConfigureSchema(t *testing.T) {
	idx := &mockIndex{}
	ix := newTestIndexer(t, &mockEnum{}, idx, &mockRecorder{})

	if err := ix.ConfigureSchema(context.Background()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if len(idx.configured) != 1 {
		t.Fatalf("expected 1 configure call, got %d", len(idx.configured))
	}
	if len(idx.configured[0].SearchableAttributes) == 0 {
		t.Error("settings should declare searchable attributes")
	}
}
