package sync

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/lumenpress/searchsync/internal/domain"
)

func newTestOrchestrator(t *testing.T, idx *mockIndex, rec *mockRecorder) *Orchestrator {
	t.Helper()
	reg := noteRegistry(t)
	return NewOrchestrator(reg, noteBuilder(t, reg), idx, rec, zap.NewNop())
}

func TestEntitySaved_VisibleUpserts(t *testing.T) {
	idx := &mockIndex{}
	rec := &mockRecorder{}
	o := newTestOrchestrator(t, idx, rec)

	o.EntitySaved(context.Background(), "note", &note{
		id: 1, title: "Hello <script>x</script>", visible: true,
	})

	if len(idx.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(idx.upserts))
	}
	doc := idx.upserts[0]
	if doc.ID != "note:1" {
		t.Errorf("expected id note:1, got %q", doc.ID)
	}
	if doc.Title != "Hello" {
		t.Errorf("expected sanitized title, got %q", doc.Title)
	}

	events := rec.byOperation(domain.OpIndex)
	if len(events) != 1 || !events[0].Success {
		t.Fatalf("expected one successful index event, got %+v", events)
	}
}

func TestEntitySaved_HiddenDeletesStaleDocument(t *testing.T) {
	idx := &mockIndex{}
	rec := &mockRecorder{}
	o := newTestOrchestrator(t, idx, rec)

	o.EntitySaved(context.Background(), "note", &note{id: 2, visible: false})

	if len(idx.upserts) != 0 {
		t.Errorf("hidden entity must not be upserted: %+v", idx.upserts)
	}
	if len(idx.deletes) != 1 || idx.deletes[0] != "note:2" {
		t.Fatalf("expected delete of note:2, got %v", idx.deletes)
	}
	events := rec.byOperation(domain.OpDelete)
	if len(events) != 1 || !events[0].Success {
		t.Fatalf("expected one successful delete event, got %+v", events)
	}
}

func TestEntitySaved_EngineFailureDoesNotPropagate(t *testing.T) {
	idx := &mockIndex{upsertErr: errors.New("engine down")}
	rec := &mockRecorder{}
	o := newTestOrchestrator(t, idx, rec)

	// Must not panic and must record a failed event.
	o.EntitySaved(context.Background(), "note", &note{id: 3, visible: true})

	events := rec.byOperation(domain.OpIndex)
	if len(events) != 1 || events[0].Success {
		t.Fatalf("expected one failed index event, got %+v", events)
	}
	if events[0].Error == "" {
		t.Error("failed event should carry the cause")
	}
}

func TestEntitySaved_UnknownKindIsNoop(t *testing.T) {
	idx := &mockIndex{}
	rec := &mockRecorder{}
	o := newTestOrchestrator(t, idx, rec)

	o.EntitySaved(context.Background(), "widget", &note{id: 4, visible: true})

	if len(idx.upserts)+len(idx.deletes) != 0 {
		t.Error("unknown kind must not reach the engine")
	}
}

func TestEntityDeleted(t *testing.T) {
	idx := &mockIndex{}
	rec := &mockRecorder{}
	o := newTestOrchestrator(t, idx, rec)

	o.EntityDeleted(context.Background(), "note", "9")

	if len(idx.deletes) != 1 || idx.deletes[0] != "note:9" {
		t.Fatalf("expected delete of note:9, got %v", idx.deletes)
	}
	events := rec.byOperation(domain.OpDelete)
	if len(events) != 1 || !events[0].Success {
		t.Fatalf("expected one successful delete event, got %+v", events)
	}
}

func TestEntityDeleted_FailureRecorded(t *testing.T) {
	idx := &mockIndex{deleteErr: errors.New("timeout")}
	rec := &mockRecorder{}
	o := newTestOrchestrator(t, idx, rec)

	o.EntityDeleted(context.Background(), "note", "9")

	events := rec.byOperation(domain.OpDelete)
	if len(events) != 1 || events[0].Success {
		t.Fatalf("expected one failed delete event, got %+v", events)
	}
}
