package sync

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/index"
	"github.com/lumenpress/searchsync/internal/registry"
	"github.com/lumenpress/searchsync/internal/sanitize"
)

// note is the test entity for sync tests.
type note struct {
	id      int64
	title   string
	body    string
	visible bool
}

func noteRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	err := reg.Register(registry.Spec{
		Kind: "note",
		NativeID: func(e any) string {
			return strconv.FormatInt(e.(*note).id, 10)
		},
		Visible: func(e any) bool {
			return e.(*note).visible
		},
		URL: func(e any) (string, error) {
			return "/notes/" + strconv.FormatInt(e.(*note).id, 10), nil
		},
		Fields: func(e any) (registry.Fields, error) {
			n := e.(*note)
			return registry.Fields{
				Title:     n.title,
				Body:      n.body,
				BodyMode:  sanitize.HTML,
				UpdatedAt: time.Unix(1700000000, 0),
			}, nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg
}

func noteBuilder(t *testing.T, reg *registry.Registry) *registry.Builder {
	t.Helper()
	return registry.NewBuilder(reg, sanitize.New(), zap.NewNop())
}

// mockIndex records engine calls; error fields force failures.
type mockIndex struct {
	mu sync.Mutex

	upserts     []domain.Document
	bulks       [][]domain.Document
	deletes     []string
	configured  []index.Settings
	upsertErr   error
	bulkErr     error
	bulkErrOnce bool
	deleteErr   error
}

func (m *mockIndex) Upsert(_ context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, doc)
	return nil
}

func (m *mockIndex) BulkUpsert(_ context.Context, docs []domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bulkErr != nil {
		err := m.bulkErr
		if m.bulkErrOnce {
			m.bulkErr = nil
		}
		return err
	}
	m.bulks = append(m.bulks, docs)
	return nil
}

func (m *mockIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletes = append(m.deletes, id)
	return nil
}

func (m *mockIndex) Configure(_ context.Context, settings index.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configured = append(m.configured, settings)
	return nil
}

func (m *mockIndex) allDocs() []domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Document
	out = append(out, m.upserts...)
	for _, b := range m.bulks {
		out = append(out, b...)
	}
	return out
}

// mockRecorder captures sync events.
type mockRecorder struct {
	mu     sync.Mutex
	events []domain.SyncEvent
}

func (m *mockRecorder) RecordSync(
	_ context.Context, kind, operation string, success bool,
	duration time.Duration, count int, cause error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := domain.SyncEvent{
		Kind:          kind,
		Operation:     operation,
		Success:       success,
		DurationMS:    duration.Milliseconds(),
		DocumentCount: count,
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	m.events = append(m.events, e)
}

func (m *mockRecorder) byOperation(op string) []domain.SyncEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SyncEvent
	for _, e := range m.events {
		if e.Operation == op {
			out = append(out, e)
		}
	}
	return out
}

// mockEnum enumerates in-memory entities per kind, in insertion order.
type mockEnum struct {
	entities map[string][]any
}

func (m *mockEnum) EnumerateKind(ctx context.Context, kind string, fn func(entity any) error) error {
	for _, e := range m.entities[kind] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}
