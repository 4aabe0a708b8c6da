package registry

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lumenpress/searchsync/internal/sanitize"
)

type testEntity struct {
	id      string
	title   string
	body    string
	tags    any
	visible bool
	urlErr  error
	panicky bool
}

func testSpec() Spec {
	return Spec{
		Kind: "note",
		NativeID: func(e any) string {
			return e.(*testEntity).id
		},
		Visible: func(e any) bool {
			return e.(*testEntity).visible
		},
		URL: func(e any) (string, error) {
			te := e.(*testEntity)
			if te.panicky {
				panic("broken url builder")
			}
			if te.urlErr != nil {
				return "", te.urlErr
			}
			return "/notes/" + te.id, nil
		},
		Fields: func(e any) (Fields, error) {
			te := e.(*testEntity)
			return Fields{
				Title:     te.title,
				Body:      te.body,
				BodyMode:  sanitize.HTML,
				Tags:      te.tags,
				UpdatedAt: time.Unix(1700000000, 0),
			}, nil
		},
	}
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	reg := New()
	if err := reg.Register(testSpec()); err != nil {
		t.Fatalf("register: %v", err)
	}
	return NewBuilder(reg, sanitize.New(), zap.NewNop())
}

func TestBuild_SanitizedDocument(t *testing.T) {
	b := newTestBuilder(t)

	doc, outcome := b.Build("note", &testEntity{
		id:      "7",
		title:   "Hello <script>x</script>",
		body:    "<p>Body text</p>",
		tags:    "a, b ,b",
		visible: true,
	})
	if outcome != Built {
		t.Fatalf("expected Built, got %v", outcome)
	}
	if doc.ID != "note:7" {
		t.Errorf("expected id note:7, got %q", doc.ID)
	}
	if doc.Title != "Hello" {
		t.Errorf("expected title %q, got %q", "Hello", doc.Title)
	}
	if doc.Body != "Body text" {
		t.Errorf("expected body %q, got %q", "Body text", doc.Body)
	}
	if !reflect.DeepEqual(doc.Tags, []string{"a", "b"}) {
		t.Errorf("expected tags [a b], got %v", doc.Tags)
	}
	if doc.URL != "/notes/7" {
		t.Errorf("expected url /notes/7, got %q", doc.URL)
	}
	if doc.UpdatedAt != 1700000000 {
		t.Errorf("expected updated_at 1700000000, got %d", doc.UpdatedAt)
	}
}

func TestBuild_VisibilityGating(t *testing.T) {
	b := newTestBuilder(t)

	_, outcome := b.Build("note", &testEntity{id: "1", visible: false})
	if outcome != Skipped {
		t.Fatalf("expected Skipped for hidden entity, got %v", outcome)
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	b := newTestBuilder(t)

	_, outcome := b.Build("widget", &testEntity{id: "1", visible: true})
	if outcome != Skipped {
		t.Fatalf("expected Skipped for unknown kind, got %v", outcome)
	}
}

func TestBuild_EmptyNativeID(t *testing.T) {
	b := newTestBuilder(t)

	_, outcome := b.Build("note", &testEntity{id: "", visible: true})
	if outcome != Skipped {
		t.Fatalf("expected Skipped for empty id, got %v", outcome)
	}
}

func TestBuild_URLErrorFallsBack(t *testing.T) {
	b := newTestBuilder(t)

	doc, outcome := b.Build("note", &testEntity{
		id: "9", visible: true, urlErr: fmt.Errorf("no slug"),
	})
	if outcome != Built {
		t.Fatalf("expected Built, got %v", outcome)
	}
	if doc.URL != "/note/9" {
		t.Errorf("expected fallback url /note/9, got %q", doc.URL)
	}
}

func TestBuild_URLPanicFallsBack(t *testing.T) {
	b := newTestBuilder(t)

	doc, outcome := b.Build("note", &testEntity{id: "9", visible: true, panicky: true})
	if outcome != Built {
		t.Fatalf("expected Built, got %v", outcome)
	}
	if doc.URL != "/note/9" {
		t.Errorf("expected fallback url /note/9, got %q", doc.URL)
	}
}

func TestBuild_WrongEntityTypeSkips(t *testing.T) {
	b := newTestBuilder(t)

	// NativeID type-asserts and panics on a foreign type; Build must
	// recover and skip, never crash the caller.
	_, outcome := b.Build("note", "not an entity")
	if outcome != Skipped {
		t.Fatalf("expected Skipped, got %v", outcome)
	}
}

func TestBuild_BodyCapped(t *testing.T) {
	reg := New()
	spec := testSpec()
	spec.MaxContentBytes = 16
	if err := reg.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}
	b := NewBuilder(reg, sanitize.New(), zap.NewNop())

	doc, outcome := b.Build("note", &testEntity{
		id: "1", visible: true, body: strings.Repeat("word ", 100),
	})
	if outcome != Built {
		t.Fatalf("expected Built, got %v", outcome)
	}
	if len(doc.Body) > 16 {
		t.Errorf("body not capped: %d bytes", len(doc.Body))
	}
}

func TestBuild_MetadataStringsSanitized(t *testing.T) {
	reg := New()
	spec := testSpec()
	spec.Fields = func(e any) (Fields, error) {
		return Fields{
			Title: "t",
			Metadata: map[string]any{
				"author":   "Bob <img src=x onerror=alert(1)>",
				"file_url": "javascript:alert(1)",
				"count":    3,
			},
			UpdatedAt: time.Now(),
		}, nil
	}
	if err := reg.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}
	b := NewBuilder(reg, sanitize.New(), zap.NewNop())

	doc, outcome := b.Build("note", &testEntity{id: "1", visible: true})
	if outcome != Built {
		t.Fatalf("expected Built, got %v", outcome)
	}
	if got := doc.Metadata["author"]; got != "Bob" {
		t.Errorf("author not stripped of markup: %q", got)
	}
	if u, ok := doc.Metadata["file_url"]; ok {
		t.Errorf("executable file_url must be dropped, got %q", u)
	}
	if doc.Metadata["count"] != 3 {
		t.Errorf("numeric metadata lost: %v", doc.Metadata)
	}
}

func TestBuild_MetadataURLKeysAllowListed(t *testing.T) {
	reg := New()
	spec := testSpec()
	spec.Fields = func(e any) (Fields, error) {
		return Fields{
			Title: "t",
			Metadata: map[string]any{
				"file_url": "https://cdn.example.com/guide.pdf",
			},
			UpdatedAt: time.Now(),
		}, nil
	}
	if err := reg.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}
	b := NewBuilder(reg, sanitize.New(), zap.NewNop())

	doc, outcome := b.Build("note", &testEntity{id: "1", visible: true})
	if outcome != Built {
		t.Fatalf("expected Built, got %v", outcome)
	}
	if got := doc.Metadata["file_url"]; got != "https://cdn.example.com/guide.pdf" {
		t.Errorf("https file_url must survive validation, got %v", got)
	}
}

func TestBuild_BodyCapPreservesRunes(t *testing.T) {
	reg := New()
	spec := testSpec()
	spec.MaxContentBytes = 7
	if err := reg.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}
	b := NewBuilder(reg, sanitize.New(), zap.NewNop())

	// Two-byte runes; an odd cap lands mid-rune on a raw byte slice.
	doc, outcome := b.Build("note", &testEntity{
		id: "1", visible: true, body: strings.Repeat("é", 20),
	})
	if outcome != Built {
		t.Fatalf("expected Built, got %v", outcome)
	}
	if len(doc.Body) > 7 {
		t.Errorf("body not capped: %d bytes", len(doc.Body))
	}
	if !utf8.ValidString(doc.Body) {
		t.Errorf("body cap split a rune: %q", doc.Body)
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"comma separated with dupes", "a, b ,b", []string{"a", "b"}},
		{"string slice", []string{"a", "b"}, []string{"a", "b"}},
		{"nil", nil, []string{}},
		{"bare token", "a", []string{"a"}},
		{"any slice", []any{"B", "a", 42}, []string{"a", "b"}},
		{"case folded", "Go, GO, go", []string{"go"}},
		{"unsupported type", 13, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in, 20)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTags_Cap(t *testing.T) {
	many := make([]string, 30)
	for i := range many {
		many[i] = fmt.Sprintf("tag%02d", i)
	}
	got := NormalizeTags(many, 20)
	if len(got) != 20 {
		t.Errorf("expected 20 tags, got %d", len(got))
	}
}

func TestRegistry_DuplicateKind(t *testing.T) {
	reg := New()
	if err := reg.Register(testSpec()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register(testSpec()); err == nil {
		t.Fatal("expected error on duplicate kind")
	}
}

func TestBuild_MetadataScalarsOnly(t *testing.T) {
	reg := New()
	spec := testSpec()
	spec.Fields = func(e any) (Fields, error) {
		return Fields{
			Title: "t",
			Metadata: map[string]any{
				"str":    "x",
				"num":    3,
				"flag":   true,
				"nested": map[string]any{"drop": "me"},
				"list":   []string{"drop"},
			},
			UpdatedAt: time.Now(),
		}, nil
	}
	if err := reg.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}
	b := NewBuilder(reg, sanitize.New(), zap.NewNop())

	doc, outcome := b.Build("note", &testEntity{id: "1", visible: true})
	if outcome != Built {
		t.Fatalf("expected Built, got %v", outcome)
	}
	if len(doc.Metadata) != 3 {
		t.Errorf("expected 3 scalar metadata entries, got %v", doc.Metadata)
	}
	if _, ok := doc.Metadata["nested"]; ok {
		t.Error("nested metadata value not dropped")
	}
}
