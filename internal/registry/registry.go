// Package registry maps content entity kinds to the extraction, visibility,
// and URL rules used to build search documents.
package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/sanitize"
)

// Fields is the raw, unsanitized material extracted from one entity.
type Fields struct {
	Title     string
	Body      string
	BodyMode  sanitize.Mode
	Excerpt   string // falls back to Body when empty
	Tags      any    // comma-separated string, []string, []any, or nil
	Category  string
	Metadata  map[string]any
	UpdatedAt time.Time
}

// Spec describes how one entity kind becomes a search document.
type Spec struct {
	Kind     string
	NativeID func(entity any) string
	Fields   func(entity any) (Fields, error)
	Visible  func(entity any) bool
	URL      func(entity any) (string, error)

	// MaxContentBytes caps sanitized body size; 0 means domain.MaxContentBytes.
	MaxContentBytes int
	// MaxTags caps the tag set; 0 means domain.MaxTags.
	MaxTags int
}

func (s Spec) validate() error {
	if s.Kind == "" {
		return fmt.Errorf("spec kind is required")
	}
	if s.NativeID == nil || s.Fields == nil || s.Visible == nil || s.URL == nil {
		return fmt.Errorf("spec %q must define NativeID, Fields, Visible, and URL", s.Kind)
	}
	return nil
}

// Registry holds the kind specs. Populated at process start via Register;
// read-only afterwards, so lookups need no locking.
type Registry struct {
	specs map[string]Spec
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds a kind spec. Registering the same kind twice is an error.
func (r *Registry) Register(spec Spec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	if _, ok := r.specs[spec.Kind]; ok {
		return fmt.Errorf("kind %q already registered", spec.Kind)
	}
	if spec.MaxContentBytes <= 0 {
		spec.MaxContentBytes = domain.MaxContentBytes
	}
	if spec.MaxTags <= 0 {
		spec.MaxTags = domain.MaxTags
	}
	r.specs[spec.Kind] = spec
	return nil
}

// MustRegister registers a spec or panics. For static wiring at startup.
func (r *Registry) MustRegister(spec Spec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Spec returns the spec for a kind.
func (r *Registry) Spec(kind string) (Spec, bool) {
	s, ok := r.specs[kind]
	return s, ok
}

// Kinds returns all registered kind names, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.specs))
	for k := range r.specs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
