package domain

import "fmt"

// MaxContentBytes is the default cap on sanitized body size.
const MaxContentBytes = 10 * 1024 // 10KB

// MaxTags is the default cap on the number of tags per document.
const MaxTags = 20

// Metadata is a flat map of scalar values (string, number, bool) attached
// to a document. Non-scalar values are dropped at build time to keep the
// engine payload stable.
type Metadata map[string]any

// Document is the normalized, sanitized record stored in the external
// search engine for one entity. An upsert always replaces the whole
// document; it is never partially written.
type Document struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	NativeID  string   `json:"native_id"`
	Title     string   `json:"title"`
	Excerpt   string   `json:"excerpt"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags"`
	URL       string   `json:"url"`
	Category  string   `json:"category,omitempty"`
	Metadata  Metadata `json:"metadata,omitempty"`
	UpdatedAt int64    `json:"updated_at"`
}

// DocumentID builds the composite engine identifier for an entity.
// Stable across rebuilds: the same entity always maps to the same id.
func DocumentID(kind, nativeID string) string {
	return fmt.Sprintf("%s:%s", kind, nativeID)
}
