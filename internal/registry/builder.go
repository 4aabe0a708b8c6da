package registry

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/sanitize"
)

// Outcome is the result of building a document from an entity.
type Outcome int

// Build outcomes.
const (
	// Built means the document is ready to index.
	Built Outcome = iota
	// Skipped means the entity must not be indexed: not visible, unknown
	// kind, or malformed. Skips are logged, never escalated.
	Skipped
)

// defaultExcerptBytes caps the excerpt field.
const defaultExcerptBytes = 300

// Builder turns entity instances into normalized search documents.
type Builder struct {
	registry  *Registry
	sanitizer *sanitize.Sanitizer
	log       *zap.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(reg *Registry, san *sanitize.Sanitizer, log *zap.Logger) *Builder {
	return &Builder{registry: reg, sanitizer: san, log: log}
}

// Build produces the search document for an entity. A Skipped outcome is
// final: the caller should remove any previously indexed document for the
// same id. Build never panics and never returns an error; a malformed
// entity must not abort a batch or the save that triggered it.
func (b *Builder) Build(kind string, entity any) (doc domain.Document, outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("document build panicked",
				zap.String("kind", kind),
				zap.Any("panic", r),
			)
			doc, outcome = domain.Document{}, Skipped
		}
	}()

	spec, ok := b.registry.Spec(kind)
	if !ok {
		b.log.Warn("skipping entity of unregistered kind", zap.String("kind", kind))
		return domain.Document{}, Skipped
	}

	nativeID := spec.NativeID(entity)
	if nativeID == "" {
		b.log.Warn("skipping entity without native id", zap.String("kind", kind))
		return domain.Document{}, Skipped
	}

	if !spec.Visible(entity) {
		return domain.Document{}, Skipped
	}

	fields, err := spec.Fields(entity)
	if err != nil {
		b.log.Warn("skipping entity with bad field data",
			zap.String("kind", kind),
			zap.String("native_id", nativeID),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrBuild, err)),
		)
		return domain.Document{}, Skipped
	}

	mode := fields.BodyMode
	if mode == "" {
		mode = sanitize.HTML
	}
	excerptSrc := fields.Excerpt
	if excerptSrc == "" {
		excerptSrc = fields.Body
	}

	body := sanitize.Truncate(b.sanitizer.Text(fields.Body, mode), spec.MaxContentBytes)

	doc = domain.Document{
		ID:        domain.DocumentID(kind, nativeID),
		Kind:      kind,
		NativeID:  nativeID,
		Title:     b.sanitizer.Text(fields.Title, sanitize.HTML),
		Excerpt:   b.sanitizer.Excerpt(excerptSrc, mode, defaultExcerptBytes),
		Body:      body,
		Tags:      NormalizeTags(fields.Tags, spec.MaxTags),
		URL:       b.buildURL(spec, entity, nativeID),
		Category:  b.sanitizer.Text(fields.Category, sanitize.HTML),
		Metadata:  b.scalarMetadata(fields.Metadata),
		UpdatedAt: fields.UpdatedAt.Unix(),
	}
	return doc, Built
}

// buildURL calls the kind's URL builder, substituting the fallback URL on
// error or panic so one bad link never fails the whole build.
func (b *Builder) buildURL(spec Spec, entity any, nativeID string) (out string) {
	fallback := fmt.Sprintf("/%s/%s", spec.Kind, nativeID)
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("url builder panicked, using fallback",
				zap.String("kind", spec.Kind),
				zap.String("native_id", nativeID),
				zap.Any("panic", r),
			)
			out = fallback
		}
	}()

	u, err := spec.URL(entity)
	if err != nil || u == "" {
		if err != nil {
			b.log.Warn("url builder failed, using fallback",
				zap.String("kind", spec.Kind),
				zap.String("native_id", nativeID),
				zap.Error(err),
			)
		}
		return fallback
	}
	return u
}

// NormalizeTags accepts the four shapes a tags field arrives in (comma
// separated string, string slice, nil, single bare token) and returns a
// deduplicated, lowercased, sorted slice capped at max entries.
func NormalizeTags(raw any, max int) []string {
	var parts []string
	switch v := raw.(type) {
	case nil:
		return []string{}
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	default:
		return []string{}
	}

	seen := make(map[string]struct{}, len(parts))
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tag := strings.ToLower(strings.TrimSpace(p))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	if max > 0 && len(tags) > max {
		tags = tags[:max]
	}
	return tags
}

// scalarMetadata keeps only flat scalar values so the engine payload stays
// stable regardless of what collaborators stuff into metadata. String
// values are untrusted like every other field: markup is stripped, and
// keys naming a URL are checked against the scheme allow-list, dropped on
// rejection.
func (b *Builder) scalarMetadata(in map[string]any) domain.Metadata {
	if len(in) == 0 {
		return nil
	}
	out := make(domain.Metadata, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			if isURLKey(k) {
				if u, ok := b.sanitizer.URL(val); ok {
					out[k] = u
				}
				continue
			}
			out[k] = b.sanitizer.Text(val, sanitize.HTML)
		case bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			out[k] = val
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isURLKey(k string) bool {
	k = strings.ToLower(k)
	return k == "url" || strings.HasSuffix(k, "_url") || strings.HasSuffix(k, "_uri")
}
