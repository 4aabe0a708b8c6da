package index

import "github.com/lumenpress/searchsync/internal/domain"

// Settings declares the engine-side schema for the content index.
// Pushing the same settings twice is a no-op on the engine, so Configure
// is idempotent.
type Settings struct {
	SearchableAttributes []string            `json:"searchableAttributes,omitempty"`
	FilterableAttributes []string            `json:"filterableAttributes,omitempty"`
	SortableAttributes   []string            `json:"sortableAttributes,omitempty"`
	RankingRules         []string            `json:"rankingRules,omitempty"`
	StopWords            []string            `json:"stopWords,omitempty"`
	Synonyms             map[string][]string `json:"synonyms,omitempty"`
	TypoTolerance        *TypoTolerance      `json:"typoTolerance,omitempty"`
}

// TypoTolerance configures engine typo handling.
type TypoTolerance struct {
	Enabled             bool         `json:"enabled"`
	MinWordSizeForTypos *MinWordSize `json:"minWordSizeForTypos,omitempty"`
}

// MinWordSize sets word-length thresholds for one and two typos.
type MinWordSize struct {
	OneTypo  int `json:"oneTypo,omitempty"`
	TwoTypos int `json:"twoTypos,omitempty"`
}

// DefaultSettings is the schema for the shared content index.
func DefaultSettings() Settings {
	return Settings{
		SearchableAttributes: []string{"title", "excerpt", "body", "tags", "category"},
		FilterableAttributes: []string{"kind", "category", "tags", "updated_at"},
		SortableAttributes:   []string{"updated_at"},
		RankingRules: []string{
			"words", "typo", "proximity", "attribute", "sort", "exactness",
		},
		TypoTolerance: &TypoTolerance{
			Enabled:             true,
			MinWordSizeForTypos: &MinWordSize{OneTypo: 5, TwoTypos: 9},
		},
	}
}

// Stats is the engine's view of the index.
type Stats struct {
	DocumentCount int64 `json:"numberOfDocuments"`
	IsIndexing    bool  `json:"isIndexing"`
}

// SearchRequest is one engine query.
type SearchRequest struct {
	Query  string   `json:"q"`
	Filter []string `json:"filter,omitempty"`
	Sort   []string `json:"sort,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
	Facets []string `json:"facets,omitempty"`
	// AttributesToRetrieve trims the hit payload (suggest uses titles only).
	AttributesToRetrieve []string `json:"attributesToRetrieve,omitempty"`
}

// SearchResponse is the engine's answer.
type SearchResponse struct {
	Hits         []domain.Document         `json:"hits"`
	TotalHits    int64                     `json:"estimatedTotalHits"`
	Facets       map[string]map[string]int `json:"facetDistribution,omitempty"`
	ProcessingMS int64                     `json:"processingTimeMs"`
}
