// Package search is the query surface consumed by the web and API layers:
// engine pass-through wrapped in monitoring.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/index"
)

// Pagination defaults.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	DefaultSuggest = 10
	MaxSuggest     = 25
)

// Engine runs queries against the external index.
type Engine interface {
	Search(ctx context.Context, req index.SearchRequest) (index.SearchResponse, error)
}

// Monitor tracks query execution and serves the dashboard snapshot.
type Monitor interface {
	TrackQuery(ctx context.Context, query, userID string, fn func() error) error
	Dashboard(ctx context.Context) (domain.Dashboard, error)
}

// Query is one caller search request.
type Query struct {
	Text     string
	Kind     string
	Category string
	Tag      string
	Sort     string // "" (relevance) or "newest"
	Page     int
	PerPage  int
	UserID   string
}

// PageInfo describes the returned result window.
type PageInfo struct {
	Page      int   `json:"page"`
	PerPage   int   `json:"per_page"`
	TotalHits int64 `json:"total_hits"`
}

// Results is one page of search results with facet counts.
type Results struct {
	Results  []domain.Document         `json:"results"`
	Facets   map[string]map[string]int `json:"facets,omitempty"`
	PageInfo PageInfo                  `json:"page_info"`
}

// Service exposes search, suggest, and the operator dashboard.
type Service struct {
	engine Engine
	mon    Monitor
}

// New creates a search Service.
func New(engine Engine, mon Monitor) *Service {
	return &Service{engine: engine, mon: mon}
}

// Search runs a tracked query. Engine errors are recorded as failed
// samples and then returned to the caller unchanged.
func (s *Service) Search(ctx context.Context, q Query) (Results, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	req := index.SearchRequest{
		Query:  q.Text,
		Filter: buildFilters(q),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
		Facets: []string{"kind", "category", "tags"},
	}
	if q.Sort == "newest" {
		req.Sort = []string{"updated_at:desc"}
	}

	var resp index.SearchResponse
	err := s.mon.TrackQuery(ctx, q.Text, q.UserID, func() error {
		var searchErr error
		resp, searchErr = s.engine.Search(ctx, req)
		return searchErr
	})
	if err != nil {
		return Results{}, fmt.Errorf("search: %w", err)
	}

	return Results{
		Results: resp.Hits,
		Facets:  resp.Facets,
		PageInfo: PageInfo{
			Page:      page,
			PerPage:   perPage,
			TotalHits: resp.TotalHits,
		},
	}, nil
}

// Suggest returns up to limit distinct titles matching the prefix.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSuggest
	}
	if limit > MaxSuggest {
		limit = MaxSuggest
	}

	req := index.SearchRequest{
		Query:                prefix,
		Limit:                limit * 2, // headroom for duplicate titles
		AttributesToRetrieve: []string{"title"},
	}

	var resp index.SearchResponse
	err := s.mon.TrackQuery(ctx, prefix, "", func() error {
		var searchErr error
		resp, searchErr = s.engine.Search(ctx, req)
		return searchErr
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}

	seen := make(map[string]struct{}, len(resp.Hits))
	titles := make([]string, 0, limit)
	for _, hit := range resp.Hits {
		if hit.Title == "" {
			continue
		}
		if _, dup := seen[hit.Title]; dup {
			continue
		}
		seen[hit.Title] = struct{}{}
		titles = append(titles, hit.Title)
		if len(titles) == limit {
			break
		}
	}
	return titles, nil
}

// Dashboard returns the operator status snapshot.
func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	dash, err := s.mon.Dashboard(ctx)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	return dash, nil
}

// buildFilters translates query constraints into engine filter clauses.
func buildFilters(q Query) []string {
	var filters []string
	if q.Kind != "" {
		filters = append(filters, filterClause("kind", q.Kind))
	}
	if q.Category != "" {
		filters = append(filters, filterClause("category", q.Category))
	}
	if q.Tag != "" {
		filters = append(filters, filterClause("tags", strings.ToLower(q.Tag)))
	}
	return filters
}

func filterClause(attr, value string) string {
	// Escape embedded quotes so user input cannot break out of the clause.
	escaped := strings.ReplaceAll(value, `"`, `\"`)
	return fmt.Sprintf(`%s = "%s"`, attr, escaped)
}
