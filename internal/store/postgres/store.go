// Package postgres implements the entity enumerator over the relational
// content store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/lumenpress/searchsync/internal/content"
	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/store"
)

// enumBatchSize is the keyset page size for enumeration reads.
const enumBatchSize = 500

// Config holds connection settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store reads and writes content entities in Postgres.
type Store struct {
	db       *sql.DB
	listener store.ChangeListener
}

// NewStore opens a connection pool and verifies it with a ping.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: database dsn is required", domain.ErrConfig)
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// scanPage reads one keyset page for a kind. Returns the scanned entities,
// the last primary key seen, and whether more rows may follow.
type scanPage func(ctx context.Context, db *sql.DB, afterID int64, limit int) ([]any, int64, error)

var kindPages = map[string]scanPage{
	content.KindPost:     scanPosts,
	content.KindPage:     scanPages,
	content.KindEvent:    scanEvents,
	content.KindProject:  scanProjects,
	content.KindProfile:  scanProfiles,
	content.KindResource: scanResources,
	content.KindComment:  scanComments,
}

// EnumerateKind streams every entity of a kind in primary-key-ascending
// order, reading in bounded keyset pages.
func (s *Store) EnumerateKind(ctx context.Context, kind string, fn func(entity any) error) error {
	page, ok := kindPages[kind]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownKind, kind)
	}

	afterID := int64(0)
	for {
		entities, lastID, err := page(ctx, s.db, afterID, enumBatchSize)
		if err != nil {
			return fmt.Errorf("enumerate %s after id %d: %w", kind, afterID, err)
		}
		for _, e := range entities {
			if err := fn(e); err != nil {
				return err
			}
		}
		if len(entities) < enumBatchSize {
			return nil
		}
		afterID = lastID
	}
}

func scanPosts(ctx context.Context, db *sql.DB, afterID int64, limit int) ([]any, int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, slug, title, body, tags, category, published, draft, updated_at
		FROM posts WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []any
	var lastID int64
	for rows.Next() {
		p := &content.Post{}
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &p.Tags,
			&p.Category, &p.Published, &p.Draft, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
		lastID = p.ID
	}
	return out, lastID, rows.Err()
}

func scanPages(ctx context.Context, db *sql.DB, afterID int64, limit int) ([]any, int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, slug, title, body, published, updated_at
		FROM pages WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []any
	var lastID int64
	for rows.Next() {
		p := &content.Page{}
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &p.Published, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
		lastID = p.ID
	}
	return out, lastID, rows.Err()
}

func scanEvents(ctx context.Context, db *sql.DB, afterID int64, limit int) ([]any, int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, slug, title, description, location, tags, published, cancelled, starts_at, updated_at
		FROM events WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []any
	var lastID int64
	for rows.Next() {
		e := &content.Event{}
		if err := rows.Scan(&e.ID, &e.Slug, &e.Title, &e.Description, &e.Location,
			pq.Array(&e.Tags), &e.Published, &e.Cancelled, &e.StartsAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
		lastID = e.ID
	}
	return out, lastID, rows.Err()
}

func scanProjects(ctx context.Context, db *sql.DB, afterID int64, limit int) ([]any, int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, slug, name, summary, description, tags, status, updated_at
		FROM projects WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []any
	var lastID int64
	for rows.Next() {
		p := &content.Project{}
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Summary, &p.Description,
			pq.Array(&p.Tags), &p.Status, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
		lastID = p.ID
	}
	return out, lastID, rows.Err()
}

func scanProfiles(ctx context.Context, db *sql.DB, afterID int64, limit int) ([]any, int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, username, display_name, bio, interests, public, updated_at
		FROM profiles WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []any
	var lastID int64
	for rows.Next() {
		p := &content.Profile{}
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio,
			pq.Array(&p.Interests), &p.Public, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
		lastID = p.ID
	}
	return out, lastID, rows.Err()
}

func scanResources(ctx context.Context, db *sql.DB, afterID int64, limit int) ([]any, int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, description, file_url, tags, category, published, updated_at
		FROM resources WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []any
	var lastID int64
	for rows.Next() {
		r := &content.Resource{}
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.FileURL,
			&r.Tags, &r.Category, &r.Published, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
		lastID = r.ID
	}
	return out, lastID, rows.Err()
}

func scanComments(ctx context.Context, db *sql.DB, afterID int64, limit int) ([]any, int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.id, c.post_id, p.slug, c.author, c.body, c.approved, c.deleted, c.updated_at
		FROM comments c JOIN posts p ON p.id = c.post_id
		WHERE c.id > $1 ORDER BY c.id ASC LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var out []any
	var lastID int64
	for rows.Next() {
		c := &content.Comment{}
		if err := rows.Scan(&c.ID, &c.PostID, &c.PostSlug, &c.Author, &c.Body,
			&c.Approved, &c.Deleted, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
		lastID = c.ID
	}
	return out, lastID, rows.Err()
}
