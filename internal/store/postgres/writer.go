package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/lumenpress/searchsync/internal/content"
	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/store"
)

// WithListener sets the change listener notified synchronously after each
// successful write. Listener failures never reach the caller; see
// store.ChangeListener.
func (s *Store) WithListener(l store.ChangeListener) *Store {
	s.listener = l
	return s
}

// Save upserts one entity and notifies the listener. The notification
// happens after the write commits, so the listener always observes the
// persisted state.
func (s *Store) Save(ctx context.Context, kind string, entity any) error {
	write, ok := kindWriters[kind]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownKind, kind)
	}
	if err := write(ctx, s.db, entity); err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	if s.listener != nil {
		s.listener.EntitySaved(ctx, kind, entity)
	}
	return nil
}

// Delete removes one entity by its native id and notifies the listener.
// Deleting a missing row is a no-op, but the listener still fires so a
// stale search document gets cleaned up either way.
func (s *Store) Delete(ctx context.Context, kind, nativeID string) error {
	del, ok := kindDeleters[kind]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownKind, kind)
	}
	if err := del(ctx, s.db, nativeID); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, nativeID, err)
	}
	if s.listener != nil {
		s.listener.EntityDeleted(ctx, kind, nativeID)
	}
	return nil
}

type writeEntity func(ctx context.Context, db *sql.DB, entity any) error

type deleteEntity func(ctx context.Context, db *sql.DB, nativeID string) error

var kindWriters = map[string]writeEntity{
	content.KindPost: func(ctx context.Context, db *sql.DB, entity any) error {
		p, ok := entity.(*content.Post)
		if !ok {
			return fmt.Errorf("expected *content.Post, got %T", entity)
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO posts (id, slug, title, body, tags, category, published, draft, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				slug = EXCLUDED.slug, title = EXCLUDED.title, body = EXCLUDED.body,
				tags = EXCLUDED.tags, category = EXCLUDED.category,
				published = EXCLUDED.published, draft = EXCLUDED.draft,
				updated_at = EXCLUDED.updated_at`,
			p.ID, p.Slug, p.Title, p.Body, p.Tags, p.Category, p.Published, p.Draft, p.UpdatedAt)
		return err
	},
	content.KindPage: func(ctx context.Context, db *sql.DB, entity any) error {
		p, ok := entity.(*content.Page)
		if !ok {
			return fmt.Errorf("expected *content.Page, got %T", entity)
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO pages (id, slug, title, body, published, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				slug = EXCLUDED.slug, title = EXCLUDED.title, body = EXCLUDED.body,
				published = EXCLUDED.published, updated_at = EXCLUDED.updated_at`,
			p.ID, p.Slug, p.Title, p.Body, p.Published, p.UpdatedAt)
		return err
	},
	content.KindEvent: func(ctx context.Context, db *sql.DB, entity any) error {
		e, ok := entity.(*content.Event)
		if !ok {
			return fmt.Errorf("expected *content.Event, got %T", entity)
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO events (id, slug, title, description, location, tags, published, cancelled, starts_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				slug = EXCLUDED.slug, title = EXCLUDED.title, description = EXCLUDED.description,
				location = EXCLUDED.location, tags = EXCLUDED.tags,
				published = EXCLUDED.published, cancelled = EXCLUDED.cancelled,
				starts_at = EXCLUDED.starts_at, updated_at = EXCLUDED.updated_at`,
			e.ID, e.Slug, e.Title, e.Description, e.Location, pq.Array(e.Tags),
			e.Published, e.Cancelled, e.StartsAt, e.UpdatedAt)
		return err
	},
	content.KindProject: func(ctx context.Context, db *sql.DB, entity any) error {
		p, ok := entity.(*content.Project)
		if !ok {
			return fmt.Errorf("expected *content.Project, got %T", entity)
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO projects (id, slug, name, summary, description, tags, status, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				slug = EXCLUDED.slug, name = EXCLUDED.name, summary = EXCLUDED.summary,
				description = EXCLUDED.description, tags = EXCLUDED.tags,
				status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
			p.ID, p.Slug, p.Name, p.Summary, p.Description, pq.Array(p.Tags), p.Status, p.UpdatedAt)
		return err
	},
	content.KindProfile: func(ctx context.Context, db *sql.DB, entity any) error {
		p, ok := entity.(*content.Profile)
		if !ok {
			return fmt.Errorf("expected *content.Profile, got %T", entity)
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO profiles (id, username, display_name, bio, interests, public, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				username = EXCLUDED.username, display_name = EXCLUDED.display_name,
				bio = EXCLUDED.bio, interests = EXCLUDED.interests,
				public = EXCLUDED.public, updated_at = EXCLUDED.updated_at`,
			p.ID, p.Username, p.DisplayName, p.Bio, pq.Array(p.Interests), p.Public, p.UpdatedAt)
		return err
	},
	content.KindResource: func(ctx context.Context, db *sql.DB, entity any) error {
		r, ok := entity.(*content.Resource)
		if !ok {
			return fmt.Errorf("expected *content.Resource, got %T", entity)
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO resources (id, title, description, file_url, tags, category, published, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title, description = EXCLUDED.description,
				file_url = EXCLUDED.file_url, tags = EXCLUDED.tags,
				category = EXCLUDED.category, published = EXCLUDED.published,
				updated_at = EXCLUDED.updated_at`,
			r.ID, r.Title, r.Description, r.FileURL, r.Tags, r.Category, r.Published, r.UpdatedAt)
		return err
	},
	content.KindComment: func(ctx context.Context, db *sql.DB, entity any) error {
		c, ok := entity.(*content.Comment)
		if !ok {
			return fmt.Errorf("expected *content.Comment, got %T", entity)
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO comments (id, post_id, author, body, approved, deleted, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				post_id = EXCLUDED.post_id, author = EXCLUDED.author, body = EXCLUDED.body,
				approved = EXCLUDED.approved, deleted = EXCLUDED.deleted,
				updated_at = EXCLUDED.updated_at`,
			c.ID, c.PostID, c.Author, c.Body, c.Approved, c.Deleted, c.UpdatedAt)
		return err
	},
}

var kindDeleters = map[string]deleteEntity{
	content.KindPost:     deleteByID("posts"),
	content.KindPage:     deleteByID("pages"),
	content.KindEvent:    deleteByID("events"),
	content.KindProject:  deleteByID("projects"),
	content.KindResource: deleteByID("resources"),
	content.KindComment:  deleteByID("comments"),
	content.KindProfile:  deleteByID("profiles"),
}

func deleteByID(table string) deleteEntity {
	return func(ctx context.Context, db *sql.DB, nativeID string) error {
		id, err := strconv.ParseInt(nativeID, 10, 64)
		if err != nil {
			return fmt.Errorf("native id %q is not numeric: %w", nativeID, err)
		}
		_, err = db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
		return err
	}
}
