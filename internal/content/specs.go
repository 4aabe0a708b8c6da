package content

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lumenpress/searchsync/internal/registry"
	"github.com/lumenpress/searchsync/internal/sanitize"
)

// DefaultRegistry builds the registry for all seven content kinds.
func DefaultRegistry() *registry.Registry {
	reg := registry.New()
	reg.MustRegister(postSpec())
	reg.MustRegister(pageSpec())
	reg.MustRegister(eventSpec())
	reg.MustRegister(projectSpec())
	reg.MustRegister(profileSpec())
	reg.MustRegister(resourceSpec())
	reg.MustRegister(commentSpec())
	return reg
}

// Kinds returns the seven kind names in registration order.
func Kinds() []string {
	return []string{
		KindPost, KindPage, KindEvent, KindProject,
		KindProfile, KindResource, KindComment,
	}
}

func postSpec() registry.Spec {
	return registry.Spec{
		Kind: KindPost,
		NativeID: func(e any) string {
			p, ok := e.(*Post)
			if !ok {
				return ""
			}
			return strconv.FormatInt(p.ID, 10)
		},
		Visible: func(e any) bool {
			p, ok := e.(*Post)
			return ok && p.Published && !p.Draft
		},
		URL: func(e any) (string, error) {
			p := e.(*Post)
			if p.Slug == "" {
				return "", fmt.Errorf("post %d has no slug", p.ID)
			}
			return "/blog/" + p.Slug, nil
		},
		Fields: func(e any) (registry.Fields, error) {
			p, ok := e.(*Post)
			if !ok {
				return registry.Fields{}, fmt.Errorf("expected *Post, got %T", e)
			}
			return registry.Fields{
				Title:     p.Title,
				Body:      p.Body,
				BodyMode:  sanitize.Markdown,
				Tags:      p.Tags,
				Category:  p.Category,
				Metadata:  map[string]any{"slug": p.Slug},
				UpdatedAt: p.UpdatedAt,
			}, nil
		},
	}
}

func pageSpec() registry.Spec {
	return registry.Spec{
		Kind: KindPage,
		NativeID: func(e any) string {
			p, ok := e.(*Page)
			if !ok {
				return ""
			}
			return strconv.FormatInt(p.ID, 10)
		},
		Visible: func(e any) bool {
			p, ok := e.(*Page)
			return ok && p.Published
		},
		URL: func(e any) (string, error) {
			p := e.(*Page)
			if p.Slug == "" {
				return "", fmt.Errorf("page %d has no slug", p.ID)
			}
			return "/" + p.Slug, nil
		},
		Fields: func(e any) (registry.Fields, error) {
			p, ok := e.(*Page)
			if !ok {
				return registry.Fields{}, fmt.Errorf("expected *Page, got %T", e)
			}
			return registry.Fields{
				Title:     p.Title,
				Body:      p.Body,
				BodyMode:  sanitize.HTML,
				UpdatedAt: p.UpdatedAt,
			}, nil
		},
	}
}

func eventSpec() registry.Spec {
	return registry.Spec{
		Kind: KindEvent,
		NativeID: func(e any) string {
			ev, ok := e.(*Event)
			if !ok {
				return ""
			}
			return strconv.FormatInt(ev.ID, 10)
		},
		Visible: func(e any) bool {
			ev, ok := e.(*Event)
			return ok && ev.Published && !ev.Cancelled
		},
		URL: func(e any) (string, error) {
			ev := e.(*Event)
			if ev.Slug == "" {
				return "", fmt.Errorf("event %d has no slug", ev.ID)
			}
			return "/events/" + ev.Slug, nil
		},
		Fields: func(e any) (registry.Fields, error) {
			ev, ok := e.(*Event)
			if !ok {
				return registry.Fields{}, fmt.Errorf("expected *Event, got %T", e)
			}
			return registry.Fields{
				Title:    ev.Title,
				Body:     ev.Description,
				BodyMode: sanitize.Markdown,
				Tags:     ev.Tags,
				Metadata: map[string]any{
					"location":  ev.Location,
					"starts_at": ev.StartsAt.Unix(),
				},
				UpdatedAt: ev.UpdatedAt,
			}, nil
		},
	}
}

func projectSpec() registry.Spec {
	return registry.Spec{
		Kind: KindProject,
		NativeID: func(e any) string {
			p, ok := e.(*Project)
			if !ok {
				return ""
			}
			return strconv.FormatInt(p.ID, 10)
		},
		Visible: func(e any) bool {
			p, ok := e.(*Project)
			return ok && (p.Status == "active" || p.Status == "archived")
		},
		URL: func(e any) (string, error) {
			p := e.(*Project)
			if p.Slug == "" {
				return "", fmt.Errorf("project %d has no slug", p.ID)
			}
			return "/projects/" + p.Slug, nil
		},
		Fields: func(e any) (registry.Fields, error) {
			p, ok := e.(*Project)
			if !ok {
				return registry.Fields{}, fmt.Errorf("expected *Project, got %T", e)
			}
			return registry.Fields{
				Title:     p.Name,
				Body:      p.Description,
				BodyMode:  sanitize.Markdown,
				Excerpt:   p.Summary,
				Tags:      p.Tags,
				Metadata:  map[string]any{"status": p.Status},
				UpdatedAt: p.UpdatedAt,
			}, nil
		},
	}
}

func profileSpec() registry.Spec {
	return registry.Spec{
		Kind: KindProfile,
		NativeID: func(e any) string {
			p, ok := e.(*Profile)
			if !ok {
				return ""
			}
			return strconv.FormatInt(p.ID, 10)
		},
		Visible: func(e any) bool {
			p, ok := e.(*Profile)
			return ok && p.Public
		},
		URL: func(e any) (string, error) {
			p := e.(*Profile)
			if p.Username == "" {
				return "", fmt.Errorf("profile %d has no username", p.ID)
			}
			return "/people/" + p.Username, nil
		},
		Fields: func(e any) (registry.Fields, error) {
			p, ok := e.(*Profile)
			if !ok {
				return registry.Fields{}, fmt.Errorf("expected *Profile, got %T", e)
			}
			title := p.DisplayName
			if title == "" {
				title = p.Username
			}
			return registry.Fields{
				Title:     title,
				Body:      p.Bio,
				BodyMode:  sanitize.Markdown,
				Tags:      p.Interests,
				Metadata:  map[string]any{"username": p.Username},
				UpdatedAt: p.UpdatedAt,
			}, nil
		},
	}
}

func resourceSpec() registry.Spec {
	return registry.Spec{
		Kind: KindResource,
		NativeID: func(e any) string {
			r, ok := e.(*Resource)
			if !ok {
				return ""
			}
			return strconv.FormatInt(r.ID, 10)
		},
		Visible: func(e any) bool {
			r, ok := e.(*Resource)
			return ok && r.Published
		},
		URL: func(e any) (string, error) {
			r := e.(*Resource)
			return fmt.Sprintf("/resources/%d", r.ID), nil
		},
		Fields: func(e any) (registry.Fields, error) {
			r, ok := e.(*Resource)
			if !ok {
				return registry.Fields{}, fmt.Errorf("expected *Resource, got %T", e)
			}
			md := map[string]any{}
			if r.FileURL != "" {
				md["file_url"] = r.FileURL
			}
			return registry.Fields{
				Title:     r.Title,
				Body:      r.Description,
				BodyMode:  sanitize.HTML,
				Tags:      r.Tags,
				Category:  r.Category,
				Metadata:  md,
				UpdatedAt: r.UpdatedAt,
			}, nil
		},
	}
}

func commentSpec() registry.Spec {
	return registry.Spec{
		Kind: KindComment,
		NativeID: func(e any) string {
			c, ok := e.(*Comment)
			if !ok {
				return ""
			}
			return strconv.FormatInt(c.ID, 10)
		},
		Visible: func(e any) bool {
			c, ok := e.(*Comment)
			return ok && c.Approved && !c.Deleted
		},
		URL: func(e any) (string, error) {
			c := e.(*Comment)
			if c.PostSlug == "" {
				return "", fmt.Errorf("comment %d has no post slug", c.ID)
			}
			return fmt.Sprintf("/blog/%s#comment-%d", c.PostSlug, c.ID), nil
		},
		Fields: func(e any) (registry.Fields, error) {
			c, ok := e.(*Comment)
			if !ok {
				return registry.Fields{}, fmt.Errorf("expected *Comment, got %T", e)
			}
			title := c.Body
			if i := strings.IndexByte(title, '\n'); i > 0 {
				title = title[:i]
			}
			return registry.Fields{
				Title:    title,
				Body:     c.Body,
				BodyMode: sanitize.Markdown,
				Metadata: map[string]any{
					"author":  c.Author,
					"post_id": c.PostID,
				},
				UpdatedAt: c.UpdatedAt,
			}, nil
		},
	}
}
