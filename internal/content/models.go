// Package content defines the seven entity kinds synchronized to the
// search engine and their registry specs.
package content

import "time"

// Kind names.
const (
	KindPost     = "post"
	KindPage     = "page"
	KindEvent    = "event"
	KindProject  = "project"
	KindProfile  = "profile"
	KindResource = "resource"
	KindComment  = "comment"
)

// Post is a blog post. Body is markdown.
type Post struct {
	ID        int64
	Slug      string
	Title     string
	Body      string
	Tags      string // comma-separated
	Category  string
	Published bool
	Draft     bool
	UpdatedAt time.Time
}

// Page is a static CMS page. Body is HTML produced by the page editor.
type Page struct {
	ID        int64
	Slug      string
	Title     string
	Body      string
	Published bool
	UpdatedAt time.Time
}

// Event is a calendar event. Description is markdown.
type Event struct {
	ID          int64
	Slug        string
	Title       string
	Description string
	Location    string
	Tags        []string
	Published   bool
	Cancelled   bool
	StartsAt    time.Time
	UpdatedAt   time.Time
}

// Project is a portfolio project. Description is markdown.
type Project struct {
	ID          int64
	Slug        string
	Name        string
	Summary     string
	Description string
	Tags        []string
	Status      string // active, archived, hidden
	UpdatedAt   time.Time
}

// Profile is a public member profile. Bio is markdown.
type Profile struct {
	ID          int64
	Username    string
	DisplayName string
	Bio         string
	Interests   []string
	Public      bool
	UpdatedAt   time.Time
}

// Resource is a downloadable resource entry.
type Resource struct {
	ID          int64
	Title       string
	Description string
	FileURL     string
	Tags        string // comma-separated
	Category    string
	Published   bool
	UpdatedAt   time.Time
}

// Comment is a moderated comment on a post.
type Comment struct {
	ID        int64
	PostID    int64
	PostSlug  string
	Author    string
	Body      string
	Approved  bool
	Deleted   bool
	UpdatedAt time.Time
}
