package posts

import (
	"time"

	"github.com/plumehq/plume-backend/internal/db/entities"
)

// Identity describes the authenticated caller. A zero UserID means an
// anonymous reader.
type Identity struct {
	UserID string
	Role   string
}

// IsAnonymous returns true for unauthenticated callers
func (id Identity) IsAnonymous() bool {
	return id.UserID == ""
}

// IsModerator returns true when the caller holds the moderator role
func (id Identity) IsModerator() bool {
	return id.Role == entities.RoleModerator
}

// Post is the domain view of a stored article
type Post struct {
	ID              string     `json:"id"`
	AuthorID        string     `json:"author_id"`
	AuthorName      string     `json:"author_name,omitempty"`
	Title           string     `json:"title"`
	Hook            *string    `json:"hook,omitempty"`
	Content         string     `json:"content"`
	Status          string     `json:"status"`
	Slug            string     `json:"slug"`
	IsFeatured      bool       `json:"is_featured"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	AdminContext    *string    `json:"admin_context,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RenderedPost pairs a post with its display markup
type RenderedPost struct {
	Post   *Post  `json:"post"`
	Markup string `json:"markup"`
}

// Summary is the listing view of an approved post
type Summary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Hook        *string    `json:"hook,omitempty"`
	Slug        string     `json:"slug"`
	AuthorName  string     `json:"author_name,omitempty"`
	Preview     string     `json:"preview"`
	IsFeatured  bool       `json:"is_featured"`
	Tags        []string   `json:"tags,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// CreateInput carries a new submission
type CreateInput struct {
	Title   string   `json:"title"`
	Hook    *string  `json:"hook,omitempty"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// postFromRecord maps a repository record into the domain view
func postFromRecord(record map[string]interface{}) *Post {
	p := &Post{
		ID:       stringField(record, "id"),
		AuthorID: stringField(record, "author_id"),
		Title:    stringField(record, "title"),
		Content:  stringField(record, "content"),
		Status:   stringField(record, "status"),
		Slug:     stringField(record, "slug"),
	}

	if v, ok := record["is_featured"].(bool); ok {
		p.IsFeatured = v
	}
	p.Hook = optionalString(record, "hook")
	p.RejectionReason = optionalString(record, "rejection_reason")
	p.AdminContext = optionalString(record, "admin_context")
	p.PublishedAt = optionalTime(record, "published_at")
	if v, ok := record["created_at"].(time.Time); ok {
		p.CreatedAt = v
	}
	if v, ok := record["updated_at"].(time.Time); ok {
		p.UpdatedAt = v
	}

	return p
}

func stringField(record map[string]interface{}, key string) string {
	if v, ok := record[key].(string); ok {
		return v
	}
	return ""
}

func optionalString(record map[string]interface{}, key string) *string {
	if v, ok := record[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

func optionalTime(record map[string]interface{}, key string) *time.Time {
	if v, ok := record[key].(time.Time); ok && !v.IsZero() {
		return &v
	}
	return nil
}
