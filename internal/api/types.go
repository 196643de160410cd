package api

import (
	"time"

	"github.com/plumehq/plume-backend/internal/posts"
)

// ErrorResponse is the uniform error payload
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreatePostRequest is the submission payload
type CreatePostRequest struct {
	Title   string   `json:"title"`
	Hook    *string  `json:"hook,omitempty"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// UpdateStatusRequest moves a post through the editorial states
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// UpdateContextRequest attaches an internal note to a post
type UpdateContextRequest struct {
	Context string `json:"context"`
}

// PostDTO is the post representation outside the moderation surface.
// It never carries the moderator-only annotation; the rejection reason
// is included because the only non-moderator readers of a rejected
// post are its author.
type PostDTO struct {
	ID              string     `json:"id"`
	AuthorID        string     `json:"author_id"`
	AuthorName      string     `json:"author_name,omitempty"`
	Title           string     `json:"title"`
	Hook            *string    `json:"hook,omitempty"`
	Status          string     `json:"status"`
	Slug            string     `json:"slug"`
	IsFeatured      bool       `json:"is_featured"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// AdminPostDTO adds the moderator-only annotation for /admin responses
type AdminPostDTO struct {
	PostDTO
	AdminContext *string `json:"admin_context,omitempty"`
}

// ArticleDTO is a post plus its rendered markup
type ArticleDTO struct {
	PostDTO
	Markup string `json:"markup"`
}

// SummaryDTO is the public feed entry
type SummaryDTO struct {
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

func postDTO(p *posts.Post) PostDTO {
	return PostDTO{
		ID:              p.ID,
		AuthorID:        p.AuthorID,
		AuthorName:      p.AuthorName,
		Title:           p.Title,
		Hook:            p.Hook,
		Status:          p.Status,
		Slug:            p.Slug,
		IsFeatured:      p.IsFeatured,
		PublishedAt:     p.PublishedAt,
		RejectionReason: p.RejectionReason,
		Tags:            p.Tags,
		CreatedAt:       p.CreatedAt,
	}
}

func adminPostDTO(p *posts.Post) AdminPostDTO {
	return AdminPostDTO{
		PostDTO:      postDTO(p),
		AdminContext: p.AdminContext,
	}
}

func summaryDTO(s *posts.Summary) SummaryDTO {
	return SummaryDTO{
		ID:          s.ID,
		Title:       s.Title,
		Hook:        s.Hook,
		Slug:        s.Slug,
		AuthorName:  s.AuthorName,
		Preview:     s.Preview,
		IsFeatured:  s.IsFeatured,
		Tags:        s.Tags,
		PublishedAt: s.PublishedAt,
	}
}
