package entities

import (
	"time"

	"github.com/plumehq/plume-backend/internal/db/interfaces"
)

// Editorial statuses a post moves through.
const (
	StatusPendingReview = "pending_review"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
)

// Post represents a submitted article
type Post struct {
	ID              string     `json:"id" db:"id"`
	AuthorID        string     `json:"author_id" db:"author_id"`
	Title           string     `json:"title" db:"title"`
	Hook            *string    `json:"hook,omitempty" db:"hook"`
	Content         string     `json:"content" db:"content"`
	Status          string     `json:"status" db:"status"`
	Slug            string     `json:"slug" db:"slug"`
	IsFeatured      bool       `json:"is_featured" db:"is_featured"`
	PublishedAt     *time.Time `json:"published_at,omitempty" db:"published_at"`
	RejectionReason *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	AdminContext    *string    `json:"admin_context,omitempty" db:"admin_context"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// PostSchema defines the database schema for posts. The slug carries a
// unique index so a concurrent duplicate insert fails at this layer.
var PostSchema = &interfaces.Schema{
	TableName: "posts",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       "string",
			PrimaryKey: true,
		},
		"author_id": {
			Type: "string",
			ForeignKey: &interfaces.ForeignKey{
				Table:    "users",
				Column:   "id",
				OnDelete: "CASCADE",
			},
		},
		"title": {
			Type: "string",
		},
		"hook": {
			Type:     "string",
			Nullable: true,
		},
		"content": {
			Type: "string",
		},
		"status": {
			Type:         "string",
			DefaultValue: StatusPendingReview,
		},
		"slug": {
			Type:   "string",
			Unique: true,
		},
		"is_featured": {
			Type:         "bool",
			DefaultValue: false,
		},
		"published_at": {
			Type:     "time",
			Nullable: true,
		},
		"rejection_reason": {
			Type:     "string",
			Nullable: true,
		},
		"admin_context": {
			Type:     "string",
			Nullable: true,
		},
		"created_at": {
			Type: "time",
		},
		"updated_at": {
			Type: "time",
		},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "idx_posts_slug",
			Columns: []string{"slug"},
			Unique:  true,
		},
		{
			Name:    "idx_posts_author",
			Columns: []string{"author_id"},
		},
		{
			Name:    "idx_posts_status",
			Columns: []string{"status"},
		},
		{
			Name:    "idx_posts_published",
			Columns: []string{"published_at"},
		},
	},
}
