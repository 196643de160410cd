package entities

import (
	"time"

	"github.com/plumehq/plume-backend/internal/db/interfaces"
)

// Tag represents a content tag
type Tag struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TagSchema defines the database schema for tags
var TagSchema = &interfaces.Schema{
	TableName: "tags",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       "string",
			PrimaryKey: true,
		},
		"name": {
			Type:   "string",
			Unique: true,
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
			Name:    "idx_tags_name",
			Columns: []string{"name"},
			Unique:  true,
		},
	},
}

// PostTag links a post to a tag
type PostTag struct {
	ID     string `json:"id" db:"id"`
	PostID string `json:"post_id" db:"post_id"`
	TagID  string `json:"tag_id" db:"tag_id"`
}

// PostTagSchema defines the many-to-many join between posts and tags.
// Rows cascade away when either side is deleted.
var PostTagSchema = &interfaces.Schema{
	TableName: "post_tags",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       "string",
			PrimaryKey: true,
		},
		"post_id": {
			Type: "string",
			ForeignKey: &interfaces.ForeignKey{
				Table:    "posts",
				Column:   "id",
				OnDelete: "CASCADE",
			},
		},
		"tag_id": {
			Type: "string",
			ForeignKey: &interfaces.ForeignKey{
				Table:    "tags",
				Column:   "id",
				OnDelete: "CASCADE",
			},
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
			Name:    "idx_post_tags_pair",
			Columns: []string{"post_id", "tag_id"},
			Unique:  true,
		},
	},
}
