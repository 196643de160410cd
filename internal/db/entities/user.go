package entities

import (
	"time"

	"github.com/plumehq/plume-backend/internal/db/interfaces"
)

// Roles recognized by the service. Moderators may additionally perform
// editorial transitions on any post.
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
)

// User represents an account entity
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserSchema defines the database schema for users
var UserSchema = &interfaces.Schema{
	TableName: "users",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       "string",
			PrimaryKey: true,
		},
		"email": {
			Type:   "string",
			Unique: true,
		},
		"name": {
			Type: "string",
		},
		"role": {
			Type:         "string",
			DefaultValue: RoleMember,
		},
		"is_active": {
			Type:         "bool",
			DefaultValue: true,
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
			Name:    "idx_users_email",
			Columns: []string{"email"},
			Unique:  true,
		},
		{
			Name:    "idx_users_active",
			Columns: []string{"is_active"},
		},
	},
}
