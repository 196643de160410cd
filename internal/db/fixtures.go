package db

import (
	"github.com/plumehq/plume-backend/internal/db/entities"
	"github.com/plumehq/plume-backend/internal/db/interfaces"
)

// UserFixtures provides sample account data for seeding
var UserFixtures = []map[string]interface{}{
	{
		"email":     "camille.covarel@example.com",
		"name":      "Camille Covarel",
		"role":      entities.RoleMember,
		"is_active": true,
	},
	{
		"email":     "alice.wren@example.com",
		"name":      "Alice Wren",
		"role":      entities.RoleMember,
		"is_active": true,
	},
	{
		"email":     "marc.delorme@example.com",
		"name":      "Marc Delorme",
		"role":      entities.RoleModerator,
		"is_active": true,
	},
}

// TagFixtures provides sample tag data for seeding
var TagFixtures = []map[string]interface{}{
	{"name": "travel"},
	{"name": "food"},
	{"name": "photography"},
}

// PostFixtures provides sample post data for seeding. author_id must be
// filled with real user IDs once users exist.
func PostFixtures(authorIDs []string) []map[string]interface{} {
	if len(authorIDs) == 0 {
		return []map[string]interface{}{}
	}

	first := authorIDs[0]
	second := first
	if len(authorIDs) > 1 {
		second = authorIDs[1]
	}

	return []map[string]interface{}{
		{
			"author_id": first,
			"title":     "A Week in the Cévennes",
			"content":   `{"children":[{"kind":"paragraph","children":[{"kind":"text","text":"Seven days of walking, eating, and getting lost."}]}]}`,
			"slug":      "camille-covarel/a-week-in-the-cevennes",
			"status":    entities.StatusPendingReview,
		},
		{
			"author_id": second,
			"title":     "Sourdough for the Impatient",
			"content":   `{"children":[{"kind":"paragraph","children":[{"kind":"text","text":"You do not need a week to bake good bread."}]}]}`,
			"slug":      "alice-wren/sourdough-for-the-impatient",
			"status":    entities.StatusPendingReview,
		},
	}
}

// AllSchemas returns all entity schemas for migration
func AllSchemas() []*interfaces.Schema {
	return []*interfaces.Schema{
		entities.UserSchema,
		entities.PostSchema,
		entities.TagSchema,
		entities.PostTagSchema,
	}
}
