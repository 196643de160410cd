package posts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plumehq/plume-backend/internal/db/entities"
)

func TestAuthorizeView(t *testing.T) {
	author := Identity{UserID: "u1", Role: entities.RoleMember}
	other := Identity{UserID: "u2", Role: entities.RoleMember}
	moderator := Identity{UserID: "u3", Role: entities.RoleModerator}
	anonymous := Identity{}

	tests := []struct {
		name   string
		status string
		caller Identity
		want   bool
	}{
		{"approved visible to anonymous", entities.StatusApproved, anonymous, true},
		{"approved visible to members", entities.StatusApproved, other, true},
		{"pending visible to author", entities.StatusPendingReview, author, true},
		{"pending visible to moderator", entities.StatusPendingReview, moderator, true},
		{"pending hidden from others", entities.StatusPendingReview, other, false},
		{"pending hidden from anonymous", entities.StatusPendingReview, anonymous, false},
		{"rejected visible to author", entities.StatusRejected, author, true},
		{"rejected hidden from others", entities.StatusRejected, other, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Post{AuthorID: "u1", Status: tt.status}
			err := authorize(tt.caller, p, ActionView)
			if tt.want {
				assert.NoError(t, err)
				return
			}
			var notFound *NotFoundError
			assert.ErrorAs(t, err, &notFound)
		})
	}
}

func TestAuthorizeSubmit(t *testing.T) {
	assert.NoError(t, authorize(Identity{UserID: "u1", Role: entities.RoleMember}, nil, ActionSubmit))

	var forbidden *ForbiddenError
	assert.ErrorAs(t, authorize(Identity{}, nil, ActionSubmit), &forbidden)
}

func TestAuthorizeModerate(t *testing.T) {
	assert.NoError(t, authorize(Identity{UserID: "u3", Role: entities.RoleModerator}, nil, ActionModerate))

	var forbidden *ForbiddenError
	assert.ErrorAs(t, authorize(Identity{UserID: "u1", Role: entities.RoleMember}, nil, ActionModerate), &forbidden)
	assert.ErrorAs(t, authorize(Identity{}, nil, ActionModerate), &forbidden)
}
