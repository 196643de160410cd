package posts

import "github.com/plumehq/plume-backend/internal/db/entities"

// Action names a capability checked by authorize.
type Action string

const (
	// ActionView reads a single post.
	ActionView Action = "view"
	// ActionSubmit creates a post or lists the caller's own posts.
	ActionSubmit Action = "submit"
	// ActionModerate covers every editorial transition: status changes,
	// context, featuring, deletion, and the review queue.
	ActionModerate Action = "moderate"
)

// authorize is the single policy gate for the pipeline; every
// capability check routes through it. post is nil for actions that do
// not target one. A denied view reports the post as absent so
// unpublished slugs do not leak existence.
func authorize(id Identity, p *Post, action Action) error {
	switch action {
	case ActionView:
		if canView(id, p) {
			return nil
		}
		return &NotFoundError{Resource: "post"}

	case ActionSubmit:
		if id.IsAnonymous() {
			return &ForbiddenError{Msg: "authentication required"}
		}
		return nil

	case ActionModerate:
		if !id.IsModerator() {
			return &ForbiddenError{Msg: "moderator role required"}
		}
		return nil

	default:
		return &ForbiddenError{Msg: "unknown action"}
	}
}

// canView reports whether the caller may read the post. Approved posts
// are public. Anything else is visible only to its author and to
// moderators.
func canView(id Identity, p *Post) bool {
	if p.Status == entities.StatusApproved {
		return true
	}
	if id.IsAnonymous() {
		return false
	}
	return id.UserID == p.AuthorID || id.IsModerator()
}
