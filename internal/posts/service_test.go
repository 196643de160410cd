package posts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumehq/plume-backend/internal/db"
	"github.com/plumehq/plume-backend/internal/db/entities"
	"github.com/plumehq/plume-backend/internal/db/interfaces"
	"github.com/plumehq/plume-backend/internal/log"
	"github.com/plumehq/plume-backend/internal/render"
	"github.com/plumehq/plume-backend/internal/store"
)

type testEnv struct {
	svc       *Service
	alice     Identity
	bob       Identity
	moderator Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	database := db.NewInMemoryDatabase()
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))
	t.Cleanup(func() { database.Disconnect(ctx) })

	users := database.Repository(entities.UserSchema)

	alice, err := users.Create(ctx, map[string]interface{}{
		"email": "alice@example.com",
		"name":  "Alice Wren",
	})
	require.NoError(t, err)
	bob, err := users.Create(ctx, map[string]interface{}{
		"email": "bob@example.com",
		"name":  "Bob Tailor",
	})
	require.NoError(t, err)
	mod, err := users.Create(ctx, map[string]interface{}{
		"email": "mod@example.com",
		"name":  "Marc Delorme",
		"role":  entities.RoleModerator,
	})
	require.NoError(t, err)

	logger := log.NewNop()
	cache := store.NewInMemoryCache(logger, nil)
	t.Cleanup(func() { cache.Close() })

	svc := NewService(database, render.NewRenderer(logger, nil), cache, logger, nil, Limits{
		SubmitPerHour: 100,
	})

	return &testEnv{
		svc:       svc,
		alice:     Identity{UserID: alice["id"].(string), Role: entities.RoleMember},
		bob:       Identity{UserID: bob["id"].(string), Role: entities.RoleMember},
		moderator: Identity{UserID: mod["id"].(string), Role: entities.RoleModerator},
	}
}

func sampleContent(text string) string {
	return fmt.Sprintf(`{"children":[{"kind":"paragraph","children":[{"kind":"text","text":%q}]}]}`, text)
}

// submission builds a minimal valid CreateInput
func submission(title, text string) CreateInput {
	hook := "A short teaser."
	return CreateInput{Title: title, Hook: &hook, Content: sampleContent(text)}
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hook := "A short teaser."
	post, err := env.svc.Create(ctx, env.alice, CreateInput{
		Title:   "My First Post",
		Hook:    &hook,
		Content: sampleContent("Hello, readers."),
		Tags:    []string{"Travel", "travel", " food "},
	})
	require.NoError(t, err)

	assert.Equal(t, "alice-wren/my-first-post", post.Slug)
	assert.Equal(t, entities.StatusPendingReview, post.Status)
	assert.False(t, post.IsFeatured)
	assert.Nil(t, post.PublishedAt)
	assert.Equal(t, "Alice Wren", post.AuthorName)
	assert.Equal(t, []string{"food", "travel"}, post.Tags)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	longHook := strings.Repeat("x", 301)
	blankHook := "   "

	alter := func(fn func(*CreateInput)) CreateInput {
		in := submission("Fine Title", "x")
		fn(&in)
		return in
	}

	tests := []struct {
		name  string
		input CreateInput
		field string
	}{
		{
			name:  "empty title",
			input: alter(func(in *CreateInput) { in.Title = "   " }),
			field: "title",
		},
		{
			name:  "title too long",
			input: alter(func(in *CreateInput) { in.Title = strings.Repeat("a", 256) }),
			field: "title",
		},
		{
			name:  "missing hook",
			input: alter(func(in *CreateInput) { in.Hook = nil }),
			field: "hook",
		},
		{
			name:  "blank hook",
			input: alter(func(in *CreateInput) { in.Hook = &blankHook }),
			field: "hook",
		},
		{
			name:  "oversized hook",
			input: alter(func(in *CreateInput) { in.Hook = &longHook }),
			field: "hook",
		},
		{
			name:  "malformed content",
			input: alter(func(in *CreateInput) { in.Content = `{"children":[{"kind":"mystery"}]}` }),
			field: "content",
		},
		{
			name:  "empty content",
			input: alter(func(in *CreateInput) { in.Content = "" }),
			field: "content",
		},
		{
			name:  "empty document content",
			input: alter(func(in *CreateInput) { in.Content = `{"children":[{"kind":"paragraph"}]}` }),
			field: "content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Create(ctx, env.alice, tt.input)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	_, err := env.svc.Create(ctx, Identity{}, submission("T", "x"))
	var fErr *ForbiddenError
	require.ErrorAs(t, err, &fErr)
}

func TestCreateSlugConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.alice, submission("Duplicate Title", "first"))
	require.NoError(t, err)

	// Different casing and punctuation still collide on the slug
	_, err = env.svc.Create(ctx, env.alice, submission("DUPLICATE, title!", "second"))
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)

	// A different author with the same title does not collide
	_, err = env.svc.Create(ctx, env.bob, submission("Duplicate Title", "third"))
	require.NoError(t, err)
}

func TestCreateConcurrentSameSlug(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const writers = 6
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Create(ctx, env.alice, submission("Contested Title", "race"))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			var cErr *ConflictError
			require.ErrorAs(t, err, &cErr)
		}
	}
	assert.Equal(t, 1, created)
}

func TestVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.Create(ctx, env.alice, submission("Pending Piece", "not yet public"))
	require.NoError(t, err)

	// The author sees their pending post
	got, err := env.svc.GetBySlug(ctx, env.alice, post.Slug)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.Post.ID)
	assert.Contains(t, got.Markup, "not yet public")

	// A moderator sees it too
	_, err = env.svc.GetBySlug(ctx, env.moderator, post.Slug)
	require.NoError(t, err)

	// Other members and anonymous readers see nothing
	var nfErr *NotFoundError
	_, err = env.svc.GetBySlug(ctx, env.bob, post.Slug)
	require.ErrorAs(t, err, &nfErr)
	_, err = env.svc.GetBySlug(ctx, Identity{}, post.Slug)
	require.ErrorAs(t, err, &nfErr)

	// Approval makes it public
	_, err = env.svc.SetStatus(ctx, env.moderator, post.ID, entities.StatusApproved, "")
	require.NoError(t, err)
	_, err = env.svc.GetBySlug(ctx, Identity{}, post.Slug)
	require.NoError(t, err)
}

func TestEditorialFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.Create(ctx, env.alice, submission("The Long Road North", "walking"))
	require.NoError(t, err)

	// Members cannot moderate
	var fErr *ForbiddenError
	_, err = env.svc.SetStatus(ctx, env.alice, post.ID, entities.StatusApproved, "")
	require.ErrorAs(t, err, &fErr)

	// Featuring and context require approval first
	var pErr *PreconditionError
	_, err = env.svc.ToggleFeatured(ctx, env.moderator, post.ID)
	require.ErrorAs(t, err, &pErr)
	_, err = env.svc.SetContext(ctx, env.moderator, post.ID, "note")
	require.ErrorAs(t, err, &pErr)

	// Approve
	approved, err := env.svc.SetStatus(ctx, env.moderator, post.ID, entities.StatusApproved, "")
	require.NoError(t, err)
	require.NotNil(t, approved.PublishedAt)
	firstPublished := *approved.PublishedAt

	// Feature and annotate
	featured, err := env.svc.ToggleFeatured(ctx, env.moderator, post.ID)
	require.NoError(t, err)
	assert.True(t, featured.IsFeatured)

	annotated, err := env.svc.SetContext(ctx, env.moderator, post.ID, "strong debut")
	require.NoError(t, err)
	require.NotNil(t, annotated.AdminContext)
	assert.Equal(t, "strong debut", *annotated.AdminContext)

	// There is no way back into review; a featured post cannot end up
	// unpublished but still featured
	var vErr *ValidationError
	_, err = env.svc.SetStatus(ctx, env.moderator, post.ID, entities.StatusPendingReview, "")
	require.ErrorAs(t, err, &vErr)
	still, err := env.svc.GetBySlug(ctx, env.moderator, post.Slug)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusApproved, still.Post.Status)
	assert.True(t, still.Post.IsFeatured)

	// Rejection requires a reason and clears the approved-only fields
	_, err = env.svc.SetStatus(ctx, env.moderator, post.ID, entities.StatusRejected, "  ")
	require.ErrorAs(t, err, &vErr)

	rejected, err := env.svc.SetStatus(ctx, env.moderator, post.ID, entities.StatusRejected, "needs sources")
	require.NoError(t, err)
	assert.False(t, rejected.IsFeatured)
	assert.Nil(t, rejected.AdminContext)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "needs sources", *rejected.RejectionReason)

	// Re-approval keeps the original publication time and clears the reason
	time.Sleep(5 * time.Millisecond)
	reapproved, err := env.svc.SetStatus(ctx, env.moderator, post.ID, entities.StatusApproved, "")
	require.NoError(t, err)
	require.NotNil(t, reapproved.PublishedAt)
	assert.Equal(t, firstPublished.Unix(), reapproved.PublishedAt.Unix())
	assert.Nil(t, reapproved.RejectionReason)
}

func TestListApproved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	titles := []string{"Alpha", "Beta", "Gamma"}
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		post, err := env.svc.Create(ctx, env.alice, submission(title, "body of "+title))
		require.NoError(t, err)
		ids = append(ids, post.ID)
	}

	// Only Beta and Gamma get approved, Gamma gets featured
	_, err := env.svc.SetStatus(ctx, env.moderator, ids[1], entities.StatusApproved, "")
	require.NoError(t, err)
	_, err = env.svc.SetStatus(ctx, env.moderator, ids[2], entities.StatusApproved, "")
	require.NoError(t, err)
	_, err = env.svc.ToggleFeatured(ctx, env.moderator, ids[2])
	require.NoError(t, err)

	feed, err := env.svc.ListApproved(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	assert.Equal(t, "Gamma", feed[0].Title)
	assert.True(t, feed[0].IsFeatured)
	assert.Equal(t, "Beta", feed[1].Title)
	assert.Contains(t, feed[0].Preview, "body of Gamma")
	assert.NotContains(t, feed[0].Preview, "<")
}

func TestListMine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.alice, submission("Mine", "a"))
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, env.bob, submission("Theirs", "b"))
	require.NoError(t, err)

	mine, err := env.svc.ListMine(ctx, env.alice, 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Mine", mine[0].Title)

	var fErr *ForbiddenError
	_, err = env.svc.ListMine(ctx, Identity{}, 0, 0)
	require.ErrorAs(t, err, &fErr)
}

func TestListForModerator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p1, err := env.svc.Create(ctx, env.alice, submission("One", "1"))
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, env.bob, submission("Two", "2"))
	require.NoError(t, err)
	_, err = env.svc.SetStatus(ctx, env.moderator, p1.ID, entities.StatusApproved, "")
	require.NoError(t, err)

	all, err := env.svc.ListForModerator(ctx, env.moderator, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := env.svc.ListForModerator(ctx, env.moderator, entities.StatusPendingReview, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Two", pending[0].Title)

	var vErr *ValidationError
	_, err = env.svc.ListForModerator(ctx, env.moderator, "archived", 0, 0)
	require.ErrorAs(t, err, &vErr)

	var fErr *ForbiddenError
	_, err = env.svc.ListForModerator(ctx, env.alice, "", 0, 0)
	require.ErrorAs(t, err, &fErr)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := submission("Short Lived", "gone soon")
	input.Tags = []string{"ephemera"}
	post, err := env.svc.Create(ctx, env.alice, input)
	require.NoError(t, err)

	var fErr *ForbiddenError
	require.ErrorAs(t, env.svc.Delete(ctx, env.alice, post.ID), &fErr)

	require.NoError(t, env.svc.Delete(ctx, env.moderator, post.ID))

	var nfErr *NotFoundError
	_, err = env.svc.GetBySlug(ctx, env.moderator, post.Slug)
	require.ErrorAs(t, err, &nfErr)
	require.ErrorAs(t, env.svc.Delete(ctx, env.moderator, post.ID), &nfErr)

	// The tag itself survives the post
	tags, err := env.svc.ListTags(ctx)
	require.NoError(t, err)
	assert.Contains(t, tags, "ephemera")
}

func TestListTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := submission("Tagged", "x")
	input.Tags = []string{"zeta", "alpha"}
	_, err := env.svc.Create(ctx, env.alice, input)
	require.NoError(t, err)

	tags, err := env.svc.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, tags)
}

func TestSubmissionRateLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.limits.SubmitPerHour = 2

	for i := 0; i < 2; i++ {
		_, err := env.svc.Create(ctx, env.alice, submission(fmt.Sprintf("Post %d", i), "x"))
		require.NoError(t, err)
	}

	_, err := env.svc.Create(ctx, env.alice, submission("One Too Many", "x"))
	var rlErr *RateLimitedError
	require.ErrorAs(t, err, &rlErr)

	// Other authors are unaffected
	_, err = env.svc.Create(ctx, env.bob, submission("Still Fine", "x"))
	require.NoError(t, err)
}

func TestRenderedMarkupCached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.Create(ctx, env.alice, submission("Cached", "render me"))
	require.NoError(t, err)

	first, err := env.svc.GetBySlug(ctx, env.alice, post.Slug)
	require.NoError(t, err)

	second, err := env.svc.GetBySlug(ctx, env.alice, post.Slug)
	require.NoError(t, err)
	assert.Equal(t, first.Markup, second.Markup)

	// Slug lookup is forgiving about case and surrounding slashes
	third, err := env.svc.GetBySlug(ctx, env.alice, "/Alice-Wren/Cached/")
	require.NoError(t, err)
	assert.Equal(t, post.ID, third.Post.ID)
}

func TestBrokenContentRendersFallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	post, err := env.svc.Create(ctx, env.alice, submission("Corrupted Later", "fine at first"))
	require.NoError(t, err)

	// Corrupt the stored payload behind the service's back
	_, err = env.svc.posts.Update(ctx, interfaces.StringID(post.ID), map[string]interface{}{
		"content": "{not json",
	})
	require.NoError(t, err)

	got, err := env.svc.GetBySlug(ctx, env.alice, post.Slug)
	require.NoError(t, err)
	assert.Equal(t, render.Fallback, got.Markup)
}
