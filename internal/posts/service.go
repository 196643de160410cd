package posts

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/plumehq/plume-backend/internal/db/entities"
	"github.com/plumehq/plume-backend/internal/db/interfaces"
	"github.com/plumehq/plume-backend/internal/document"
	"github.com/plumehq/plume-backend/internal/metrics"
	"github.com/plumehq/plume-backend/internal/preview"
	"github.com/plumehq/plume-backend/internal/render"
	"github.com/plumehq/plume-backend/internal/slug"
	"github.com/plumehq/plume-backend/internal/store"
)

// DefaultPageSize bounds listings when the caller does not ask for a
// specific page size.
const DefaultPageSize = 20

const submitWindow = time.Hour

// Limits carries the content constraints enforced on submissions
type Limits struct {
	TitleMaxLen     int
	HookMaxLen      int
	PreviewMaxChars int
	SubmitPerHour   int
	RenderTTL       time.Duration
}

// Service implements the editorial pipeline over the storage, cache,
// and rendering layers.
type Service struct {
	db       interfaces.Database
	posts    interfaces.Repository
	users    interfaces.Repository
	tags     interfaces.Repository
	postTags interfaces.Repository

	renderer *render.Renderer
	cache    *store.Cache
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
	limits   Limits

	renderGroup singleflight.Group
}

// NewService creates a Service over the given database
func NewService(database interfaces.Database, renderer *render.Renderer, cache *store.Cache, logger *zap.SugaredLogger, m *metrics.Metrics, limits Limits) *Service {
	if limits.TitleMaxLen == 0 {
		limits.TitleMaxLen = 255
	}
	if limits.HookMaxLen == 0 {
		limits.HookMaxLen = 300
	}
	if limits.PreviewMaxChars == 0 {
		limits.PreviewMaxChars = 400
	}
	if limits.RenderTTL == 0 {
		limits.RenderTTL = 10 * time.Minute
	}

	return &Service{
		db:       database,
		posts:    database.Repository(entities.PostSchema),
		users:    database.Repository(entities.UserSchema),
		tags:     database.Repository(entities.TagSchema),
		postTags: database.Repository(entities.PostTagSchema),
		renderer: renderer,
		cache:    cache,
		logger:   logger,
		metrics:  m,
		limits:   limits,
	}
}

// Create validates and stores a new submission. The slug is derived
// from the author name and title; a collision is a hard conflict, the
// caller is expected to change the title.
func (s *Service) Create(ctx context.Context, id Identity, input CreateInput) (*Post, error) {
	if err := authorize(id, nil, ActionSubmit); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationf("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > s.limits.TitleMaxLen {
		return nil, validationf("title", "must not exceed %d characters", s.limits.TitleMaxLen)
	}
	hook := ""
	if input.Hook != nil {
		hook = strings.TrimSpace(*input.Hook)
	}
	if hook == "" {
		return nil, validationf("hook", "must not be empty")
	}
	if utf8.RuneCountInString(hook) > s.limits.HookMaxLen {
		return nil, validationf("hook", "must not exceed %d characters", s.limits.HookMaxLen)
	}

	doc, err := document.Decode(input.Content)
	if err != nil {
		return nil, validationf("content", "invalid document: %v", err)
	}
	// Store the canonical encoding, not the client's byte form
	content, err := document.Encode(doc)
	if err != nil {
		return nil, validationf("content", "invalid document: %v", err)
	}
	// The empty document canonically encodes to ""
	if content == "" {
		return nil, validationf("content", "must not be empty")
	}

	author, err := s.users.GetByID(ctx, interfaces.StringID(id.UserID))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, err
	}
	authorName := stringField(author, "name")

	postSlug, err := slug.Make(authorName, title)
	if err != nil {
		return nil, validationf("title", "cannot derive a slug: %v", err)
	}

	if s.cache != nil && s.limits.SubmitPerHour > 0 {
		count, err := s.cache.CountSubmission(ctx, id.UserID, submitWindow)
		if err != nil {
			s.logger.Warnw("Submission counter unavailable", "error", err)
		} else if count > int64(s.limits.SubmitPerHour) {
			return nil, &RateLimitedError{Msg: "submission limit reached, try again later"}
		}
	}

	// Early duplicate check for a friendly error. The unique index on
	// the insert below remains the authoritative signal under races.
	if _, err := s.findBySlug(ctx, postSlug); err == nil {
		return nil, &ConflictError{Msg: "a post with this title already exists, please change the title"}
	} else if _, ok := err.(*NotFoundError); !ok {
		return nil, err
	}

	data := map[string]interface{}{
		"author_id": id.UserID,
		"title":     title,
		"hook":      hook,
		"content":   content,
		"slug":      postSlug,
		"status":    entities.StatusPendingReview,
	}

	record, err := s.posts.Create(ctx, data)
	if err != nil {
		if errors.Is(err, interfaces.ErrUniqueConstraint) {
			return nil, &ConflictError{Msg: "a post with this title already exists, please change the title"}
		}
		return nil, err
	}

	post := postFromRecord(record)
	post.AuthorName = authorName
	post.Tags, err = s.attachTags(ctx, post.ID, input.Tags)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPostCreated(ctx)
	if s.cache != nil {
		s.cache.Delete(ctx, store.KeyPostList, store.KeyTagList)
	}
	s.logger.Infow("Post submitted", "post_id", post.ID, "slug", post.Slug)

	return post, nil
}

// GetBySlug returns a post with its rendered markup. Posts that are
// not approved are visible only to their author and to moderators;
// to anyone else they do not exist.
func (s *Service) GetBySlug(ctx context.Context, id Identity, rawSlug string) (*RenderedPost, error) {
	p, err := s.findBySlug(ctx, slug.Normalize(rawSlug))
	if err != nil {
		return nil, err
	}

	if err := authorize(id, p, ActionView); err != nil {
		return nil, err
	}

	p.AuthorName = s.authorName(ctx, p.AuthorID)
	p.Tags = s.tagNames(ctx, p.ID)

	return &RenderedPost{
		Post:   p,
		Markup: s.renderedMarkup(ctx, p),
	}, nil
}

// ListApproved returns the public feed: featured posts first, then by
// publication recency.
func (s *Service) ListApproved(ctx context.Context, limit, offset int) ([]*Summary, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	cacheable := s.cache != nil && offset == 0 && limit == DefaultPageSize
	if cacheable {
		var cached []*Summary
		if err := s.cache.Get(ctx, store.KeyPostList, &cached); err == nil {
			return cached, nil
		}
	}

	result, err := s.posts.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{
				{Field: "status", Value: entities.StatusApproved},
			},
		},
		OrderBy: []interfaces.OrderBy{
			{Field: "is_featured", Direction: "desc"},
			{Field: "published_at", Direction: "desc"},
		},
		Limit:  &limit,
		Offset: &offset,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]*Summary, 0, len(result.Data))
	for _, record := range result.Data {
		p := postFromRecord(record)
		summaries = append(summaries, &Summary{
			ID:          p.ID,
			Title:       p.Title,
			Hook:        p.Hook,
			Slug:        p.Slug,
			AuthorName:  s.authorName(ctx, p.AuthorID),
			Preview:     preview.Extract(s.renderedMarkup(ctx, p), s.limits.PreviewMaxChars),
			IsFeatured:  p.IsFeatured,
			Tags:        s.tagNames(ctx, p.ID),
			PublishedAt: p.PublishedAt,
		})
	}

	if cacheable {
		s.cache.Set(ctx, store.KeyPostList, summaries, s.limits.RenderTTL)
	}

	return summaries, nil
}

// ListMine returns the caller's own posts in every status
func (s *Service) ListMine(ctx context.Context, id Identity, limit, offset int) ([]*Post, error) {
	if err := authorize(id, nil, ActionSubmit); err != nil {
		return nil, err
	}

	return s.listPosts(ctx, &interfaces.Filters{
		Conditions: []interfaces.Filter{
			{Field: "author_id", Value: id.UserID},
		},
	}, limit, offset)
}

// ListForModerator returns posts in any status for the review queue.
// statusFilter narrows the listing when non-empty.
func (s *Service) ListForModerator(ctx context.Context, id Identity, statusFilter string, limit, offset int) ([]*Post, error) {
	if err := authorize(id, nil, ActionModerate); err != nil {
		return nil, err
	}

	var where *interfaces.Filters
	if statusFilter != "" {
		if !validStatus(statusFilter) {
			return nil, validationf("status", "unknown status %q", statusFilter)
		}
		where = &interfaces.Filters{
			Conditions: []interfaces.Filter{
				{Field: "status", Value: statusFilter},
			},
		}
	}

	return s.listPosts(ctx, where, limit, offset)
}

func (s *Service) listPosts(ctx context.Context, where *interfaces.Filters, limit, offset int) ([]*Post, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	result, err := s.posts.FindMany(ctx, &interfaces.Query{
		Where: where,
		OrderBy: []interfaces.OrderBy{
			{Field: "created_at", Direction: "desc"},
		},
		Limit:  &limit,
		Offset: &offset,
	})
	if err != nil {
		return nil, err
	}

	list := make([]*Post, 0, len(result.Data))
	for _, record := range result.Data {
		p := postFromRecord(record)
		p.AuthorName = s.authorName(ctx, p.AuthorID)
		p.Tags = s.tagNames(ctx, p.ID)
		list = append(list, p)
	}

	return list, nil
}

// SetStatus moves a post through the editorial state machine. Approval
// stamps published_at exactly once and clears any rejection reason.
// Rejection requires a reason and clears the approved-only fields.
// There is no transition back into review.
func (s *Service) SetStatus(ctx context.Context, id Identity, postID, status, reason string) (*Post, error) {
	if err := authorize(id, nil, ActionModerate); err != nil {
		return nil, err
	}
	switch status {
	case entities.StatusApproved, entities.StatusRejected:
	default:
		return nil, validationf("status", "%q is not a valid target status", status)
	}

	record, err := s.posts.GetByID(ctx, interfaces.StringID(postID))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, &NotFoundError{Resource: "post"}
		}
		return nil, err
	}
	current := postFromRecord(record)

	updates := map[string]interface{}{"status": status}
	switch status {
	case entities.StatusApproved:
		updates["rejection_reason"] = nil
		if current.PublishedAt == nil {
			updates["published_at"] = time.Now()
		}
	case entities.StatusRejected:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, validationf("reason", "a rejection reason is required")
		}
		updates["rejection_reason"] = reason
		// Featuring and the editorial note only exist on approved posts
		updates["is_featured"] = false
		updates["admin_context"] = nil
	}

	updated, err := s.posts.Update(ctx, interfaces.StringID(postID), updates)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordModeration(ctx, status)
	if s.cache != nil {
		s.cache.InvalidatePost(ctx, postID)
	}
	s.logger.Infow("Post status changed", "post_id", postID, "status", status)

	return postFromRecord(updated), nil
}

// SetContext attaches an internal editorial note to an approved post
func (s *Service) SetContext(ctx context.Context, id Identity, postID, adminContext string) (*Post, error) {
	if err := authorize(id, nil, ActionModerate); err != nil {
		return nil, err
	}

	current, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if current.Status != entities.StatusApproved {
		return nil, &PreconditionError{Msg: "context can only be set on approved posts"}
	}

	updated, err := s.posts.Update(ctx, interfaces.StringID(postID), map[string]interface{}{
		"admin_context": strings.TrimSpace(adminContext),
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordModeration(ctx, "context")
	if s.cache != nil {
		s.cache.InvalidatePost(ctx, postID)
	}

	return postFromRecord(updated), nil
}

// ToggleFeatured flips the featured flag on an approved post
func (s *Service) ToggleFeatured(ctx context.Context, id Identity, postID string) (*Post, error) {
	if err := authorize(id, nil, ActionModerate); err != nil {
		return nil, err
	}

	current, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if current.Status != entities.StatusApproved {
		return nil, &PreconditionError{Msg: "only approved posts can be featured"}
	}

	updated, err := s.posts.Update(ctx, interfaces.StringID(postID), map[string]interface{}{
		"is_featured": !current.IsFeatured,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordModeration(ctx, "feature")
	if s.cache != nil {
		s.cache.InvalidatePost(ctx, postID)
	}

	return postFromRecord(updated), nil
}

// Delete removes a post. Tag associations cascade away with it.
func (s *Service) Delete(ctx context.Context, id Identity, postID string) error {
	if err := authorize(id, nil, ActionModerate); err != nil {
		return err
	}

	// The post row and its tag links go together or not at all.
	err := s.db.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		return s.posts.Delete(ctx, interfaces.StringID(postID))
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return &NotFoundError{Resource: "post"}
		}
		return err
	}

	s.metrics.RecordModeration(ctx, "delete")
	if s.cache != nil {
		s.cache.InvalidatePost(ctx, postID)
	}
	s.logger.Infow("Post deleted", "post_id", postID)

	return nil
}

// ListTags returns all known tag names sorted alphabetically
func (s *Service) ListTags(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		var cached []string
		if err := s.cache.Get(ctx, store.KeyTagList, &cached); err == nil {
			return cached, nil
		}
	}

	result, err := s.tags.FindMany(ctx, &interfaces.Query{
		OrderBy: []interfaces.OrderBy{
			{Field: "name", Direction: "asc"},
		},
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(result.Data))
	for _, record := range result.Data {
		names = append(names, stringField(record, "name"))
	}

	if s.cache != nil {
		s.cache.Set(ctx, store.KeyTagList, names, s.limits.RenderTTL)
	}

	return names, nil
}

func validStatus(status string) bool {
	switch status {
	case entities.StatusPendingReview, entities.StatusApproved, entities.StatusRejected:
		return true
	}
	return false
}

func (s *Service) findBySlug(ctx context.Context, postSlug string) (*Post, error) {
	record, err := s.posts.FindOne(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{
				{Field: "slug", Value: postSlug},
			},
		},
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, &NotFoundError{Resource: "post"}
		}
		return nil, err
	}
	return postFromRecord(record), nil
}

func (s *Service) getPost(ctx context.Context, postID string) (*Post, error) {
	record, err := s.posts.GetByID(ctx, interfaces.StringID(postID))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, &NotFoundError{Resource: "post"}
		}
		return nil, err
	}
	return postFromRecord(record), nil
}

// renderedMarkup returns display markup for a post, from cache when
// possible. Rendering never fails; a broken document yields the
// fallback fragment.
func (s *Service) renderedMarkup(ctx context.Context, p *Post) string {
	if s.cache != nil {
		var cached string
		if err := s.cache.GetRenderedPost(ctx, p.ID, &cached); err == nil {
			return cached
		}
	}

	// Concurrent readers of a cold post share a single render.
	v, _, _ := s.renderGroup.Do(p.ID, func() (interface{}, error) {
		markup := s.renderer.Render(ctx, p.Content)
		if s.cache != nil {
			s.cache.SetRenderedPost(ctx, p.ID, markup, s.limits.RenderTTL)
		}
		return markup, nil
	})
	return v.(string)
}

// attachTags upserts tag names and links them to the post, returning
// the normalized names actually attached.
func (s *Service) attachTags(ctx context.Context, postID string, names []string) ([]string, error) {
	attached := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		tag, err := s.tags.Upsert(ctx, map[string]interface{}{"name": name}, map[string]interface{}{"name": name})
		if err != nil {
			return nil, err
		}

		_, err = s.postTags.Create(ctx, map[string]interface{}{
			"post_id": postID,
			"tag_id":  stringField(tag, "id"),
		})
		if err != nil && !errors.Is(err, interfaces.ErrUniqueConstraint) {
			return nil, err
		}

		attached = append(attached, name)
	}

	sort.Strings(attached)
	return attached, nil
}

func (s *Service) authorName(ctx context.Context, authorID string) string {
	record, err := s.users.GetByID(ctx, interfaces.StringID(authorID))
	if err != nil {
		return ""
	}
	return stringField(record, "name")
}

func (s *Service) tagNames(ctx context.Context, postID string) []string {
	links, err := s.postTags.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{
				{Field: "post_id", Value: postID},
			},
		},
	})
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(links.Data))
	for _, link := range links.Data {
		tag, err := s.tags.GetByID(ctx, interfaces.StringID(stringField(link, "tag_id")))
		if err != nil {
			continue
		}
		names = append(names, stringField(tag, "name"))
	}

	sort.Strings(names)
	return names
}
