package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/plumehq/plume-backend/internal/db/interfaces"
	"github.com/plumehq/plume-backend/internal/posts"
	"github.com/plumehq/plume-backend/internal/store"
)

type Handler struct {
	postsSvc *posts.Service
	db       interfaces.Database
	cache    *store.Cache
	logger   *zap.SugaredLogger
}

func NewHandler(postsSvc *posts.Service, db interfaces.Database, cache *store.Cache, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		postsSvc: postsSvc,
		db:       db,
		cache:    cache,
		logger:   logger,
	}
}

// Health endpoints

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil && !h.db.IsHealthy(r.Context()) {
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			http.Error(w, "cache not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

// Public endpoints

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	feed, err := h.postsSvc.ListApproved(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dtos := make([]SummaryDTO, 0, len(feed))
	for _, s := range feed {
		dtos = append(dtos, summaryDTO(s))
	}

	h.writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.postsSvc.ListTags(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, tags)
}

// GetArticle serves a single post by slug. The slug contains a slash,
// so the route uses a wildcard.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "*")
	if slug == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_PARAMETER", "slug is required")
		return
	}

	article, err := h.postsSvc.GetBySlug(r.Context(), IdentityFromContext(r.Context()), slug)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ArticleDTO{
		PostDTO: postDTO(article.Post),
		Markup:  article.Markup,
	})
}

// Authenticated endpoints

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	post, err := h.postsSvc.Create(r.Context(), IdentityFromContext(r.Context()), posts.CreateInput{
		Title:   req.Title,
		Hook:    req.Hook,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, postDTO(post))
}

func (h *Handler) ListMyPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	mine, err := h.postsSvc.ListMine(r.Context(), IdentityFromContext(r.Context()), limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dtos := make([]PostDTO, 0, len(mine))
	for _, p := range mine {
		dtos = append(dtos, postDTO(p))
	}

	h.writeJSON(w, http.StatusOK, dtos)
}

// Moderation endpoints

func (h *Handler) ListAdminPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	status := r.URL.Query().Get("status")

	list, err := h.postsSvc.ListForModerator(r.Context(), IdentityFromContext(r.Context()), status, limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dtos := make([]AdminPostDTO, 0, len(list))
	for _, p := range list {
		dtos = append(dtos, adminPostDTO(p))
	}

	h.writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) UpdatePostStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	post, err := h.postsSvc.SetStatus(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "id"), req.Status, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, adminPostDTO(post))
}

func (h *Handler) UpdatePostContext(w http.ResponseWriter, r *http.Request) {
	var req UpdateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	post, err := h.postsSvc.SetContext(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "id"), req.Context)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, adminPostDTO(post))
}

func (h *Handler) TogglePostFeature(w http.ResponseWriter, r *http.Request) {
	post, err := h.postsSvc.ToggleFeatured(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, adminPostDTO(post))
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.postsSvc.Delete(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helpers

func pagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		offset = v
	}
	return limit, offset
}

// writeServiceError maps domain errors onto HTTP statuses
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		vErr  *posts.ValidationError
		cErr  *posts.ConflictError
		pErr  *posts.PreconditionError
		fErr  *posts.ForbiddenError
		nfErr *posts.NotFoundError
		rlErr *posts.RateLimitedError
	)

	switch {
	case errors.As(err, &vErr):
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", vErr.Error())
	case errors.As(err, &cErr):
		h.writeError(w, http.StatusConflict, "SLUG_CONFLICT", cErr.Msg)
	case errors.As(err, &pErr):
		h.writeError(w, http.StatusConflict, "PRECONDITION_FAILED", pErr.Msg)
	case errors.As(err, &fErr):
		h.writeError(w, http.StatusForbidden, "FORBIDDEN", fErr.Msg)
	case errors.As(err, &nfErr):
		h.writeError(w, http.StatusNotFound, "NOT_FOUND", nfErr.Error())
	case errors.As(err, &rlErr):
		h.writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", rlErr.Msg)
	default:
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.logger.Errorw("API error", "code", code, "message", message, "status", status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	})
}
