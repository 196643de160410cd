package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Routes(m *Middleware, corsOrigins []string, rateLimitRPM int, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Compress)
	r.Use(m.Timeout(15 * time.Second))
	r.Use(middleware.Heartbeat("/ping"))

	// CORS and rate limiting - configured from main
	r.Use(m.CORS(corsOrigins))
	r.Use(m.RateLimit(rateLimitRPM))

	r.Use(m.Identity)

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	// v1 API routes
	r.Route("/v1", func(r chi.Router) {
		// Public feed
		r.Get("/posts", h.ListPosts)
		r.Get("/tags", h.ListTags)

		// Slugs are author-token/title-token, hence the wildcard
		r.Get("/articles/*", h.GetArticle)

		// Authenticated
		r.Post("/posts", h.CreatePost)
		r.Get("/me/posts", h.ListMyPosts)

		// Moderation
		r.Route("/admin", func(r chi.Router) {
			r.Use(m.RequireModerator)

			r.Get("/posts", h.ListAdminPosts)
			r.Route("/posts/{id}", func(r chi.Router) {
				r.Patch("/status", h.UpdatePostStatus)
				r.Patch("/context", h.UpdatePostContext)
				r.Patch("/feature", h.TogglePostFeature)
				r.Delete("/", h.DeletePost)
			})
		})
	})

	return r
}
