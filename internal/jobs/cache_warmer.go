package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/plumehq/plume-backend/internal/posts"
)

// CacheWarmer periodically refreshes the public feed and tag list
// caches so the first reader after an invalidation does not pay the
// render cost. Listing the feed renders every summary on the page,
// which repopulates the per-post render cache as a side effect.
type CacheWarmer struct {
	svc    *posts.Service
	logger *zap.SugaredLogger
	config CacheWarmerConfig

	mu        sync.Mutex
	cancelCtx context.CancelFunc
}

type CacheWarmerConfig struct {
	Interval time.Duration // How often to refresh the cached listings
}

func NewCacheWarmer(svc *posts.Service, logger *zap.SugaredLogger, config CacheWarmerConfig) *CacheWarmer {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	return &CacheWarmer{
		svc:    svc,
		logger: logger,
		config: config,
	}
}

// Start runs the warm loop until the context is cancelled or Stop is
// called. It warms once immediately so a fresh process serves its
// first feed request from cache.
func (w *CacheWarmer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancelCtx = cancel
	w.mu.Unlock()

	w.logger.Infow("Starting cache warmer", "interval", w.config.Interval)

	w.warm(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infow("Cache warmer stopping due to context cancellation")
			return ctx.Err()
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

func (w *CacheWarmer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelCtx != nil {
		w.cancelCtx()
	}
}

func (w *CacheWarmer) warm(ctx context.Context) {
	start := time.Now()

	summaries, err := w.svc.ListApproved(ctx, posts.DefaultPageSize, 0)
	if err != nil {
		w.logger.Warnw("Feed warm failed", "error", err)
	}

	tags, err := w.svc.ListTags(ctx)
	if err != nil {
		w.logger.Warnw("Tag warm failed", "error", err)
	}

	w.logger.Debugw("Cache warmed",
		"posts", len(summaries),
		"tags", len(tags),
		"elapsed", time.Since(start),
	)
}
