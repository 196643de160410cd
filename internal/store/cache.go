package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/plumehq/plume-backend/internal/metrics"
	"github.com/plumehq/plume-backend/pkg/kv"
	memkv "github.com/plumehq/plume-backend/pkg/kv/memory"
	_ "github.com/plumehq/plume-backend/pkg/kv/redis" // register redis backend
)

// Cache wraps a kv.Store with JSON serialization and the key layout
// used by the editorial pipeline. The backing store is Redis when
// reachable at startup, otherwise the in-memory store.
type Cache struct {
	store      kv.Store
	memoryMode bool

	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewCache(addr string, logger *zap.SugaredLogger, metrics *metrics.Metrics) (*Cache, error) {
	cfg := kv.Config{
		Backend:             kv.BackendRedis,
		RedisURL:            addr,
		StartupProbeTimeout: 2 * time.Second,
	}
	if logger != nil {
		cfg.Logger = logger.Infow
	}

	s, err := kv.NewStoreFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("cache setup error: %w", err)
	}

	_, memoryMode := s.(*memkv.Store)
	return &Cache{
		store:      s,
		memoryMode: memoryMode,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// NewInMemoryCache creates a cache backed only by the in-memory store.
func NewInMemoryCache(logger *zap.SugaredLogger, metrics *metrics.Metrics) *Cache {
	return &Cache{
		store:      memkv.NewStore(),
		memoryMode: true,
		logger:     logger,
		metrics:    metrics,
	}
}

// Cache key prefixes
const (
	KeyRenderedPost = "plume:render"
	KeyPostList     = "plume:posts:approved"
	KeyTagList      = "plume:tags"
	KeySubmitCount  = "plume:submit:count"
)

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if err == kv.ErrNotFound {
			if c.metrics != nil {
				c.metrics.RecordCacheMiss(ctx, key)
			}
			return ErrCacheMiss
		}
		if c.logger != nil {
			c.logger.Errorw("Cache get error", "key", key, "error", err)
		}
		return fmt.Errorf("cache get error: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		if c.logger != nil {
			c.logger.Errorw("Cache set error", "key", key, "error", err)
		}
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := c.store.Del(ctx, keys...); err != nil {
		if c.logger != nil {
			c.logger.Errorw("Cache delete error", "keys", keys, "error", err)
		}
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := c.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("cache exists error: %w", err)
	}
	return count > 0, nil
}

// IncrWindow atomically increments a counter and starts its expiry
// window on first increment. Returns the counter value.
func (c *Cache) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.store.IncrBy(ctx, key, 1)
	if err != nil {
		return 0, fmt.Errorf("cache incr error: %w", err)
	}
	if count == 1 {
		if _, err := c.store.Expire(ctx, key, window); err != nil {
			return count, fmt.Errorf("cache expire error: %w", err)
		}
	}
	return count, nil
}

// Rendered markup cache

func renderedPostKey(postID string) string {
	return fmt.Sprintf("%s:%s", KeyRenderedPost, postID)
}

func (c *Cache) GetRenderedPost(ctx context.Context, postID string, dest interface{}) error {
	return c.Get(ctx, renderedPostKey(postID), dest)
}

func (c *Cache) SetRenderedPost(ctx context.Context, postID string, value interface{}, ttl time.Duration) error {
	return c.Set(ctx, renderedPostKey(postID), value, ttl)
}

// InvalidatePost drops cached artifacts derived from a post, including
// the approved listing which embeds previews.
func (c *Cache) InvalidatePost(ctx context.Context, postID string) error {
	return c.Delete(ctx, renderedPostKey(postID), KeyPostList)
}

// Submission throttling

func submitCountKey(authorID string) string {
	return fmt.Sprintf("%s:%s", KeySubmitCount, authorID)
}

// CountSubmission bumps the author's submission counter for the window
// and returns the running total.
func (c *Cache) CountSubmission(ctx context.Context, authorID string, window time.Duration) (int64, error) {
	return c.IncrWindow(ctx, submitCountKey(authorID), window)
}

// IsInMemoryMode returns true if the cache is running in in-memory mode
func (c *Cache) IsInMemoryMode() bool {
	return c.memoryMode
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close connection
func (c *Cache) Close() error {
	return c.store.Close()
}

// Error types
var (
	ErrCacheMiss = fmt.Errorf("cache miss")
)
