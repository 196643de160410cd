package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/plumehq/plume-backend/internal/db"
	"github.com/plumehq/plume-backend/internal/log"
	"github.com/plumehq/plume-backend/internal/posts"
	"github.com/plumehq/plume-backend/internal/render"
	"github.com/plumehq/plume-backend/internal/store"
)

func TestCacheWarmerRunsUntilCancelled(t *testing.T) {
	ctx := context.Background()

	database := db.NewInMemoryDatabase()
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))
	t.Cleanup(func() { database.Disconnect(ctx) })

	logger := log.NewNop()
	cache := store.NewInMemoryCache(logger, nil)
	svc := posts.NewService(database, render.NewRenderer(logger, nil), cache, logger, nil, posts.Limits{})

	warmer := NewCacheWarmer(svc, logger, CacheWarmerConfig{Interval: 10 * time.Millisecond})

	runCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err := warmer.Start(runCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCacheWarmerStop(t *testing.T) {
	ctx := context.Background()

	database := db.NewInMemoryDatabase()
	require.NoError(t, db.ConnectAndMigrate(ctx, database, db.AllSchemas()))
	t.Cleanup(func() { database.Disconnect(ctx) })

	logger := log.NewNop()
	cache := store.NewInMemoryCache(logger, nil)
	svc := posts.NewService(database, render.NewRenderer(logger, nil), cache, logger, nil, posts.Limits{})

	warmer := NewCacheWarmer(svc, logger, CacheWarmerConfig{Interval: time.Minute})

	done := make(chan error, 1)
	go func() { done <- warmer.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	warmer.Stop()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("warmer did not stop")
	}
}
