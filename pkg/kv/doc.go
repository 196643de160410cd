// Package kv provides a Redis-like key-value store abstraction with
// in-memory and Redis-backed implementations.
//
// The Store interface covers string values with TTL support and atomic
// counters. The in-memory implementation runs a background janitor for
// expiration and serves development, testing, and deployments without a
// Redis instance. The Redis adapter wraps go-redis/v9 for production
// use behind the same interface.
//
// Example usage:
//
//	store, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	ctx := context.Background()
//	err = store.Set(ctx, "key", []byte("value"), 10*time.Second)
//	value, err := store.Get(ctx, "key")
//	if errors.Is(err, kv.ErrNotFound) {
//		// key missing or expired
//	}
package kv
