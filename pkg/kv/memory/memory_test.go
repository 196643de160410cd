package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plumehq/plume-backend/pkg/kv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(0) // no janitor; expiration is exercised lazily
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Expected 'v', got '%s'", got)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestExpiration(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("Get before expiry failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := s.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func TestDelExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Set(ctx, "a", []byte("1"))
	s.Set(ctx, "b", []byte("2"))

	found, err := s.Exists(ctx, "a", "b", "c")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if found != 2 {
		t.Errorf("Expected 2 keys, got %d", found)
	}

	removed, err := s.Del(ctx, "a", "c")
	if err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removal, got %d", removed)
	}
}

func TestIncrBy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n, err := s.IncrBy(ctx, "counter", 1)
	if err != nil {
		t.Fatalf("IncrBy failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1, got %d", n)
	}

	n, err = s.IncrBy(ctx, "counter", 4)
	if err != nil {
		t.Fatalf("IncrBy failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Expected 5, got %d", n)
	}
}

func TestExpireAndTTL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Set(ctx, "k", []byte("v"))

	ttl, err := s.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != -1 {
		t.Errorf("Expected -1 for key without expiry, got %v", ttl)
	}

	ok, err := s.Expire(ctx, "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Expire failed: ok=%v err=%v", ok, err)
	}

	ttl, err = s.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("Unexpected TTL %v", ttl)
	}

	ok, err = s.Expire(ctx, "missing", time.Minute)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if ok {
		t.Error("Expected false for missing key")
	}
}
