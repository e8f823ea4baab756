package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
)

func newTestRedisStore(t *testing.T) *RedisSessionStore {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := NewRedisClient(&config.RedisConfig{Addr: addr})
	t.Cleanup(func() { client.Close() })

	store := NewRedisSessionStore(client, time.Minute)
	if err := store.Ping(context.Background()); err != nil {
		t.Skipf("Redis not reachable: %v", err)
	}
	return store
}

func TestNewRedisSessionStoreDefaultTTL(t *testing.T) {
	client := NewRedisClient(&config.RedisConfig{Addr: "localhost:6379"})
	defer client.Close()

	store := NewRedisSessionStore(client, 0)
	if store.ttl != 2*time.Hour {
		t.Errorf("Expected default ttl 2h, got %v", store.ttl)
	}
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	key := "test-" + time.Now().Format("150405.000000")

	data, err := store.Load(ctx, key)
	if err != nil || data != nil {
		t.Fatalf("Expected empty load, got %q, %v", data, err)
	}

	if err := store.Save(ctx, key, []byte(`{"schema_version":1}`)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, err = store.Load(ctx, key)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(data) != `{"schema_version":1}` {
		t.Errorf("Unexpected data %q", data)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if data, _ := store.Load(ctx, key); data != nil {
		t.Error("Expected session to be deleted")
	}
}
