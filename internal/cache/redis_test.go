package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestRedisKVSmoke exercises the real Redis backend when REDIS_ADDR is
// provided; CI without Redis skips it.
func TestRedisKVSmoke(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not provided")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := NewRedisKV(ctx, addr, os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer kv.Close()

	key := "nexus:test:" + uuid.NewString()

	if _, found, err := kv.Get(ctx, key); err != nil || found {
		t.Fatalf("fresh key: found=%v err=%v", found, err)
	}

	if err := kv.Set(ctx, key, `{"ok":true}`, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	value, found, err := kv.Get(ctx, key)
	if err != nil || !found {
		t.Fatalf("get after set: found=%v err=%v", found, err)
	}
	if value != `{"ok":true}` {
		t.Fatalf("value = %q", value)
	}

	if err := kv.Set(ctx, key, "gone", time.Millisecond); err != nil {
		t.Fatalf("set short ttl: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, found, err := kv.Get(ctx, key); err != nil || found {
		t.Fatalf("expired key still present: found=%v err=%v", found, err)
	}
}
