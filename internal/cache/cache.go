package cache

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"
)

// KV is the minimal key-value contract the cache needs. RedisKV is the
// production implementation; tests substitute an in-memory fake.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Cache is a read-through TTL cache for the public catalog read surface.
// Expiry is purely time-based; ingestion runs never purge entries.
type Cache struct {
	kv     KV
	logger *log.Logger
}

// New constructs a Cache over the provided key-value store.
func New(kv KV, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{kv: kv, logger: logger}
}

// GetOrCompute returns the cached value for key when present and fresh,
// otherwise invokes compute, stores its result with ttl, and returns it.
// compute errors propagate to the caller and nothing is stored. Backing
// store errors degrade to a miss so the cache stays transparent.
//
// Concurrent misses on the same key may each invoke compute; compute is a
// pure read, so the duplicate work is a cost, not a correctness issue.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, dest interface{}, compute func(context.Context) (interface{}, error)) error {
	cached, found, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Printf("cache: get %s: %v", key, err)
	} else if found {
		if err := json.Unmarshal([]byte(cached), dest); err == nil {
			return nil
		}
		c.logger.Printf("cache: discarding undecodable entry %s", key)
	}

	value, err := compute(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.kv.Set(ctx, key, string(payload), ttl); err != nil {
		c.logger.Printf("cache: set %s: %v", key, err)
	}

	return json.Unmarshal(payload, dest)
}

// Key builds a deterministic cache key from an endpoint identity and its
// query parameters. Parameter order in the request never changes the key:
// names are sorted, and so are repeated values per name.
func Key(endpoint string, params url.Values) string {
	var b strings.Builder
	b.WriteString("nexus:v1:")
	b.WriteString(endpoint)

	if len(params) == 0 {
		return b.String()
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteByte('?')
	first := true
	for _, name := range names {
		values := append([]string(nil), params[name]...)
		sort.Strings(values)
		for _, value := range values {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(value))
		}
	}
	return b.String()
}

// TTLs carries the per-endpoint-class expiry policy.
type TTLs struct {
	Popular  time.Duration
	TopRated time.Duration
	Trending time.Duration
	Detail   time.Duration
	Search   time.Duration
}
