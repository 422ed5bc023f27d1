package cache

import (
	"context"
	"errors"
	"io"
	"log"
	"net/url"
	"testing"
	"time"
)

// fakeKV is an in-memory KV with an injectable clock so TTL expiry can
// be tested without sleeping.
type fakeKV struct {
	now     time.Time
	entries map[string]fakeEntry
	getErr  error
	setErr  error
	sets    int
}

type fakeEntry struct {
	value     string
	expiresAt time.Time
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		now:     time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
		entries: make(map[string]fakeEntry),
	}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	entry, ok := f.entries[key]
	if !ok || f.now.After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.entries[key] = fakeEntry{value: value, expiresAt: f.now.Add(ttl)}
	return nil
}

func (f *fakeKV) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type payload struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func TestGetOrCompute_HitSkipsCompute(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, discardLogger())
	ctx := context.Background()

	computes := 0
	compute := func(context.Context) (interface{}, error) {
		computes++
		return payload{Title: "cached", Count: computes}, nil
	}

	var first payload
	if err := c.GetOrCompute(ctx, "k", time.Minute, &first, compute); err != nil {
		t.Fatalf("first call: %v", err)
	}
	var second payload
	if err := c.GetOrCompute(ctx, "k", time.Minute, &second, compute); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if computes != 1 {
		t.Fatalf("compute invoked %d times, want 1", computes)
	}
	if second != first {
		t.Fatalf("hit returned %+v, want cached %+v", second, first)
	}
}

func TestGetOrCompute_ExpiryTriggersRecompute(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, discardLogger())
	ctx := context.Background()

	computes := 0
	compute := func(context.Context) (interface{}, error) {
		computes++
		return payload{Title: "v", Count: computes}, nil
	}

	var out payload
	if err := c.GetOrCompute(ctx, "k", 5*time.Minute, &out, compute); err != nil {
		t.Fatalf("warm: %v", err)
	}

	kv.advance(4 * time.Minute)
	if err := c.GetOrCompute(ctx, "k", 5*time.Minute, &out, compute); err != nil {
		t.Fatalf("within ttl: %v", err)
	}
	if computes != 1 {
		t.Fatalf("compute ran %d times inside the TTL, want 1", computes)
	}

	kv.advance(2 * time.Minute)
	if err := c.GetOrCompute(ctx, "k", 5*time.Minute, &out, compute); err != nil {
		t.Fatalf("after ttl: %v", err)
	}
	if computes != 2 {
		t.Fatalf("compute ran %d times after expiry, want 2", computes)
	}
	if out.Count != 2 {
		t.Fatalf("post-expiry value = %+v, want the recomputed one", out)
	}
}

func TestGetOrCompute_ComputeErrorNotCached(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, discardLogger())
	ctx := context.Background()

	boom := errors.New("backend down")
	var out payload
	err := c.GetOrCompute(ctx, "k", time.Minute, &out, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want compute error to propagate", err)
	}
	if kv.sets != 0 {
		t.Fatalf("failed compute was cached (%d sets)", kv.sets)
	}

	// A later successful compute fills the entry normally.
	err = c.GetOrCompute(ctx, "k", time.Minute, &out, func(context.Context) (interface{}, error) {
		return payload{Title: "ok"}, nil
	})
	if err != nil {
		t.Fatalf("recovery compute: %v", err)
	}
	if out.Title != "ok" || kv.sets != 1 {
		t.Fatalf("recovery not cached: %+v sets=%d", out, kv.sets)
	}
}

func TestGetOrCompute_BackingStoreErrorsDegradeToMiss(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("redis gone")
	kv.setErr = errors.New("redis gone")
	c := New(kv, discardLogger())

	var out payload
	err := c.GetOrCompute(context.Background(), "k", time.Minute, &out, func(context.Context) (interface{}, error) {
		return payload{Title: "direct"}, nil
	})
	if err != nil {
		t.Fatalf("cache must stay transparent when the store is down: %v", err)
	}
	if out.Title != "direct" {
		t.Fatalf("out = %+v, want computed value", out)
	}
}

func TestKey_ParamOrderIndependent(t *testing.T) {
	a := url.Values{}
	a.Set("genre", "28")
	a.Set("page", "2")

	b := url.Values{}
	b.Set("page", "2")
	b.Set("genre", "28")

	if Key("movies", a) != Key("movies", b) {
		t.Fatalf("keys differ for equivalent params:\n%s\n%s", Key("movies", a), Key("movies", b))
	}
}

func TestKey_Distinguishes(t *testing.T) {
	base := url.Values{"page": {"1"}}
	cases := []struct {
		name     string
		endpoint string
		params   url.Values
	}{
		{"different endpoint", "search", base},
		{"different value", "movies", url.Values{"page": {"2"}}},
		{"extra param", "movies", url.Values{"page": {"1"}, "year": {"2020"}}},
		{"no params", "movies", nil},
	}

	reference := Key("movies", base)
	for _, tc := range cases {
		if got := Key(tc.endpoint, tc.params); got == reference {
			t.Errorf("%s produced the same key %q", tc.name, got)
		}
	}
}

func TestKey_RepeatedValuesSorted(t *testing.T) {
	a := url.Values{"genre": {"28", "18"}}
	b := url.Values{"genre": {"18", "28"}}
	if Key("movies", a) != Key("movies", b) {
		t.Fatalf("repeated values not canonicalized")
	}
}

func TestKey_EscapesReservedCharacters(t *testing.T) {
	params := url.Values{"q": {"war & peace"}}
	key := Key("search", params)
	want := "nexus:v1:search?q=war+%26+peace"
	if key != want {
		t.Fatalf("key = %q, want %q", key, want)
	}
}
