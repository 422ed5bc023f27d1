package cache

import (
	"net/url"
	"strings"
	"testing"
)

func FuzzKey(f *testing.F) {
	f.Add("movies", "page", "1", "genre", "28")
	f.Add("search", "q", "war & peace", "year", "2020")
	f.Add("movies/trending/day", "limit", "", "", "")

	f.Fuzz(func(t *testing.T, endpoint, n1, v1, n2, v2 string) {
		forward := url.Values{}
		if n1 != "" {
			forward.Add(n1, v1)
		}
		if n2 != "" {
			forward.Add(n2, v2)
		}

		backward := url.Values{}
		if n2 != "" {
			backward.Add(n2, v2)
		}
		if n1 != "" {
			backward.Add(n1, v1)
		}

		a := Key(endpoint, forward)
		b := Key(endpoint, backward)
		if a != b {
			t.Fatalf("insertion order changed the key: %q vs %q", a, b)
		}
		if !strings.HasPrefix(a, "nexus:v1:") {
			t.Fatalf("key missing namespace prefix: %q", a)
		}
	})
}

func BenchmarkKey(b *testing.B) {
	params := url.Values{}
	params.Set("genre", "28")
	params.Set("year", "2014")
	params.Set("min_rating", "6.5")
	params.Set("page", "3")
	params.Set("limit", "20")

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Key("movies", params)
	}
}
