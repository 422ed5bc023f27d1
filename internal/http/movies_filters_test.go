package httpserver

import (
	"net/url"
	"testing"

	"github.com/kingsley-usa/nexus/internal/cache"
)

func TestBuildMovieFilters(t *testing.T) {
	values, _ := url.ParseQuery("genre=28&year=2010&min_rating=6.5&max_rating=9&page=3&limit=150")

	filters, err := buildMovieFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.GenreID == nil || *filters.GenreID != 28 {
		t.Fatalf("genre parse failed: %+v", filters.GenreID)
	}
	if filters.Year == nil || *filters.Year != 2010 {
		t.Fatalf("year parse failed: %+v", filters.Year)
	}
	if filters.MinRating == nil || *filters.MinRating != 6.5 {
		t.Fatalf("min_rating parse failed: %+v", filters.MinRating)
	}
	if filters.MaxRating == nil || *filters.MaxRating != 9 {
		t.Fatalf("max_rating parse failed: %+v", filters.MaxRating)
	}
	if filters.Page != 3 {
		t.Fatalf("page not parsed: %d", filters.Page)
	}
	if filters.Limit != 100 {
		t.Fatalf("limit not capped: %d", filters.Limit)
	}
}

func TestBuildMovieFilters_Invalid(t *testing.T) {
	cases := []string{
		"year=abc",
		"genre=drama",
		"min_rating=11",
		"max_rating=-1",
		"page=0",
		"limit=none",
	}
	for _, raw := range cases {
		values, _ := url.ParseQuery(raw)
		if _, err := buildMovieFilters(values); err == nil {
			t.Errorf("query %q accepted", raw)
		}
	}
}

func TestFilterParamsCanonicalKey(t *testing.T) {
	a, _ := url.ParseQuery("genre=28&page=2&limit=20")
	b, _ := url.ParseQuery("limit=20&page=2&genre=28")

	filtersA, err := buildMovieFilters(a)
	if err != nil {
		t.Fatalf("filters a: %v", err)
	}
	filtersB, err := buildMovieFilters(b)
	if err != nil {
		t.Fatalf("filters b: %v", err)
	}

	keyA := cache.Key("movies", filterParams(filtersA))
	keyB := cache.Key("movies", filterParams(filtersB))
	if keyA != keyB {
		t.Fatalf("equivalent queries produced different keys:\n%s\n%s", keyA, keyB)
	}

	// Defaults are baked into the key, so an explicit page=1 matches the
	// implicit one.
	c, _ := url.ParseQuery("genre=28&limit=20")
	filtersC, err := buildMovieFilters(c)
	if err != nil {
		t.Fatalf("filters c: %v", err)
	}
	d, _ := url.ParseQuery("genre=28&limit=20&page=1")
	filtersD, err := buildMovieFilters(d)
	if err != nil {
		t.Fatalf("filters d: %v", err)
	}
	if cache.Key("movies", filterParams(filtersC)) != cache.Key("movies", filterParams(filtersD)) {
		t.Fatalf("implicit and explicit page=1 produced different keys")
	}
}
