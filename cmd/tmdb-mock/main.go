package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
)

type movieEntry struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	VoteAverage  float32 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	Popularity   float32 `json:"popularity"`
	GenreIDs     []int64 `json:"genre_ids"`
}

type genreEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type fixture struct {
	// Pages per category, keyed by the endpoint path, e.g. "movie/popular".
	Categories map[string][][]movieEntry `json:"categories"`
	Genres     []genreEntry              `json:"genres"`
}

func main() {
	var (
		port = flag.String("port", "9099", "port to listen on")
		data = flag.String("data", "mock-tmdb.json", "path to mock data file")
	)
	flag.Parse()

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read mock data: %v", err)
	}

	var payload fixture
	if err := json.Unmarshal(file, &payload); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"genres": payload.Genres})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		category := strings.Trim(r.URL.Path, "/")
		pages, ok := payload.Categories[category]
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		results := []movieEntry{}
		if page <= len(pages) {
			results = pages[page-1]
		}
		writeJSON(w, map[string]interface{}{
			"page":          page,
			"results":       results,
			"total_pages":   len(pages),
			"total_results": totalResults(pages),
		})
	})

	addr := ":" + *port
	log.Printf("mock tmdb listening on %s (%d categories, %d genres)", addr, len(payload.Categories), len(payload.Genres))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func totalResults(pages [][]movieEntry) int {
	total := 0
	for _, page := range pages {
		total += len(page)
	}
	return total
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
