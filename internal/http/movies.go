package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kingsley-usa/nexus/internal/cache"
	"github.com/kingsley-usa/nexus/internal/domain"
	"github.com/kingsley-usa/nexus/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type genreResponse struct {
	ID     int64  `json:"id"`
	TMDbID int64  `json:"tmdbId"`
	Name   string `json:"name"`
}

type movieResponse struct {
	ID           int64           `json:"id"`
	TMDbID       int64           `json:"tmdbId"`
	Title        string          `json:"title"`
	Overview     string          `json:"overview"`
	ReleaseDate  *string         `json:"releaseDate"`
	PosterPath   *string         `json:"posterPath"`
	BackdropPath *string         `json:"backdropPath"`
	VoteAverage  float32         `json:"voteAverage"`
	VoteCount    int             `json:"voteCount"`
	Popularity   float32         `json:"popularity"`
	Genres       []genreResponse `json:"genres"`
}

type movieListResponse struct {
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Items []movieResponse `json:"items"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	filters, err := buildMovieFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	key := cache.Key("movies", filterParams(filters))
	var resp movieListResponse
	cacheErr := s.cache.GetOrCompute(r.Context(), key, s.ttls.Search, &resp, func(ctx context.Context) (interface{}, error) {
		result, err := s.repo.Movies.List(ctx, filters)
		if err != nil {
			return nil, err
		}
		return toMovieListResponse(result.Items, result.Total, filters.Page), nil
	})
	if cacheErr != nil {
		s.logger.Printf("list movies error: %v", cacheErr)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list movies")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	filters, err := buildMovieFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		filters.Query = &q
	}

	key := cache.Key("search", filterParams(filters))
	var resp movieListResponse
	cacheErr := s.cache.GetOrCompute(r.Context(), key, s.ttls.Search, &resp, func(ctx context.Context) (interface{}, error) {
		result, err := s.repo.Movies.List(ctx, filters)
		if err != nil {
			return nil, err
		}
		return toMovieListResponse(result.Items, result.Total, filters.Page), nil
	})
	if cacheErr != nil {
		s.logger.Printf("search error: %v", cacheErr)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Search failed")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMovieDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid movie id")
		return
	}

	key := cache.Key(fmt.Sprintf("movies/%d", id), nil)
	var resp movieResponse
	cacheErr := s.cache.GetOrCompute(r.Context(), key, s.ttls.Detail, &resp, func(ctx context.Context) (interface{}, error) {
		movie, err := s.repo.Movies.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return toMovieResponse(movie), nil
	})
	if cacheErr != nil {
		if errors.Is(cacheErr, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("movie detail error: %v", cacheErr)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch movie")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	s.handleCategory(w, r, "movies/popular", s.ttls.Popular, s.repo.Movies.Popular)
}

func (s *Server) handleTopRated(w http.ResponseWriter, r *http.Request) {
	s.handleCategory(w, r, "movies/top-rated", s.ttls.TopRated, s.repo.Movies.TopRated)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	s.handleCategory(w, r, "movies/upcoming", s.ttls.Popular, s.repo.Movies.Upcoming)
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	s.handleCategory(w, r, "movies/now-playing", s.ttls.Popular, s.repo.Movies.NowPlaying)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	s.handleCategory(w, r, "movies/recent", s.ttls.Popular, s.repo.Movies.Recent)
}

// handleCategory serves the fixed collection shortcuts through the cache.
func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request, endpoint string, ttl time.Duration,
	fetch func(context.Context, int) ([]domain.Movie, error)) {

	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	key := cache.Key(endpoint, params)
	var resp movieListResponse
	cacheErr := s.cache.GetOrCompute(r.Context(), key, ttl, &resp, func(ctx context.Context) (interface{}, error) {
		movies, err := fetch(ctx, limit)
		if err != nil {
			return nil, err
		}
		return toMovieListResponse(movies, int64(len(movies)), 1), nil
	})
	if cacheErr != nil {
		s.logger.Printf("%s error: %v", endpoint, cacheErr)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list movies")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	period := domain.TrendingPeriod(chi.URLParam(r, "period"))
	if !period.Valid() {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "period must be day or week")
		return
	}

	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	key := cache.Key("movies/trending/"+string(period), params)
	var resp movieListResponse
	cacheErr := s.cache.GetOrCompute(r.Context(), key, s.ttls.Trending, &resp, func(ctx context.Context) (interface{}, error) {
		movies, err := s.repo.Trending.MoviesForLatestSnapshot(ctx, period, limit)
		if err != nil {
			return nil, err
		}
		return toMovieListResponse(movies, int64(len(movies)), 1), nil
	})
	if cacheErr != nil {
		s.logger.Printf("trending %s error: %v", period, cacheErr)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list trending movies")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	key := cache.Key("genres", nil)
	var resp []genreResponse
	cacheErr := s.cache.GetOrCompute(r.Context(), key, s.ttls.TopRated, &resp, func(ctx context.Context) (interface{}, error) {
		genres, err := s.repo.Genres.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]genreResponse, 0, len(genres))
		for _, g := range genres {
			out = append(out, toGenreResponse(g))
		}
		return out, nil
	})
	if cacheErr != nil {
		s.logger.Printf("list genres error: %v", cacheErr)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list genres")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenreDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid genre id")
		return
	}

	key := cache.Key(fmt.Sprintf("genres/%d", id), nil)
	var resp genreResponse
	cacheErr := s.cache.GetOrCompute(r.Context(), key, s.ttls.TopRated, &resp, func(ctx context.Context) (interface{}, error) {
		genre, err := s.repo.Genres.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return toGenreResponse(genre), nil
	})
	if cacheErr != nil {
		if errors.Is(cacheErr, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("genre detail error: %v", cacheErr)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch genre")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func buildMovieFilters(query url.Values) (repository.MovieListFilters, error) {
	var filters repository.MovieListFilters

	if val := strings.TrimSpace(query.Get("genre")); val != "" {
		genreID, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return filters, fmt.Errorf("invalid genre value")
		}
		filters.GenreID = &genreID
	}
	if val := strings.TrimSpace(query.Get("year")); val != "" {
		year, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid year value")
		}
		filters.Year = &year
	}
	if val := strings.TrimSpace(query.Get("min_rating")); val != "" {
		rating, err := strconv.ParseFloat(val, 32)
		if err != nil || rating < 0 || rating > 10 {
			return filters, fmt.Errorf("invalid min_rating value")
		}
		r32 := float32(rating)
		filters.MinRating = &r32
	}
	if val := strings.TrimSpace(query.Get("max_rating")); val != "" {
		rating, err := strconv.ParseFloat(val, 32)
		if err != nil || rating < 0 || rating > 10 {
			return filters, fmt.Errorf("invalid max_rating value")
		}
		r32 := float32(rating)
		filters.MaxRating = &r32
	}
	if val := strings.TrimSpace(query.Get("page")); val != "" {
		page, err := strconv.Atoi(val)
		if err != nil || page < 1 {
			return filters, fmt.Errorf("invalid page value")
		}
		filters.Page = page
	}
	limit, err := parseLimit(query)
	if err != nil {
		return filters, err
	}
	filters.Limit = limit
	return filters, nil
}

func parseLimit(query url.Values) (int, error) {
	val := strings.TrimSpace(query.Get("limit"))
	if val == "" {
		return 20, nil
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid limit value")
	}
	if limit > 100 {
		limit = 100
	}
	return limit, nil
}

// filterParams rebuilds the canonical query parameters from parsed
// filters so equivalent requests share one cache key.
func filterParams(filters repository.MovieListFilters) url.Values {
	params := url.Values{}
	if filters.Query != nil {
		params.Set("q", *filters.Query)
	}
	if filters.GenreID != nil {
		params.Set("genre", strconv.FormatInt(*filters.GenreID, 10))
	}
	if filters.Year != nil {
		params.Set("year", strconv.Itoa(*filters.Year))
	}
	if filters.MinRating != nil {
		params.Set("min_rating", strconv.FormatFloat(float64(*filters.MinRating), 'f', -1, 32))
	}
	if filters.MaxRating != nil {
		params.Set("max_rating", strconv.FormatFloat(float64(*filters.MaxRating), 'f', -1, 32))
	}
	page := filters.Page
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(filters.Limit))
	return params
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func toMovieListResponse(movies []domain.Movie, total int64, page int) movieListResponse {
	items := make([]movieResponse, 0, len(movies))
	for _, movie := range movies {
		items = append(items, toMovieResponse(movie))
	}
	return movieListResponse{Total: total, Page: page, Items: items}
}

func toMovieResponse(movie domain.Movie) movieResponse {
	resp := movieResponse{
		ID:           movie.ID,
		TMDbID:       movie.TMDbID,
		Title:        movie.Title,
		Overview:     movie.Overview,
		PosterPath:   movie.PosterPath,
		BackdropPath: movie.BackdropPath,
		VoteAverage:  movie.VoteAverage,
		VoteCount:    movie.VoteCount,
		Popularity:   movie.Popularity,
		Genres:       make([]genreResponse, 0, len(movie.Genres)),
	}
	if movie.ReleaseDate != nil {
		formatted := movie.ReleaseDate.Format("2006-01-02")
		resp.ReleaseDate = &formatted
	}
	for _, g := range movie.Genres {
		resp.Genres = append(resp.Genres, toGenreResponse(g))
	}
	return resp
}

func toGenreResponse(g domain.Genre) genreResponse {
	return genreResponse{ID: g.ID, TMDbID: g.TMDbID, Name: g.Name}
}
