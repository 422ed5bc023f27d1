package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Error taxonomy for the upstream catalog API. The ingestion job decides
// retry behaviour from these sentinels.
var (
	// ErrNotFound is returned when upstream does not know the requested
	// category; the caller aborts that category and continues.
	ErrNotFound = errors.New("tmdb: not found")
	// ErrRateLimited is returned on HTTP 429; retryable with backoff.
	ErrRateLimited = errors.New("tmdb: rate limited")
	// ErrTransient covers 5xx responses and network-level failures.
	ErrTransient = errors.New("tmdb: transient upstream failure")
	// ErrMalformed is returned when the response body cannot be decoded.
	ErrMalformed = errors.New("tmdb: malformed response")
)

// Category identifies one upstream list endpoint.
type Category string

const (
	CategoryPopular      Category = "movie/popular"
	CategoryTopRated     Category = "movie/top_rated"
	CategoryUpcoming     Category = "movie/upcoming"
	CategoryNowPlaying   Category = "movie/now_playing"
	CategoryTrendingDay  Category = "trending/movie/day"
	CategoryTrendingWeek Category = "trending/movie/week"
)

// Categories is the fixed order the ingestion job walks.
var Categories = []Category{
	CategoryPopular,
	CategoryTopRated,
	CategoryUpcoming,
	CategoryNowPlaying,
	CategoryTrendingDay,
	CategoryTrendingWeek,
}

// RawMovie is one item of a category page as delivered by upstream.
type RawMovie struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Overview     string   `json:"overview"`
	ReleaseDate  string   `json:"release_date"`
	PosterPath   *string  `json:"poster_path"`
	BackdropPath *string  `json:"backdrop_path"`
	VoteAverage  float32  `json:"vote_average"`
	VoteCount    int      `json:"vote_count"`
	Popularity   float32  `json:"popularity"`
	GenreIDs     []int64  `json:"genre_ids"`
}

// Page is one page of a category listing. Pages past TotalPages carry an
// empty Items slice, not an error.
type Page struct {
	Items      []RawMovie
	TotalPages int
}

// Client defines the contract for querying the upstream movie catalog.
type Client interface {
	FetchPage(ctx context.Context, category Category, page int) (Page, error)
	FetchGenres(ctx context.Context) (map[int64]string, error)
}

// HTTPClient implements Client over HTTP with client-side rate limiting.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewHTTPClient constructs a new HTTP-backed catalog client. requestsPerSec
// bounds the outbound request rate to stay inside upstream quotas.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, requestsPerSec float64, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	if requestsPerSec <= 0 {
		return nil, fmt.Errorf("requestsPerSec must be positive")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		logger:  logger,
	}, nil
}

type pagePayload struct {
	Page         int        `json:"page"`
	Results      []RawMovie `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

// FetchPage retrieves one page of a category listing. page must be >= 1.
func (c *HTTPClient) FetchPage(ctx context.Context, category Category, page int) (Page, error) {
	if page < 1 {
		return Page{}, fmt.Errorf("page must be >= 1, got %d", page)
	}

	params := url.Values{}
	params.Set("language", "en-US")
	params.Set("page", strconv.Itoa(page))

	var payload pagePayload
	if err := c.getJSON(ctx, string(category), params, &payload); err != nil {
		return Page{}, err
	}

	items := payload.Results
	if items == nil {
		items = []RawMovie{}
	}
	return Page{Items: items, TotalPages: payload.TotalPages}, nil
}

type genresPayload struct {
	Genres []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// FetchGenres retrieves the genre id-to-name table. The ingestion job
// calls this once per run and caches the result in memory.
func (c *HTTPClient) FetchGenres(ctx context.Context) (map[int64]string, error) {
	params := url.Values{}
	params.Set("language", "en-US")

	var payload genresPayload
	if err := c.getJSON(ctx, "genre/movie/list", params, &payload); err != nil {
		return nil, err
	}

	table := make(map[int64]string, len(payload.Genres))
	for _, g := range payload.Genres {
		table[g.ID] = g.Name
	}
	return table, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("api_key", c.apiKey)
	rel := &url.URL{Path: "/" + path, RawQuery: params.Encode()}
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrMalformed, path, err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		c.logger.Printf("tmdb: upstream %d for %s", resp.StatusCode, path)
		return fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		return fmt.Errorf("tmdb: unexpected status %d for %s", resp.StatusCode, path)
	}
}
