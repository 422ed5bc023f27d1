package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/kingsley-usa/nexus/internal/domain"
	"github.com/kingsley-usa/nexus/internal/repository"
	"github.com/kingsley-usa/nexus/internal/tmdb"
)

// Store is the slice of the catalog store the job writes to. It is
// satisfied by repositoryStore; tests substitute fakes.
type Store interface {
	Ping(ctx context.Context) error
	UpsertMovie(ctx context.Context, params repository.MovieUpsertParams) (domain.Movie, bool, error)
	UpsertGenre(ctx context.Context, tmdbID int64, name string) (domain.Genre, error)
	ReplaceMovieGenres(ctx context.Context, movieID int64, genreIDs []int64) error
	ClearTrendingSnapshot(ctx context.Context, period domain.TrendingPeriod, snapshotDate time.Time) error
	UpsertTrendingRank(ctx context.Context, params repository.TrendingUpsertParams) error
}

// Summary reports the outcome of a run. Partial failures are accumulated
// here instead of interrupting sibling work.
type Summary struct {
	Created        int
	Updated        int
	Skipped        int
	CategoryErrors map[tmdb.Category][]error
}

// HasCategoryErrors reports whether any category recorded an error.
func (s Summary) HasCategoryErrors() bool {
	for _, errs := range s.CategoryErrors {
		if len(errs) > 0 {
			return true
		}
	}
	return false
}

// HasAbortedCategories reports whether any category's page walk was cut
// short by an unrecoverable upstream error. Isolated page or item
// failures do not count; callers use this for their exit status.
func (s Summary) HasAbortedCategories() bool {
	for _, errs := range s.CategoryErrors {
		for _, err := range errs {
			if errors.Is(err, tmdb.ErrNotFound) {
				return true
			}
		}
	}
	return false
}

// Options tunes the job. Zero values fall back to defaults.
type Options struct {
	Categories  []tmdb.Category
	BackoffBase time.Duration
	BackoffCap  time.Duration
	MaxRetries  int
	Now         func() time.Time
	Logger      *log.Logger
}

// Job reconciles upstream category listings into the catalog store. It is
// a single-writer run-to-completion batch process; callers serialize runs.
type Job struct {
	store  Store
	client tmdb.Client
	opts   Options
}

// New constructs a Job. The job has no skip logic of its own; threshold
// gating belongs to the invoking command.
func New(store Store, client tmdb.Client, opts Options) *Job {
	if len(opts.Categories) == 0 {
		opts.Categories = tmdb.Categories
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = 8 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Job{store: store, client: client, opts: opts}
}

// Run walks every category in the fixed order, pulling up to
// pagesPerCategory pages from each and reconciling the results. Page and
// item failures are recorded in the Summary; only loss of store
// connectivity aborts the run.
func (j *Job) Run(ctx context.Context, pagesPerCategory int) (Summary, error) {
	if pagesPerCategory < 1 {
		return Summary{}, fmt.Errorf("pagesPerCategory must be >= 1, got %d", pagesPerCategory)
	}

	summary := Summary{CategoryErrors: make(map[tmdb.Category][]error)}

	if err := j.store.Ping(ctx); err != nil {
		return summary, fmt.Errorf("catalog store unreachable: %w", err)
	}

	// One genre table per run; lookup failures degrade to id-string names.
	genreNames, err := j.client.FetchGenres(ctx)
	if err != nil {
		j.opts.Logger.Printf("ingest: genre table unavailable, falling back to id names: %v", err)
		genreNames = map[int64]string{}
	}
	genreIDCache := make(map[int64]int64)

	// All items of one run share one snapshot date per period.
	snapshotDate := truncateToDay(j.opts.Now().UTC())

	for _, category := range j.opts.Categories {
		j.opts.Logger.Printf("ingest: syncing %s", category)

		// A snapshot belongs to exactly one run: drop the day's previous
		// rows so a re-run with fewer or reshuffled items leaves no stale
		// tail, and count accepted items so ranks stay contiguous even
		// when items are skipped.
		nextRank := 0
		if period, isTrending := trendingPeriod(category); isTrending {
			if err := j.store.ClearTrendingSnapshot(ctx, period, snapshotDate); err != nil {
				if fatal := j.checkStore(ctx, err); fatal != nil {
					return summary, fatal
				}
				summary.CategoryErrors[category] = append(summary.CategoryErrors[category],
					fmt.Errorf("clear snapshot: %w", err))
				continue
			}
		}

	pages:
		for page := 1; page <= pagesPerCategory; page++ {
			result, err := j.fetchPageWithRetry(ctx, category, page)
			if err != nil {
				if errors.Is(err, tmdb.ErrNotFound) {
					summary.CategoryErrors[category] = append(summary.CategoryErrors[category],
						fmt.Errorf("page %d: %w", page, err))
					break pages
				}
				if ctx.Err() != nil {
					return summary, ctx.Err()
				}
				summary.CategoryErrors[category] = append(summary.CategoryErrors[category],
					fmt.Errorf("page %d: %w", page, err))
				continue
			}
			if len(result.Items) == 0 {
				break
			}

			if fatal := j.reconcilePage(ctx, category, result.Items, genreNames, genreIDCache, snapshotDate, &nextRank, &summary); fatal != nil {
				return summary, fatal
			}
		}
	}

	j.opts.Logger.Printf("ingest: done (created=%d updated=%d skipped=%d categories_with_errors=%d)",
		summary.Created, summary.Updated, summary.Skipped, len(summary.CategoryErrors))
	return summary, nil
}

// fetchPageWithRetry applies the retry policy: transient errors get one
// immediate retry, then both transient and rate-limited errors share the
// capped-doubling backoff path for up to MaxRetries attempts.
func (j *Job) fetchPageWithRetry(ctx context.Context, category tmdb.Category, page int) (tmdb.Page, error) {
	result, err := j.client.FetchPage(ctx, category, page)
	if errors.Is(err, tmdb.ErrTransient) {
		result, err = j.client.FetchPage(ctx, category, page)
	}

	delay := j.opts.BackoffBase
	for attempt := 0; attempt < j.opts.MaxRetries; attempt++ {
		if err == nil || !(errors.Is(err, tmdb.ErrRateLimited) || errors.Is(err, tmdb.ErrTransient)) {
			break
		}
		if sleepErr := sleepCtx(ctx, delay); sleepErr != nil {
			return tmdb.Page{}, sleepErr
		}
		delay *= 2
		if delay > j.opts.BackoffCap {
			delay = j.opts.BackoffCap
		}
		result, err = j.client.FetchPage(ctx, category, page)
	}
	return result, err
}

func (j *Job) reconcilePage(ctx context.Context, category tmdb.Category, items []tmdb.RawMovie,
	genreNames map[int64]string, genreIDCache map[int64]int64, snapshotDate time.Time, nextRank *int, summary *Summary) error {

	period, isTrending := trendingPeriod(category)

	for _, item := range items {
		if !validRawMovie(item) {
			summary.Skipped++
			continue
		}

		movie, created, err := j.store.UpsertMovie(ctx, upsertParams(item))
		if err != nil {
			if fatal := j.checkStore(ctx, err); fatal != nil {
				return fatal
			}
			summary.CategoryErrors[category] = append(summary.CategoryErrors[category],
				fmt.Errorf("upsert movie %d: %w", item.ID, err))
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}

		if err := j.reconcileGenres(ctx, movie.ID, item.GenreIDs, genreNames, genreIDCache); err != nil {
			if fatal := j.checkStore(ctx, err); fatal != nil {
				return fatal
			}
			summary.CategoryErrors[category] = append(summary.CategoryErrors[category],
				fmt.Errorf("genres for movie %d: %w", item.ID, err))
		}

		if isTrending {
			// Ranks follow the accepted-item order, not the raw page
			// index, so a skipped item never leaves a gap in 1..N. A rank
			// is only consumed once its row is written.
			rank := *nextRank + 1
			err := j.store.UpsertTrendingRank(ctx, repository.TrendingUpsertParams{
				MovieID:      movie.ID,
				Period:       period,
				Rank:         rank,
				SnapshotDate: snapshotDate,
			})
			if err != nil {
				if fatal := j.checkStore(ctx, err); fatal != nil {
					return fatal
				}
				summary.CategoryErrors[category] = append(summary.CategoryErrors[category],
					fmt.Errorf("trending rank %d: %w", rank, err))
			} else {
				*nextRank = rank
			}
		}
	}
	return nil
}

// reconcileGenres upserts every genre the item references and replaces
// the movie's association set with exactly that list.
func (j *Job) reconcileGenres(ctx context.Context, movieID int64, genreTMDbIDs []int64,
	genreNames map[int64]string, genreIDCache map[int64]int64) error {

	ids := make([]int64, 0, len(genreTMDbIDs))
	for _, tmdbID := range genreTMDbIDs {
		id, ok := genreIDCache[tmdbID]
		if !ok {
			name, known := genreNames[tmdbID]
			if !known || name == "" {
				name = strconv.FormatInt(tmdbID, 10)
			}
			genre, err := j.store.UpsertGenre(ctx, tmdbID, name)
			if err != nil {
				return err
			}
			id = genre.ID
			genreIDCache[tmdbID] = id
		}
		ids = append(ids, id)
	}

	return j.store.ReplaceMovieGenres(ctx, movieID, ids)
}

// checkStore distinguishes store-connectivity loss (fatal to the run)
// from row-level failures (absorbed into the summary).
func (j *Job) checkStore(ctx context.Context, cause error) error {
	if err := j.store.Ping(ctx); err != nil {
		return fmt.Errorf("catalog store unreachable: %w", cause)
	}
	return nil
}

func validRawMovie(item tmdb.RawMovie) bool {
	if item.ID <= 0 || item.Title == "" {
		return false
	}
	// NaN compares false against every bound, so it has to be rejected
	// explicitly before the range checks.
	if math.IsNaN(float64(item.VoteAverage)) || item.VoteAverage < 0 || item.VoteAverage > 10 {
		return false
	}
	if item.VoteCount < 0 {
		return false
	}
	if math.IsNaN(float64(item.Popularity)) || item.Popularity < 0 {
		return false
	}
	return true
}

func upsertParams(item tmdb.RawMovie) repository.MovieUpsertParams {
	params := repository.MovieUpsertParams{
		TMDbID:       item.ID,
		Title:        item.Title,
		Overview:     item.Overview,
		PosterPath:   emptyToNil(item.PosterPath),
		BackdropPath: emptyToNil(item.BackdropPath),
		VoteAverage:  item.VoteAverage,
		VoteCount:    item.VoteCount,
		Popularity:   item.Popularity,
	}
	if item.ReleaseDate != "" {
		if parsed, err := time.Parse("2006-01-02", item.ReleaseDate); err == nil {
			params.ReleaseDate = &parsed
		}
	}
	return params
}

func trendingPeriod(category tmdb.Category) (domain.TrendingPeriod, bool) {
	switch category {
	case tmdb.CategoryTrendingDay:
		return domain.TrendingDay, true
	case tmdb.CategoryTrendingWeek:
		return domain.TrendingWeek, true
	default:
		return "", false
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func emptyToNil(ptr *string) *string {
	if ptr == nil || *ptr == "" {
		return nil
	}
	return ptr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
