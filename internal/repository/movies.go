package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kingsley-usa/nexus/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    id,
    tmdb_id,
    title,
    overview,
    release_date,
    poster_path,
    backdrop_path,
    vote_average,
    vote_count,
    popularity,
    created_at,
    updated_at
`

// MovieUpsertParams bundles the fields written by the ingestion job. The
// TMDb id is the conflict key and is never changed for an existing row.
type MovieUpsertParams struct {
	TMDbID       int64
	Title        string
	Overview     string
	ReleaseDate  *time.Time
	PosterPath   *string
	BackdropPath *string
	VoteAverage  float32
	VoteCount    int
	Popularity   float32
}

// MovieListFilters encapsulates the public list/search options.
type MovieListFilters struct {
	Query     *string
	GenreID   *int64
	Year      *int
	MinRating *float32
	MaxRating *float32
	Limit     int
	Page      int
}

// MovieListResult returns the paginated payload.
type MovieListResult struct {
	Items []domain.Movie
	Total int64
}

// Upsert creates the movie if its tmdb_id is unseen, otherwise overwrites
// the mutable fields. Reports whether a new row was inserted.
func (r *MoviesRepository) Upsert(ctx context.Context, params MovieUpsertParams) (domain.Movie, bool, error) {
	query := fmt.Sprintf(`
        INSERT INTO movies (tmdb_id, title, overview, release_date, poster_path, backdrop_path, vote_average, vote_count, popularity)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (tmdb_id)
        DO UPDATE SET
            title = EXCLUDED.title,
            overview = EXCLUDED.overview,
            release_date = EXCLUDED.release_date,
            poster_path = EXCLUDED.poster_path,
            backdrop_path = EXCLUDED.backdrop_path,
            vote_average = EXCLUDED.vote_average,
            vote_count = EXCLUDED.vote_count,
            popularity = EXCLUDED.popularity,
            updated_at = now()
        RETURNING %s, (xmax = 0) AS inserted
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query,
		params.TMDbID, params.Title, params.Overview, params.ReleaseDate,
		params.PosterPath, params.BackdropPath, params.VoteAverage, params.VoteCount, params.Popularity)

	var movie domain.Movie
	var inserted bool
	if err := scanMovieInto(row, &movie, &inserted); err != nil {
		return domain.Movie{}, false, err
	}
	return movie, inserted, nil
}

// GetByID fetches a movie with its genres by internal identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	row := r.pool.QueryRow(ctx, query, id)
	movie, err := scanMovie(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	movies := []domain.Movie{movie}
	if err := attachGenres(ctx, r.pool, movies); err != nil {
		return domain.Movie{}, err
	}
	return movies[0], nil
}

// GetByTMDbID fetches a movie by its upstream identifier.
func (r *MoviesRepository) GetByTMDbID(ctx context.Context, tmdbID int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE tmdb_id = $1`, movieColumns)
	row := r.pool.QueryRow(ctx, query, tmdbID)
	movie, err := scanMovie(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// Count returns the number of stored movies. The sync CLI uses it for its
// threshold gate.
func (r *MoviesRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return count, nil
}

// List returns movies matching the provided filters, newest-rated first,
// together with the unpaginated total.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) (MovieListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}
	if filters.Page < 1 {
		filters.Page = 1
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		q := "%" + strings.TrimSpace(*filters.Query) + "%"
		p1 := arg(q)
		p2 := arg(q)
		where = append(where, fmt.Sprintf("(title ILIKE %s OR overview ILIKE %s)", p1, p2))
	}
	if filters.GenreID != nil {
		where = append(where, fmt.Sprintf(
			"id IN (SELECT movie_id FROM movie_genres WHERE genre_id = %s)", arg(*filters.GenreID)))
	}
	if filters.Year != nil {
		where = append(where, fmt.Sprintf("EXTRACT(YEAR FROM release_date) = %s", arg(*filters.Year)))
	}
	if filters.MinRating != nil {
		where = append(where, fmt.Sprintf("vote_average >= %s", arg(*filters.MinRating)))
	}
	if filters.MaxRating != nil {
		where = append(where, fmt.Sprintf("vote_average <= %s", arg(*filters.MaxRating)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM movies" + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return MovieListResult{}, fmt.Errorf("count filtered movies: %w", err)
	}

	offset := (filters.Page - 1) * filters.Limit
	query := fmt.Sprintf(`SELECT %s FROM movies%s ORDER BY vote_average DESC, vote_count DESC, id DESC LIMIT %d OFFSET %d`,
		movieColumns, whereClause, filters.Limit, offset)

	items, err := r.queryMovies(ctx, query, args...)
	if err != nil {
		return MovieListResult{}, err
	}
	return MovieListResult{Items: items, Total: total}, nil
}

// Popular returns well-voted, well-rated movies for the homepage shortcut.
func (r *MoviesRepository) Popular(ctx context.Context, limit int) ([]domain.Movie, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM movies
        WHERE vote_count >= 100 AND vote_average >= 6.0
        ORDER BY popularity DESC, vote_average DESC, vote_count DESC
        LIMIT $1
    `, movieColumns)
	return r.queryMovies(ctx, query, clampLimit(limit))
}

// TopRated returns the highest-rated movies with a minimum vote threshold.
func (r *MoviesRepository) TopRated(ctx context.Context, limit int) ([]domain.Movie, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM movies
        WHERE vote_count >= 50
        ORDER BY vote_average DESC, vote_count DESC
        LIMIT $1
    `, movieColumns)
	return r.queryMovies(ctx, query, clampLimit(limit))
}

// Upcoming returns movies releasing today or later, earliest first.
func (r *MoviesRepository) Upcoming(ctx context.Context, limit int) ([]domain.Movie, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM movies
        WHERE release_date >= CURRENT_DATE
        ORDER BY release_date ASC, id ASC
        LIMIT $1
    `, movieColumns)
	return r.queryMovies(ctx, query, clampLimit(limit))
}

// NowPlaying returns movies released within the last 180 days, newest first.
func (r *MoviesRepository) NowPlaying(ctx context.Context, limit int) ([]domain.Movie, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM movies
        WHERE release_date >= CURRENT_DATE - INTERVAL '180 days'
          AND release_date <= CURRENT_DATE
        ORDER BY release_date DESC, id DESC
        LIMIT $1
    `, movieColumns)
	return r.queryMovies(ctx, query, clampLimit(limit))
}

// Recent returns already-released movies, newest first. Unlike
// NowPlaying there is no window: it walks back through the whole catalog.
func (r *MoviesRepository) Recent(ctx context.Context, limit int) ([]domain.Movie, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM movies
        WHERE release_date IS NOT NULL AND release_date <= CURRENT_DATE
        ORDER BY release_date DESC, id DESC
        LIMIT $1
    `, movieColumns)
	return r.queryMovies(ctx, query, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// queryMovies runs a movie-columns query and loads genre associations
// for every returned row.
func (r *MoviesRepository) queryMovies(ctx context.Context, query string, args ...interface{}) ([]domain.Movie, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachGenres(ctx, r.pool, items); err != nil {
		return nil, err
	}
	return items, nil
}

// attachGenres populates Genres on every movie in items with one query.
func attachGenres(ctx context.Context, pool *pgxpool.Pool, items []domain.Movie) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(items))
	for _, m := range items {
		ids = append(ids, m.ID)
	}

	rows, err := pool.Query(ctx, `
        SELECT mg.movie_id, g.id, g.tmdb_id, g.name
        FROM genres g
        JOIN movie_genres mg ON mg.genre_id = g.id
        WHERE mg.movie_id = ANY($1)
        ORDER BY g.name
    `, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	byMovie := make(map[int64][]domain.Genre, len(items))
	for rows.Next() {
		var movieID int64
		var g domain.Genre
		if err := rows.Scan(&movieID, &g.ID, &g.TMDbID, &g.Name); err != nil {
			return err
		}
		byMovie[movieID] = append(byMovie[movieID], g)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range items {
		items[i].Genres = byMovie[items[i].ID]
	}
	return nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.TMDbID,
		&movie.Title,
		&movie.Overview,
		&movie.ReleaseDate,
		&movie.PosterPath,
		&movie.BackdropPath,
		&movie.VoteAverage,
		&movie.VoteCount,
		&movie.Popularity,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}

func scanMovieInto(row pgx.Row, movie *domain.Movie, inserted *bool) error {
	return row.Scan(
		&movie.ID,
		&movie.TMDbID,
		&movie.Title,
		&movie.Overview,
		&movie.ReleaseDate,
		&movie.PosterPath,
		&movie.BackdropPath,
		&movie.VoteAverage,
		&movie.VoteCount,
		&movie.Popularity,
		&movie.CreatedAt,
		&movie.UpdatedAt,
		inserted,
	)
}
