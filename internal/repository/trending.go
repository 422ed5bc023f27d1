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

// TrendingRepository persists per-day snapshots of the trending feeds.
type TrendingRepository struct {
	pool *pgxpool.Pool
}

// TrendingUpsertParams captures one rank entry of a snapshot.
type TrendingUpsertParams struct {
	MovieID      int64
	Period       domain.TrendingPeriod
	Rank         int
	SnapshotDate time.Time
}

// UpsertRank writes one rank of a (period, snapshot date) snapshot.
// A movie can hold at most one rank per snapshot; callers clear the
// day's snapshot first so the run's ranks land on empty rows.
func (r *TrendingRepository) UpsertRank(ctx context.Context, params TrendingUpsertParams) error {
	const query = `
        INSERT INTO trending_movies (movie_id, period, rank, snapshot_date)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (period, snapshot_date, rank)
        DO UPDATE SET movie_id = EXCLUDED.movie_id
    `
	if _, err := r.pool.Exec(ctx, query, params.MovieID, string(params.Period), params.Rank, params.SnapshotDate); err != nil {
		return fmt.Errorf("upsert trending rank %d (%s): %w", params.Rank, params.Period, err)
	}
	return nil
}

// ClearSnapshot drops every rank stored for a (period, snapshot date).
// A sync run clears the day's snapshot before writing its own ranks so
// a re-run with fewer items never leaves a stale tail behind.
func (r *TrendingRepository) ClearSnapshot(ctx context.Context, period domain.TrendingPeriod, date time.Time) error {
	_, err := r.pool.Exec(ctx, `
        DELETE FROM trending_movies
        WHERE period = $1 AND snapshot_date = $2
    `, string(period), date)
	if err != nil {
		return fmt.Errorf("clear trending snapshot (%s): %w", period, err)
	}
	return nil
}

// LatestSnapshotDate returns the most recent snapshot date for a period.
func (r *TrendingRepository) LatestSnapshotDate(ctx context.Context, period domain.TrendingPeriod) (time.Time, error) {
	var date time.Time
	err := r.pool.QueryRow(ctx, `
        SELECT snapshot_date FROM trending_movies
        WHERE period = $1
        ORDER BY snapshot_date DESC
        LIMIT 1
    `, string(period)).Scan(&date)
	if err != nil {
		if err == pgx.ErrNoRows {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}
	return date, nil
}

// MoviesForLatestSnapshot returns the movies of the period's most recent
// snapshot in rank order. An empty slice means no snapshot exists yet.
func (r *TrendingRepository) MoviesForLatestSnapshot(ctx context.Context, period domain.TrendingPeriod, limit int) ([]domain.Movie, error) {
	date, err := r.LatestSnapshotDate(ctx, period)
	if err != nil {
		if err == ErrNotFound {
			return []domain.Movie{}, nil
		}
		return nil, err
	}

	query := fmt.Sprintf(`
        SELECT %s
        FROM trending_movies t
        JOIN movies m ON m.id = t.movie_id
        WHERE t.period = $1 AND t.snapshot_date = $2
        ORDER BY t.rank ASC
        LIMIT $3
    `, prefixedMovieColumns("m"))

	rows, err := r.pool.Query(ctx, query, string(period), date, clampLimit(limit))
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

// Ranks returns the rank sequence stored for a (period, snapshot date).
func (r *TrendingRepository) Ranks(ctx context.Context, period domain.TrendingPeriod, date time.Time) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT rank FROM trending_movies
        WHERE period = $1 AND snapshot_date = $2
        ORDER BY rank ASC
    `, string(period), date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranks []int
	for rows.Next() {
		var rank int
		if err := rows.Scan(&rank); err != nil {
			return nil, err
		}
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

func prefixedMovieColumns(alias string) string {
	cols := []string{
		"id", "tmdb_id", "title", "overview", "release_date", "poster_path",
		"backdrop_path", "vote_average", "vote_count", "popularity", "created_at", "updated_at",
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}
