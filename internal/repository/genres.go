package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kingsley-usa/nexus/internal/domain"
)

// GenresRepository provides persistence helpers for genres and the
// movie-genre association set.
type GenresRepository struct {
	pool *pgxpool.Pool
}

// Upsert creates the genre if its tmdb_id is unseen, otherwise overwrites
// the name (upstream is authoritative for genre names).
func (r *GenresRepository) Upsert(ctx context.Context, tmdbID int64, name string) (domain.Genre, error) {
	const query = `
        INSERT INTO genres (tmdb_id, name)
        VALUES ($1,$2)
        ON CONFLICT (tmdb_id)
        DO UPDATE SET name = EXCLUDED.name
        RETURNING id, tmdb_id, name
    `
	var genre domain.Genre
	err := r.pool.QueryRow(ctx, query, tmdbID, name).Scan(&genre.ID, &genre.TMDbID, &genre.Name)
	if err != nil {
		return domain.Genre{}, fmt.Errorf("upsert genre %d: %w", tmdbID, err)
	}
	return genre, nil
}

// List returns all genres ordered by name.
func (r *GenresRepository) List(ctx context.Context) ([]domain.Genre, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tmdb_id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	genres := make([]domain.Genre, 0)
	for rows.Next() {
		var g domain.Genre
		if err := rows.Scan(&g.ID, &g.TMDbID, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// GetByID returns one genre or ErrNotFound.
func (r *GenresRepository) GetByID(ctx context.Context, id int64) (domain.Genre, error) {
	var g domain.Genre
	err := r.pool.QueryRow(ctx, `SELECT id, tmdb_id, name FROM genres WHERE id = $1`, id).
		Scan(&g.ID, &g.TMDbID, &g.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Genre{}, ErrNotFound
		}
		return domain.Genre{}, err
	}
	return g, nil
}

// ReplaceMovieGenres makes the movie's association set equal to genreIDs,
// deleting stale rows and inserting missing ones inside one transaction so
// no reader observes a partially-updated set.
func (r *GenresRepository) ReplaceMovieGenres(ctx context.Context, movieID int64, genreIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin genre replacement: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
        DELETE FROM movie_genres
        WHERE movie_id = $1 AND genre_id != ALL($2)
    `, movieID, genreIDs); err != nil {
		return fmt.Errorf("delete stale genre links: %w", err)
	}

	if len(genreIDs) > 0 {
		if _, err := tx.Exec(ctx, `
            INSERT INTO movie_genres (movie_id, genre_id)
            SELECT $1, unnest($2::bigint[])
            ON CONFLICT (movie_id, genre_id) DO NOTHING
        `, movieID, genreIDs); err != nil {
			return fmt.Errorf("insert genre links: %w", err)
		}
	}

	return tx.Commit(ctx)
}
