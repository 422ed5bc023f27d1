package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kingsley-usa/nexus/internal/domain"
)

// FavoritesRepository persists the user-movie favorites relation.
// Favorites are user-specific and therefore never cached.
type FavoritesRepository struct {
	pool *pgxpool.Pool
}

// Add records a favorite. Returns ErrNotFound when the movie does not
// exist and ErrAlreadyFavorited when the pair is already stored.
func (r *FavoritesRepository) Add(ctx context.Context, userID uuid.UUID, movieID int64) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, movieID).Scan(&exists); err != nil {
		return fmt.Errorf("check movie exists: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `
        INSERT INTO favorite_movies (user_id, movie_id)
        VALUES ($1,$2)
        ON CONFLICT (user_id, movie_id) DO NOTHING
    `, userID, movieID)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFavorited
	}
	return nil
}

// Remove deletes a favorite. Returns ErrNotFavorited when the pair was
// not stored.
func (r *FavoritesRepository) Remove(ctx context.Context, userID uuid.UUID, movieID int64) error {
	tag, err := r.pool.Exec(ctx, `
        DELETE FROM favorite_movies WHERE user_id = $1 AND movie_id = $2
    `, userID, movieID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFavorited
	}
	return nil
}

// ListMovies returns the user's favorite movies, most recently added first.
func (r *FavoritesRepository) ListMovies(ctx context.Context, userID uuid.UUID) ([]domain.Movie, error) {
	query := fmt.Sprintf(`
        SELECT %s
        FROM favorite_movies f
        JOIN movies m ON m.id = f.movie_id
        WHERE f.user_id = $1
        ORDER BY f.created_at DESC, m.id DESC
    `, prefixedMovieColumns("m"))

	rows, err := r.pool.Query(ctx, query, userID)
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

// Count returns how many favorites the user has stored.
func (r *FavoritesRepository) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM favorite_movies WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count favorites: %w", err)
	}
	return count, nil
}
