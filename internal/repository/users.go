package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kingsley-usa/nexus/internal/domain"
)

// UsersRepository persists account rows. Credential mechanics live in the
// auth service; this layer only stores the hash it is given.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const uniqueViolation = "23505"

// Create inserts a new user and returns the stored entity. A duplicate
// username maps to ErrUsernameTaken.
func (r *UsersRepository) Create(ctx context.Context, username, email, passwordHash string) (domain.User, error) {
	const query = `
        INSERT INTO users (username, email, password_hash)
        VALUES ($1,$2,$3)
        RETURNING id, username, email, password_hash, created_at
    `
	var user domain.User
	err := r.pool.QueryRow(ctx, query, username, email, passwordHash).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetByUsername fetches a user by username.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	const query = `
        SELECT id, username, email, password_hash, created_at
        FROM users WHERE username = $1
    `
	var user domain.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const query = `
        SELECT id, username, email, password_hash, created_at
        FROM users WHERE id = $1
    `
	var user domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}
