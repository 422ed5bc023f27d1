package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kingsley-usa/nexus/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// ErrAlreadyFavorited indicates the (user, movie) pair already exists.
var ErrAlreadyFavorited = errors.New("repository: already favorited")

// ErrNotFavorited indicates the (user, movie) pair does not exist.
var ErrNotFavorited = errors.New("repository: not favorited")

// ErrUsernameTaken indicates a registration attempt with a duplicate username.
var ErrUsernameTaken = errors.New("repository: username taken")

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Movies    *MoviesRepository
	Genres    *GenresRepository
	Trending  *TrendingRepository
	Favorites *FavoritesRepository
	Users     *UsersRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Movies:    &MoviesRepository{pool: pool},
		Genres:    &GenresRepository{pool: pool},
		Trending:  &TrendingRepository{pool: pool},
		Favorites: &FavoritesRepository{pool: pool},
		Users:     &UsersRepository{pool: pool},
	}
}
