package ingest

import (
	"context"
	"time"

	"github.com/kingsley-usa/nexus/internal/domain"
	"github.com/kingsley-usa/nexus/internal/repository"
	"github.com/kingsley-usa/nexus/internal/store"
)

// repositoryStore adapts the postgres repositories to the Store interface
// the job consumes.
type repositoryStore struct {
	st   *store.Store
	repo *repository.Repository
}

// NewRepositoryStore wires the job to the postgres-backed repositories.
func NewRepositoryStore(st *store.Store, repo *repository.Repository) Store {
	return &repositoryStore{st: st, repo: repo}
}

func (s *repositoryStore) Ping(ctx context.Context) error {
	return s.st.HealthCheck(ctx)
}

func (s *repositoryStore) UpsertMovie(ctx context.Context, params repository.MovieUpsertParams) (domain.Movie, bool, error) {
	return s.repo.Movies.Upsert(ctx, params)
}

func (s *repositoryStore) UpsertGenre(ctx context.Context, tmdbID int64, name string) (domain.Genre, error) {
	return s.repo.Genres.Upsert(ctx, tmdbID, name)
}

func (s *repositoryStore) ReplaceMovieGenres(ctx context.Context, movieID int64, genreIDs []int64) error {
	return s.repo.Genres.ReplaceMovieGenres(ctx, movieID, genreIDs)
}

func (s *repositoryStore) ClearTrendingSnapshot(ctx context.Context, period domain.TrendingPeriod, snapshotDate time.Time) error {
	return s.repo.Trending.ClearSnapshot(ctx, period, snapshotDate)
}

func (s *repositoryStore) UpsertTrendingRank(ctx context.Context, params repository.TrendingUpsertParams) error {
	return s.repo.Trending.UpsertRank(ctx, params)
}
