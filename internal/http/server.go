package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kingsley-usa/nexus/internal/auth"
	"github.com/kingsley-usa/nexus/internal/cache"
	"github.com/kingsley-usa/nexus/internal/config"
	"github.com/kingsley-usa/nexus/internal/mailer"
	"github.com/kingsley-usa/nexus/internal/repository"
	"github.com/kingsley-usa/nexus/internal/store"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	store   *store.Store
	repo    *repository.Repository
	cache   *cache.Cache
	ttls    cache.TTLs
	tokens  *auth.TokenIssuer
	mail    *mailer.Dispatcher
	logger  *log.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, c *cache.Cache, tokens *auth.TokenIssuer, mail *mailer.Dispatcher, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:    cfg,
		store:  st,
		repo:   repo,
		cache:  c,
		ttls:   ttlsFromConfig(cfg),
		tokens: tokens,
		mail:   mail,
		logger: logger,
		router: r,
	}
	s.registerRoutes()
	return s
}

func ttlsFromConfig(cfg config.Config) cache.TTLs {
	return cache.TTLs{
		Popular:  time.Duration(cfg.CachePopularTTLSecs) * time.Second,
		TopRated: time.Duration(cfg.CacheTopRatedTTLSecs) * time.Second,
		Trending: time.Duration(cfg.CacheTrendingTTLSecs) * time.Second,
		Detail:   time.Duration(cfg.CacheDetailTTLSecs) * time.Second,
		Search:   time.Duration(cfg.CacheSearchTTLSecs) * time.Second,
	}
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/genres", s.handleListGenres)
		r.Get("/genres/{id:[0-9]+}", s.handleGenreDetail)
		r.Get("/search", s.handleSearch)

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", s.handleListMovies)
			r.Get("/popular", s.handlePopular)
			r.Get("/top-rated", s.handleTopRated)
			r.Get("/upcoming", s.handleUpcoming)
			r.Get("/now-playing", s.handleNowPlaying)
			r.Get("/recent", s.handleRecent)
			r.Get("/trending/{period}", s.handleTrending)
			r.Get("/{id:[0-9]+}", s.handleMovieDetail)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.tokens))
			r.Get("/me", s.handleCurrentUser)
			r.Get("/me/favorites", s.handleListFavorites)
			r.Post("/me/favorites/{movieID:[0-9]+}", s.handleAddFavorite)
			r.Delete("/me/favorites/{movieID:[0-9]+}", s.handleRemoveFavorite)
		})
	})
}

// Start boots the HTTP server and blocks until shutdown or failure.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
