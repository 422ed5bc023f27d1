package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kingsley-usa/nexus/internal/auth"
	"github.com/kingsley-usa/nexus/internal/repository"
)

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	movies, err := s.repo.Favorites.ListMovies(r.Context(), userID)
	if err != nil {
		s.logger.Printf("failed to list favorites: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list favorites")
		return
	}

	s.respondJSON(w, http.StatusOK, toMovieListResponse(movies, int64(len(movies)), 1))
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	movieID, err := strconv.ParseInt(chi.URLParam(r, "movieID"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid movie id")
		return
	}

	if err := s.repo.Favorites.Add(r.Context(), userID, movieID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Movie not found")
		case errors.Is(err, repository.ErrAlreadyFavorited):
			s.respondError(w, http.StatusConflict, "ALREADY_FAVORITED", "Movie is already in favorites")
		default:
			s.logger.Printf("failed to add favorite: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add favorite")
		}
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]int64{"movieId": movieID})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	movieID, err := strconv.ParseInt(chi.URLParam(r, "movieID"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid movie id")
		return
	}

	if err := s.repo.Favorites.Remove(r.Context(), userID, movieID); err != nil {
		if errors.Is(err, repository.ErrNotFavorited) {
			s.respondError(w, http.StatusNotFound, "NOT_FAVORITED", "Movie is not in favorites")
			return
		}
		s.logger.Printf("failed to remove favorite: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to remove favorite")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
