package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kingsley-usa/nexus/internal/auth"
	"github.com/kingsley-usa/nexus/internal/domain"
	"github.com/kingsley-usa/nexus/internal/repository"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if errs := validateRegisterRequest(req); len(errs) > 0 {
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Request validation failed",
			Details: errs,
		})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Printf("failed to hash password: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register user")
		return
	}

	user, err := s.repo.Users.Create(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			s.respondError(w, http.StatusConflict, "USERNAME_TAKEN", "Username is already taken")
			return
		}
		s.logger.Printf("failed to create user: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register user")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Printf("failed to issue token: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register user")
		return
	}

	// Delivery happens in the background; registration never waits on it.
	s.mail.SendWelcome(user.Email, user.Username)

	s.respondJSON(w, http.StatusCreated, tokenResponse{Token: token, User: toUserResponse(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	user, err := s.repo.Users.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
			return
		}
		s.logger.Printf("failed to load user: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Printf("failed to issue token: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}

	s.respondJSON(w, http.StatusOK, tokenResponse{Token: token, User: toUserResponse(user)})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	user, err := s.repo.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		s.logger.Printf("failed to load user: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load profile")
		return
	}

	s.respondJSON(w, http.StatusOK, toUserResponse(user))
}

func validateRegisterRequest(req registerRequest) map[string]string {
	errs := make(map[string]string)
	if req.Username == "" {
		errs["username"] = "username is required"
	} else if len(req.Username) > 150 {
		errs["username"] = "username must be at most 150 characters"
	}
	if req.Email == "" {
		errs["email"] = "email is required"
	} else if !strings.Contains(req.Email, "@") {
		errs["email"] = "email is not valid"
	}
	if len(req.Password) < 8 {
		errs["password"] = "password must be at least 8 characters"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	}
}
