package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. Only the identifier is consumed by the
// catalog paths; credentials are handled by the auth service.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// FavoriteMovie joins a user to a movie they marked as favorite.
// The (user, movie) pair is unique at the store level.
type FavoriteMovie struct {
	UserID    uuid.UUID
	MovieID   int64
	CreatedAt time.Time
}
