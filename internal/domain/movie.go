package domain

import "time"

// Movie represents the canonical movie entity mirrored from TMDb.
// Rows are created and updated exclusively by the ingestion job; the
// TMDbID is immutable once a row exists.
type Movie struct {
	ID           int64
	TMDbID       int64
	Title        string
	Overview     string
	ReleaseDate  *time.Time
	PosterPath   *string
	BackdropPath *string
	VoteAverage  float32
	VoteCount    int
	Popularity   float32
	Genres       []Genre
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Genre is a movie category as defined by TMDb. The name is authoritative
// upstream and overwritten on re-sync.
type Genre struct {
	ID     int64
	TMDbID int64
	Name   string
}
