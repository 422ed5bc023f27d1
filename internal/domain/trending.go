package domain

import "time"

// TrendingPeriod distinguishes the two trending snapshots TMDb publishes.
type TrendingPeriod string

const (
	TrendingDay  TrendingPeriod = "day"
	TrendingWeek TrendingPeriod = "week"
)

// Valid reports whether p is one of the known periods.
func (p TrendingPeriod) Valid() bool {
	return p == TrendingDay || p == TrendingWeek
}

// TrendingMovie is one rank entry in a per-day snapshot of a trending
// feed. Ranks within a (period, snapshot date) pair form a contiguous
// sequence starting at 1.
type TrendingMovie struct {
	ID           int64
	MovieID      int64
	Period       TrendingPeriod
	Rank         int
	SnapshotDate time.Time
}
