package listener

import (
	"time"

	"listenline/internal/presence"
)

// Listener is the service-providing party, paid per minute.
//
// Field ownership: identity/profile fields (user link, display name,
// pricing) belong to profile management; liveness, availability and the
// aggregate counters are mutated exclusively by the call engine.
//
// Aggregate invariants:
// - total_calls / total_minutes / total_earnings_minor are monotonically
//   non-decreasing and only move via atomic SQL increments.
// - average_rating is recomputed from the full rating population, never
//   maintained incrementally.
//
// Money invariant reminder: amounts are minor units (int64), currency is
// an ISO 4217 code.
type Listener struct {
	ID          string `json:"id" db:"id"`
	UserID      string `json:"user_id" db:"user_id"`
	DisplayName string `json:"display_name" db:"display_name"`

	RatePerMinuteMinor int64  `json:"rate_per_minute_minor" db:"rate_per_minute_minor"`
	Currency           string `json:"currency" db:"currency"`

	// IsAvailable is the listener-controlled toggle. It is independent of
	// liveness: an available listener with a stale heartbeat is still not
	// acceptable for new calls.
	IsAvailable bool `json:"is_available" db:"is_available"`

	// LastActiveAt is written only by the heartbeat endpoint. "Online" is
	// never stored; it is derived from this timestamp at read time.
	LastActiveAt *time.Time `json:"last_active_at,omitempty" db:"last_active_at"`

	TotalCalls         int64   `json:"total_calls" db:"total_calls"`
	TotalMinutes       int64   `json:"total_minutes" db:"total_minutes"`
	TotalEarningsMinor int64   `json:"total_earnings_minor" db:"total_earnings_minor"`
	AverageRating      float64 `json:"average_rating" db:"average_rating"`
	TotalRatings       int64   `json:"total_ratings" db:"total_ratings"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Online derives liveness from the heartbeat timestamp.
func (l Listener) Online(now time.Time) bool {
	return presence.Online(now, l.LastActiveAt)
}

// CanAcceptCall is the availability gate: the listener must have opted
// in AND be live. Checked at call creation and at random-match time.
func CanAcceptCall(now time.Time, l Listener) bool {
	return l.IsAvailable && l.Online(now)
}

// Summary is the public shape returned to callers browsing/matching.
// It exposes the derived online flag but not the raw heartbeat.
type Summary struct {
	ID                 string  `json:"id"`
	DisplayName        string  `json:"display_name"`
	RatePerMinuteMinor int64   `json:"rate_per_minute_minor"`
	Currency           string  `json:"currency"`
	IsAvailable        bool    `json:"is_available"`
	IsOnline           bool    `json:"is_online"`
	TotalCalls         int64   `json:"total_calls"`
	TotalMinutes       int64   `json:"total_minutes"`
	AverageRating      float64 `json:"average_rating"`
	TotalRatings       int64   `json:"total_ratings"`
}

// Summarize builds the public view at a given instant.
func (l Listener) Summarize(now time.Time) Summary {
	return Summary{
		ID:                 l.ID,
		DisplayName:        l.DisplayName,
		RatePerMinuteMinor: l.RatePerMinuteMinor,
		Currency:           l.Currency,
		IsAvailable:        l.IsAvailable,
		IsOnline:           l.Online(now),
		TotalCalls:         l.TotalCalls,
		TotalMinutes:       l.TotalMinutes,
		AverageRating:      l.AverageRating,
		TotalRatings:       l.TotalRatings,
	}
}
