package listener

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"listenline/pkg/utils"
)

var (
	ErrNotFound        = errors.New("listener: not found")
	ErrInvalidArgument = errors.New("listener: invalid argument")
)

// Repository abstracts listener persistence for the call engine.
//
// IMPORTANT:
// - All aggregate writes must be atomic SQL increments; no
//   read-modify-write from application memory.
// - ListEligible applies the liveness window in the query so the
//   eligible set is computed at selection time.
type Repository interface {
	GetByID(ctx context.Context, id string) (Listener, error)
	GetByUserID(ctx context.Context, userID string) (Listener, error)

	TouchLastActive(ctx context.Context, id string, at time.Time) error
	SetAvailability(ctx context.Context, id string, available bool) error

	// ListEligible returns listeners with is_available = true and a
	// heartbeat at or after onlineSince, optionally excluding one id.
	ListEligible(ctx context.Context, onlineSince time.Time, excludeID string) ([]Listener, error)
}

// StatsRepository applies completed-call outcomes to listener aggregates.
type StatsRepository interface {
	// ApplyCompletedCall records minutes/earnings for a call exactly once.
	// Returns false when the call was already applied (idempotent replay).
	ApplyCompletedCall(ctx context.Context, listenerID, callID string, minutes int, amountMinor int64, currency string) (bool, error)
}

// SQLRepository is the Postgres-backed implementation.
//
// Assumed tables:
// - listeners
// - listener_earnings (append-only; UNIQUE (call_id) is the exactly-once
//   guard for aggregate application)
type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository { return &SQLRepository{db: db} }

const listenerColumns = `
id, user_id, display_name, rate_per_minute_minor, currency,
is_available, last_active_at,
total_calls, total_minutes, total_earnings_minor, average_rating, total_ratings,
created_at, updated_at`

func scanListener(row *sql.Row) (Listener, error) {
	var l Listener
	err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.DisplayName,
		&l.RatePerMinuteMinor,
		&l.Currency,
		&l.IsAvailable,
		&l.LastActiveAt,
		&l.TotalCalls,
		&l.TotalMinutes,
		&l.TotalEarningsMinor,
		&l.AverageRating,
		&l.TotalRatings,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Listener{}, ErrNotFound
		}
		return Listener{}, err
	}
	return l, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (Listener, error) {
	if id == "" {
		return Listener{}, ErrInvalidArgument
	}
	const q = `SELECT ` + listenerColumns + ` FROM listeners WHERE id = $1`
	return scanListener(r.db.QueryRowContext(ctx, q, id))
}

func (r *SQLRepository) GetByUserID(ctx context.Context, userID string) (Listener, error) {
	if userID == "" {
		return Listener{}, ErrInvalidArgument
	}
	const q = `SELECT ` + listenerColumns + ` FROM listeners WHERE user_id = $1`
	return scanListener(r.db.QueryRowContext(ctx, q, userID))
}

func (r *SQLRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return ErrInvalidArgument
	}
	const q = `UPDATE listeners SET last_active_at = $2, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	if id == "" {
		return ErrInvalidArgument
	}
	const q = `UPDATE listeners SET is_available = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, available)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) ListEligible(ctx context.Context, onlineSince time.Time, excludeID string) ([]Listener, error) {
	// The window comparison runs in the query so eligibility reflects the
	// state at selection time, not a cached snapshot.
	const q = `
SELECT ` + listenerColumns + `
FROM listeners
WHERE is_available = TRUE
  AND last_active_at IS NOT NULL
  AND last_active_at >= $1
  AND ($2 = '' OR id <> $2)
`
	rows, err := r.db.QueryContext(ctx, q, onlineSince, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Listener
	for rows.Next() {
		var l Listener
		if err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.DisplayName,
			&l.RatePerMinuteMinor,
			&l.Currency,
			&l.IsAvailable,
			&l.LastActiveAt,
			&l.TotalCalls,
			&l.TotalMinutes,
			&l.TotalEarningsMinor,
			&l.AverageRating,
			&l.TotalRatings,
			&l.CreatedAt,
			&l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ApplyCompletedCall inserts the earnings ledger row and bumps the
// aggregates in one transaction. The UNIQUE(call_id) constraint makes
// redelivery a no-op: increments apply only when the insert lands.
func (r *SQLRepository) ApplyCompletedCall(ctx context.Context, listenerID, callID string, minutes int, amountMinor int64, currency string) (bool, error) {
	if listenerID == "" || callID == "" {
		return false, ErrInvalidArgument
	}
	if minutes < 0 || amountMinor < 0 {
		return false, ErrInvalidArgument
	}

	applied := false
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const ins = `
INSERT INTO listener_earnings (id, listener_id, call_id, minutes, amount_minor, currency, created_at)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, now())
ON CONFLICT (call_id) DO NOTHING
`
		res, err := tx.ExecContext(ctx, ins, listenerID, callID, minutes, amountMinor, currency)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// Already applied for this call; leave aggregates untouched.
			return nil
		}

		const upd = `
UPDATE listeners
SET total_calls = total_calls + 1,
    total_minutes = total_minutes + $2,
    total_earnings_minor = total_earnings_minor + $3,
    updated_at = now()
WHERE id = $1
`
		res, err = tx.ExecContext(ctx, upd, listenerID, minutes, amountMinor)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		applied = true
		return nil
	})
	return applied, err
}
