package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("calls: not found")
	ErrListenerBusy = errors.New("calls: listener has an active call")

	// ErrConflict means the conditional status write matched no row: a
	// concurrent transition won. Callers re-read and report an illegal
	// transition rather than retrying blindly.
	ErrConflict = errors.New("calls: concurrent transition conflict")
)

// TransitionWrite is the single atomic write applied on a status change.
// Billing fields ride along with the terminal status so a crash can
// never persist one without the other.
type TransitionWrite struct {
	StartedAt       *time.Time
	EndedAt         *time.Time
	DurationSeconds *int
	TotalCostMinor  *int64

	At time.Time
}

// Repository abstracts call persistence.
//
// Assumed tables:
// - calls, with a partial unique index backing the one-active-call rule:
//   CREATE UNIQUE INDEX calls_one_active_per_listener
//   ON calls (listener_id) WHERE status IN ('pending','ringing','ongoing')
type Repository interface {
	// InsertIfListenerFree inserts c only when the listener has no
	// non-terminal call, as one atomic read-check-write.
	// Returns ErrListenerBusy otherwise.
	InsertIfListenerFree(ctx context.Context, c Call) error

	GetByID(ctx context.Context, id string) (Call, error)

	// Transition writes the new status (plus timestamps/billing) only if
	// the call is still in the expected from status. Returns ErrConflict
	// when the guard fails.
	Transition(ctx context.Context, id string, from, to CallStatus, w TransitionWrite) (Call, error)

	// SweepStale moves calls stuck in pending/ringing since before cutoff
	// into missed, stamping ended_at, and returns the swept calls.
	SweepStale(ctx context.Context, cutoff, endedAt time.Time) ([]Call, error)
}

// SQLRepository is the Postgres-backed implementation.
type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository { return &SQLRepository{db: db} }

const callColumns = `
id, caller_id, listener_id, call_type, status,
rate_per_minute_minor, currency,
duration_seconds, total_cost_minor,
created_at, started_at, ended_at, updated_at`

func scanCall(sc interface{ Scan(...any) error }) (Call, error) {
	var c Call
	err := sc.Scan(
		&c.ID,
		&c.CallerID,
		&c.ListenerID,
		&c.Type,
		&c.Status,
		&c.RatePerMinuteMinor,
		&c.Currency,
		&c.DurationSeconds,
		&c.TotalCostMinor,
		&c.CreatedAt,
		&c.StartedAt,
		&c.EndedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return c, nil
}

func (r *SQLRepository) InsertIfListenerFree(ctx context.Context, c Call) error {
	// Single atomic read-check-write; the partial unique index closes the
	// race between two concurrent inserts passing the NOT EXISTS check.
	const q = `
INSERT INTO calls (
  id, caller_id, listener_id, call_type, status,
  rate_per_minute_minor, currency, created_at, updated_at
)
SELECT $1,$2,$3,$4,$5,$6,$7,$8,$8
WHERE NOT EXISTS (
  SELECT 1 FROM calls
  WHERE listener_id = $3 AND status IN ('pending','ringing','ongoing')
)
`
	res, err := r.db.ExecContext(ctx, q,
		c.ID,
		c.CallerID,
		c.ListenerID,
		c.Type,
		c.Status,
		c.RatePerMinuteMinor,
		c.Currency,
		c.CreatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrListenerBusy
	}
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (Call, error) {
	const q = `SELECT ` + callColumns + ` FROM calls WHERE id = $1`
	return scanCall(r.db.QueryRowContext(ctx, q, id))
}

func (r *SQLRepository) Transition(ctx context.Context, id string, from, to CallStatus, w TransitionWrite) (Call, error) {
	// COALESCE keeps already-set timestamps/billing untouched: once
	// written, started_at/ended_at/billing fields are immutable.
	const q = `
UPDATE calls
SET status = $3,
    started_at = COALESCE(started_at, $4),
    ended_at = COALESCE(ended_at, $5),
    duration_seconds = COALESCE(duration_seconds, $6),
    total_cost_minor = COALESCE(total_cost_minor, $7),
    updated_at = $8
WHERE id = $1 AND status = $2
RETURNING ` + callColumns + `
`
	c, err := scanCall(r.db.QueryRowContext(ctx, q,
		id,
		from,
		to,
		w.StartedAt,
		w.EndedAt,
		w.DurationSeconds,
		w.TotalCostMinor,
		w.At,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Call{}, ErrConflict
		}
		return Call{}, err
	}
	return c, nil
}

func (r *SQLRepository) SweepStale(ctx context.Context, cutoff, endedAt time.Time) ([]Call, error) {
	const q = `
UPDATE calls
SET status = 'missed', ended_at = $2, updated_at = $2
WHERE status IN ('pending','ringing') AND created_at < $1
RETURNING ` + callColumns + `
`
	rows, err := r.db.QueryContext(ctx, q, cutoff, endedAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
