package reporting

import (
	"context"
	"database/sql"
	"time"

	"listenline/internal/calls"
)

// SQLRepository reads call records and the earnings ledger directly; it
// never touches the mutable listener counters.
type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository { return &SQLRepository{db: db} }

func (r *SQLRepository) ListCalls(ctx context.Context, listenerID string, from, to time.Time) ([]calls.Call, error) {
	const q = `
SELECT id, caller_id, listener_id, call_type, status,
       rate_per_minute_minor, currency,
       duration_seconds, total_cost_minor,
       created_at, started_at, ended_at, updated_at
FROM calls
WHERE listener_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, listenerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calls.Call
	for rows.Next() {
		var c calls.Call
		if err := rows.Scan(
			&c.ID, &c.CallerID, &c.ListenerID, &c.Type, &c.Status,
			&c.RatePerMinuteMinor, &c.Currency,
			&c.DurationSeconds, &c.TotalCostMinor,
			&c.CreatedAt, &c.StartedAt, &c.EndedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLRepository) ListEarnings(ctx context.Context, listenerID string, from, to time.Time) ([]EarningsEntry, error) {
	const q = `
SELECT call_id, listener_id, minutes, amount_minor, currency, created_at
FROM listener_earnings
WHERE listener_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, listenerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EarningsEntry
	for rows.Next() {
		var e EarningsEntry
		if err := rows.Scan(&e.CallID, &e.ListenerID, &e.Minutes, &e.AmountMinor, &e.Currency, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
