package rating

import (
	"context"
	"database/sql"
	"errors"

	"listenline/pkg/utils"
)

var (
	ErrAlreadyRated = errors.New("rating: call already rated")
)

// Repository persists ratings and keeps the listener's rating aggregates
// in step.
type Repository interface {
	// Insert stores the rating and recomputes the listener's
	// average_rating/total_ratings from the full population in the same
	// transaction. Returns ErrAlreadyRated when the call has one.
	Insert(ctx context.Context, r Rating) error

	ListByListener(ctx context.Context, listenerID string, limit int) ([]Rating, error)
}

type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository { return &SQLRepository{db: db} }

func (r *SQLRepository) Insert(ctx context.Context, rt Rating) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// UNIQUE(call_id) is the one-rating-per-call guard; DO NOTHING
		// turns the race into a zero-row insert instead of a driver error.
		const ins = `
INSERT INTO ratings (id, call_id, listener_id, rater_user_id, score, comment, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (call_id) DO NOTHING
`
		res, err := tx.ExecContext(ctx, ins,
			rt.ID, rt.CallID, rt.ListenerID, rt.RaterUserID, rt.Score, rt.Comment, rt.CreatedAt,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrAlreadyRated
		}

		// Full-population recompute, never an incremental rolling average.
		const recompute = `
UPDATE listeners l
SET average_rating = sub.avg, total_ratings = sub.cnt, updated_at = $2
FROM (
  SELECT COALESCE(AVG(score), 0) AS avg, COUNT(*) AS cnt
  FROM ratings WHERE listener_id = $1
) sub
WHERE l.id = $1
`
		_, err = tx.ExecContext(ctx, recompute, rt.ListenerID, rt.CreatedAt)
		return err
	})
}

func (r *SQLRepository) ListByListener(ctx context.Context, listenerID string, limit int) ([]Rating, error) {
	const q = `
SELECT id, call_id, listener_id, rater_user_id, score, comment, created_at
FROM ratings
WHERE listener_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, listenerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rating
	for rows.Next() {
		var rt Rating
		if err := rows.Scan(&rt.ID, &rt.CallID, &rt.ListenerID, &rt.RaterUserID, &rt.Score, &rt.Comment, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}
