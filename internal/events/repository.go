package events

import (
	"context"
	"database/sql"
)

// SQLRepository persists events to Postgres.
//
// Assumed table: call_events (INSERT-only).
type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository { return &SQLRepository{db: db} }

func (r *SQLRepository) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO call_events (
  id, type, call_id, listener_id, actor_user_id, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.CallID,
		e.ListenerID,
		e.ActorUserID,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
