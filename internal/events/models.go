package events

import "time"

// Event is an immutable, append-only record of a call-engine outcome.
//
// Invariants:
// - Events are never updated or deleted.
// - Emission is best-effort; do not block call-control flows on event
//   failures.
//
// The external notification/outbox subsystem consumes these rows (and
// the Redis channel) to deliver "call ended" / "rating received"
// pushes; this core only emits.
//
// Storage recommendation (Postgres):
// - Table call_events with an INSERT-only policy.
// - Optional: partition by time for retention.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the event.
	Type Type `json:"type" db:"type"`

	CallID     string `json:"call_id,omitempty" db:"call_id"`
	ListenerID string `json:"listener_id,omitempty" db:"listener_id"`

	// ActorUserID is the authenticated user causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Type string

const (
	TypeCallCompleted  Type = "call_completed"
	TypeCallMissed     Type = "call_missed"
	TypeCallRejected   Type = "call_rejected"
	TypeCallCancelled  Type = "call_cancelled"
	TypeRatingReceived Type = "rating_received"
)
