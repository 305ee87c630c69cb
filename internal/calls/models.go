package calls

import "time"

// Call is one session between a caller and a listener.
//
// Economic terms are captured at creation time: rate_per_minute_minor
// and currency are copied from the listener row and never re-read, so a
// mid-call rate change cannot alter an in-flight session's price.
//
// Billing invariant: duration_seconds and total_cost_minor are mutually
// present or mutually absent; they are written exactly once, atomically
// with the completed-status write, and never overwritten.
type Call struct {
	ID         string `json:"id" db:"id"`
	CallerID   string `json:"caller_id" db:"caller_id"`
	ListenerID string `json:"listener_id" db:"listener_id"`

	Type CallType `json:"call_type" db:"call_type"`

	Status CallStatus `json:"status" db:"status"`

	RatePerMinuteMinor int64  `json:"rate_per_minute_minor" db:"rate_per_minute_minor"`
	Currency           string `json:"currency" db:"currency"`

	DurationSeconds *int   `json:"duration_seconds,omitempty" db:"duration_seconds"`
	TotalCostMinor  *int64 `json:"total_cost_minor,omitempty" db:"total_cost_minor"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type CallType string

const (
	CallTypeVoice CallType = "voice"
	CallTypeChat  CallType = "chat"
)

func (t CallType) Valid() bool {
	switch t {
	case CallTypeVoice, CallTypeChat:
		return true
	default:
		return false
	}
}

type CallStatus string

const (
	CallStatusPending   CallStatus = "pending"
	CallStatusRinging   CallStatus = "ringing"
	CallStatusOngoing   CallStatus = "ongoing"
	CallStatusCompleted CallStatus = "completed"
	CallStatusMissed    CallStatus = "missed"
	CallStatusRejected  CallStatus = "rejected"
	CallStatusCancelled CallStatus = "cancelled"
)

func (s CallStatus) Valid() bool {
	switch s {
	case CallStatusPending, CallStatusRinging, CallStatusOngoing,
		CallStatusCompleted, CallStatusMissed, CallStatusRejected, CallStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal statuses admit no further transitions.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusMissed, CallStatusRejected, CallStatusCancelled:
		return true
	default:
		return false
	}
}

// successors lists the legal forward edges of the session lifecycle:
// pending -> ringing -> ongoing -> terminal. Creation may also skip the
// ringing step (pending straight to ongoing), and every non-terminal
// state can end in any of the four outcomes. Self-transitions and
// backward edges are not listed and therefore illegal.
var successors = map[CallStatus]map[CallStatus]bool{
	CallStatusPending: {
		CallStatusRinging:   true,
		CallStatusOngoing:   true,
		CallStatusCompleted: true,
		CallStatusMissed:    true,
		CallStatusRejected:  true,
		CallStatusCancelled: true,
	},
	CallStatusRinging: {
		CallStatusOngoing:   true,
		CallStatusCompleted: true,
		CallStatusMissed:    true,
		CallStatusRejected:  true,
		CallStatusCancelled: true,
	},
	CallStatusOngoing: {
		CallStatusCompleted: true,
		CallStatusMissed:    true,
		CallStatusRejected:  true,
		CallStatusCancelled: true,
	},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to CallStatus) bool {
	return successors[from][to]
}
