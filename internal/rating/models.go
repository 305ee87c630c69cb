package rating

import "time"

// Rating is one caller's score for one completed call. A call can be
// rated at most once (UNIQUE on call_id), and only by its caller.
type Rating struct {
	ID          string    `json:"id" db:"id"`
	CallID      string    `json:"call_id" db:"call_id"`
	ListenerID  string    `json:"listener_id" db:"listener_id"`
	RaterUserID string    `json:"rater_user_id" db:"rater_user_id"`
	Score       int       `json:"score" db:"score"`
	Comment     string    `json:"comment,omitempty" db:"comment"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

const (
	MinScore = 1
	MaxScore = 5
)
