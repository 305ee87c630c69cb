package presence

import (
	"context"
	"errors"
	"time"
)

// Liveness is derived, never stored. A listener is online iff its last
// heartbeat is younger than FreshnessWindow at the moment of the check.
// There is no connect/disconnect bookkeeping and no expiry job: silence
// alone takes a listener offline, which also covers ungraceful
// disconnects (crashed app, dropped network) with zero cleanup.
const FreshnessWindow = 30 * time.Second

// Online reports whether a heartbeat at lastActiveAt counts as live at now.
// A nil lastActiveAt means the listener has never sent a heartbeat and is
// therefore offline.
func Online(now time.Time, lastActiveAt *time.Time) bool {
	if lastActiveAt == nil {
		return false
	}
	return now.Sub(*lastActiveAt) <= FreshnessWindow
}

// HeartbeatStore persists heartbeat timestamps. The listener repository
// implements this.
type HeartbeatStore interface {
	TouchLastActive(ctx context.Context, listenerID string, at time.Time) error
}

var ErrInvalidListenerID = errors.New("presence: listener_id required")

// Recorder is the single mutator of liveness state.
type Recorder struct {
	store HeartbeatStore
	clock func() time.Time
}

func NewRecorder(store HeartbeatStore) *Recorder {
	return &Recorder{store: store, clock: time.Now}
}

// RecordHeartbeat sets last_active_at = now for the listener.
func (r *Recorder) RecordHeartbeat(ctx context.Context, listenerID string) error {
	if listenerID == "" {
		return ErrInvalidListenerID
	}
	if r.store == nil {
		return errors.New("presence: store not configured")
	}
	return r.store.TouchLastActive(ctx, listenerID, r.clock().UTC())
}
