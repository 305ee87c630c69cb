package presence

import (
	"context"
	"testing"
	"time"
)

func TestOnline_WithinWindow(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	cases := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"fresh", 5 * time.Second, true},
		{"exactly at window", 30 * time.Second, true},
		{"just past window", 30*time.Second + time.Millisecond, false},
		{"stale", 5 * time.Minute, false},
		{"zero age", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			at := now.Add(-tc.age)
			if got := Online(now, &at); got != tc.want {
				t.Fatalf("Online(age=%v) = %v, want %v", tc.age, got, tc.want)
			}
		})
	}
}

func TestOnline_NilLastActiveIsOffline(t *testing.T) {
	if Online(time.Now(), nil) {
		t.Fatalf("expected offline for nil last_active_at")
	}
}

type fakeHeartbeatStore struct {
	listenerID string
	at         time.Time
	calls      int
}

func (f *fakeHeartbeatStore) TouchLastActive(ctx context.Context, listenerID string, at time.Time) error {
	f.listenerID = listenerID
	f.at = at
	f.calls++
	return nil
}

func TestRecorder_RecordHeartbeat(t *testing.T) {
	store := &fakeHeartbeatStore{}
	r := NewRecorder(store)
	now := time.Unix(1700000000, 0).UTC()
	r.clock = func() time.Time { return now }

	if err := r.RecordHeartbeat(context.Background(), "lst-1"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if store.calls != 1 || store.listenerID != "lst-1" || !store.at.Equal(now) {
		t.Fatalf("unexpected store write: %+v", store)
	}
}

func TestRecorder_RejectsEmptyListenerID(t *testing.T) {
	r := NewRecorder(&fakeHeartbeatStore{})
	if err := r.RecordHeartbeat(context.Background(), ""); err != ErrInvalidListenerID {
		t.Fatalf("expected ErrInvalidListenerID, got %v", err)
	}
}
