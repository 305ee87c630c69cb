package calls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"listenline/internal/events"
	"listenline/internal/listener"
)

var base = time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeClaims struct {
	mu       sync.Mutex
	held     map[string]bool
	deny     bool
	releases []string
}

func newFakeClaims() *fakeClaims {
	return &fakeClaims{held: map[string]bool{}}
}

func (f *fakeClaims) Acquire(ctx context.Context, listenerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deny || f.held[listenerID] {
		return false, nil
	}
	f.held[listenerID] = true
	return true, nil
}

func (f *fakeClaims) Release(ctx context.Context, listenerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, listenerID)
	f.releases = append(f.releases, listenerID)
	return nil
}

type fixture struct {
	svc       *Service
	calls     *MemoryRepo
	listeners *listener.MemoryRepo
	eventRepo *events.MemoryRepo
	claims    *fakeClaims
	clock     *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{t: base}
	callRepo := NewMemoryRepo()
	listeners := listener.NewMemoryRepo()
	eventRepo := events.NewMemoryRepo()
	ev := events.NewService(eventRepo, nil)
	claims := newFakeClaims()

	svc := NewService(callRepo, listeners, listener.NewStatsAggregator(listeners), ev, claims)
	svc.clock = clock.Now

	active := clock.Now()
	listeners.Put(listener.Listener{
		ID:                 "l1",
		UserID:             "listener-user",
		DisplayName:        "Asha",
		RatePerMinuteMinor: 2000,
		Currency:           "USD",
		IsAvailable:        true,
		LastActiveAt:       &active,
		CreatedAt:          active,
		UpdatedAt:          active,
	})
	return &fixture{svc: svc, calls: callRepo, listeners: listeners, eventRepo: eventRepo, claims: claims, clock: clock}
}

func (f *fixture) create(t *testing.T) Call {
	t.Helper()
	c, err := f.svc.CreateSession(context.Background(), "caller-user", CreateRequest{ListenerID: "l1", Type: CallTypeVoice})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return c
}

func TestCreateSession_CapturesRateAtBooking(t *testing.T) {
	f := newFixture(t)
	c := f.create(t)

	if c.Status != CallStatusPending {
		t.Fatalf("status = %s, want pending", c.Status)
	}
	if c.RatePerMinuteMinor != 2000 || c.Currency != "USD" {
		t.Fatalf("rate snapshot = %d %s, want 2000 USD", c.RatePerMinuteMinor, c.Currency)
	}
	if c.DurationSeconds != nil || c.TotalCostMinor != nil {
		t.Fatalf("new call must have no billing fields")
	}

	// A later rate change must not touch the snapshot.
	f.listeners.Listeners["l1"].RatePerMinuteMinor = 9999
	got, err := f.svc.GetForParty(context.Background(), "caller-user", c.ID)
	if err != nil {
		t.Fatalf("GetForParty: %v", err)
	}
	if got.RatePerMinuteMinor != 2000 {
		t.Fatalf("rate snapshot changed to %d", got.RatePerMinuteMinor)
	}
}

func TestCreateSession_GateRejections(t *testing.T) {
	t.Run("unknown listener", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateSession(context.Background(), "caller-user", CreateRequest{ListenerID: "nope", Type: CallTypeVoice})
		if !errors.Is(err, ErrListenerNotFound) {
			t.Fatalf("err = %v, want ErrListenerNotFound", err)
		}
	})

	t.Run("availability toggled off", func(t *testing.T) {
		f := newFixture(t)
		f.listeners.Listeners["l1"].IsAvailable = false
		_, err := f.svc.CreateSession(context.Background(), "caller-user", CreateRequest{ListenerID: "l1", Type: CallTypeVoice})
		if !errors.Is(err, ErrListenerUnavailable) {
			t.Fatalf("err = %v, want ErrListenerUnavailable", err)
		}
	})

	t.Run("stale heartbeat", func(t *testing.T) {
		f := newFixture(t)
		stale := base.Add(-31 * time.Second)
		f.listeners.Listeners["l1"].LastActiveAt = &stale
		_, err := f.svc.CreateSession(context.Background(), "caller-user", CreateRequest{ListenerID: "l1", Type: CallTypeVoice})
		if !errors.Is(err, ErrListenerUnavailable) {
			t.Fatalf("err = %v, want ErrListenerUnavailable", err)
		}
	})

	t.Run("bad call type", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateSession(context.Background(), "caller-user", CreateRequest{ListenerID: "l1", Type: "video"})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestCreateSession_OneActiveCallPerListener(t *testing.T) {
	f := newFixture(t)
	first := f.create(t)

	_, err := f.svc.CreateSession(context.Background(), "other-caller", CreateRequest{ListenerID: "l1", Type: CallTypeVoice})
	if !errors.Is(err, ErrListenerBusy) {
		t.Fatalf("err = %v, want ErrListenerBusy", err)
	}

	// Finishing the first call frees the listener again.
	if _, err := f.svc.Transition(context.Background(), "caller-user", first.ID, CallStatusCancelled, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.CreateSession(context.Background(), "other-caller", CreateRequest{ListenerID: "l1", Type: CallTypeVoice}); err != nil {
		t.Fatalf("second call after cancel: %v", err)
	}
}

func TestCreateSession_ClaimDeniedMeansBusy(t *testing.T) {
	f := newFixture(t)
	f.claims.deny = true
	_, err := f.svc.CreateSession(context.Background(), "caller-user", CreateRequest{ListenerID: "l1", Type: CallTypeVoice})
	if !errors.Is(err, ErrListenerBusy) {
		t.Fatalf("err = %v, want ErrListenerBusy", err)
	}
}

func TestTransition_FullLifecycleWithBilling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	f.clock.Advance(2 * time.Second)
	c2, err := f.svc.Transition(ctx, "listener-user", c.ID, CallStatusRinging, nil)
	if err != nil {
		t.Fatalf("to ringing: %v", err)
	}
	if c2.StartedAt != nil {
		t.Fatalf("ringing must not stamp started_at")
	}

	f.clock.Advance(3 * time.Second)
	c3, err := f.svc.Transition(ctx, "listener-user", c.ID, CallStatusOngoing, nil)
	if err != nil {
		t.Fatalf("to ongoing: %v", err)
	}
	if c3.StartedAt == nil || !c3.StartedAt.Equal(base.Add(5*time.Second)) {
		t.Fatalf("started_at = %v, want %v", c3.StartedAt, base.Add(5*time.Second))
	}

	f.clock.Advance(61 * time.Second)
	dur := 61
	c4, err := f.svc.Transition(ctx, "caller-user", c.ID, CallStatusCompleted, &dur)
	if err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if c4.EndedAt == nil || !c4.EndedAt.Equal(base.Add(66*time.Second)) {
		t.Fatalf("ended_at = %v, want %v", c4.EndedAt, base.Add(66*time.Second))
	}
	// 61s at 2000 minor/min bills 2 minutes.
	if c4.DurationSeconds == nil || *c4.DurationSeconds != 61 {
		t.Fatalf("duration_seconds = %v, want 61", c4.DurationSeconds)
	}
	if c4.TotalCostMinor == nil || *c4.TotalCostMinor != 4000 {
		t.Fatalf("total_cost_minor = %v, want 4000", c4.TotalCostMinor)
	}

	l, err := f.listeners.GetByID(ctx, "l1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if l.TotalCalls != 1 || l.TotalMinutes != 2 || l.TotalEarningsMinor != 4000 {
		t.Fatalf("aggregates = calls %d minutes %d earnings %d, want 1/2/4000", l.TotalCalls, l.TotalMinutes, l.TotalEarningsMinor)
	}

	if got := f.eventRepo.ByType(events.TypeCallCompleted); len(got) != 1 || got[0].CallID != c.ID {
		t.Fatalf("completed events = %+v, want one for %s", got, c.ID)
	}
	if len(f.claims.releases) != 1 || f.claims.releases[0] != "l1" {
		t.Fatalf("claim releases = %v, want [l1]", f.claims.releases)
	}
}

func TestTransition_CompletedWithoutDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	c2, err := f.svc.Transition(ctx, "caller-user", c.ID, CallStatusCompleted, nil)
	if err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if c2.Status != CallStatusCompleted || c2.EndedAt == nil {
		t.Fatalf("status/ended_at = %s/%v", c2.Status, c2.EndedAt)
	}
	if c2.DurationSeconds != nil || c2.TotalCostMinor != nil {
		t.Fatalf("billing fields must stay absent without a reported duration")
	}

	l, _ := f.listeners.GetByID(ctx, "l1")
	if l.TotalCalls != 0 || l.TotalEarningsMinor != 0 {
		t.Fatalf("no charge must mean no aggregate movement, got %d/%d", l.TotalCalls, l.TotalEarningsMinor)
	}
}

func TestTransition_IllegalEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	if _, err := f.svc.Transition(ctx, "caller-user", c.ID, CallStatusOngoing, nil); err != nil {
		t.Fatalf("to ongoing: %v", err)
	}

	// Backward edge.
	if _, err := f.svc.Transition(ctx, "caller-user", c.ID, CallStatusRinging, nil); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("ongoing->ringing err = %v, want ErrIllegalTransition", err)
	}

	// Unknown status string.
	if _, err := f.svc.Transition(ctx, "caller-user", c.ID, "paused", nil); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("unknown status err = %v, want ErrInvalidStatus", err)
	}
}

func TestTransition_TerminalIsFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	dur := 125
	if _, err := f.svc.Transition(ctx, "caller-user", c.ID, CallStatusCompleted, &dur); err != nil {
		t.Fatalf("to completed: %v", err)
	}

	// Replaying the terminal write must not move anything.
	if _, err := f.svc.Transition(ctx, "caller-user", c.ID, CallStatusCompleted, &dur); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("replay err = %v, want ErrIllegalTransition", err)
	}
	if _, err := f.svc.Transition(ctx, "caller-user", c.ID, CallStatusCancelled, nil); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("completed->cancelled err = %v, want ErrIllegalTransition", err)
	}

	l, _ := f.listeners.GetByID(ctx, "l1")
	if l.TotalCalls != 1 {
		t.Fatalf("total_calls = %d after replay, want 1", l.TotalCalls)
	}
	if got := f.eventRepo.ByType(events.TypeCallCompleted); len(got) != 1 {
		t.Fatalf("completed events = %d, want 1", len(got))
	}
}

func TestTransition_PartyAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	if _, err := f.svc.Transition(ctx, "stranger", c.ID, CallStatusCancelled, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.GetForParty(ctx, "stranger", c.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger read err = %v, want ErrForbidden", err)
	}

	// The listener acts through their user id, not the listener id.
	if _, err := f.svc.Transition(ctx, "listener-user", c.ID, CallStatusRejected, nil); err != nil {
		t.Fatalf("listener reject: %v", err)
	}
	if got := f.eventRepo.ByType(events.TypeCallRejected); len(got) != 1 {
		t.Fatalf("rejected events = %d, want 1", len(got))
	}
}

func TestTransition_UnknownCall(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Transition(context.Background(), "caller-user", "missing", CallStatusCancelled, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
