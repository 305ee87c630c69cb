package calls

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"listenline/internal/events"
)

func TestReaper_SweepsStalePendingCalls(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	eventRepo := events.NewMemoryRepo()
	claims := newFakeClaims()

	now := base.Add(5 * time.Minute)
	r := NewReaper(repo, claims, events.NewService(eventRepo, nil), slog.Default(), time.Minute, 15*time.Second)
	r.clock = func() time.Time { return now }

	stale := Call{ID: "c-stale", CallerID: "u1", ListenerID: "l1", Type: CallTypeVoice, Status: CallStatusPending, CreatedAt: now.Add(-2 * time.Minute)}
	fresh := Call{ID: "c-fresh", CallerID: "u2", ListenerID: "l2", Type: CallTypeVoice, Status: CallStatusPending, CreatedAt: now.Add(-10 * time.Second)}
	live := Call{ID: "c-live", CallerID: "u3", ListenerID: "l3", Type: CallTypeVoice, Status: CallStatusOngoing, CreatedAt: now.Add(-20 * time.Minute)}
	for _, c := range []Call{stale, fresh, live} {
		if err := repo.InsertIfListenerFree(ctx, c); err != nil {
			t.Fatalf("seed %s: %v", c.ID, err)
		}
	}

	n, err := r.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}

	got, err := repo.GetByID(ctx, "c-stale")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != CallStatusMissed || got.EndedAt == nil || !got.EndedAt.Equal(now) {
		t.Fatalf("stale call = %s ended %v, want missed ended %v", got.Status, got.EndedAt, now)
	}

	// An ongoing call is never the reaper's business, however old.
	if got, _ := repo.GetByID(ctx, "c-live"); got.Status != CallStatusOngoing {
		t.Fatalf("ongoing call reaped to %s", got.Status)
	}
	if got, _ := repo.GetByID(ctx, "c-fresh"); got.Status != CallStatusPending {
		t.Fatalf("fresh call reaped to %s", got.Status)
	}

	if len(claims.releases) != 1 || claims.releases[0] != "l1" {
		t.Fatalf("claim releases = %v, want [l1]", claims.releases)
	}
	if got := eventRepo.ByType(events.TypeCallMissed); len(got) != 1 || got[0].CallID != "c-stale" {
		t.Fatalf("missed events = %+v, want one for c-stale", got)
	}
}

func TestReaper_SecondSweepIsQuiet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := base
	r := NewReaper(repo, nil, nil, slog.Default(), time.Minute, 15*time.Second)
	r.clock = func() time.Time { return now }

	if err := repo.InsertIfListenerFree(ctx, Call{ID: "c1", ListenerID: "l1", Status: CallStatusRinging, CreatedAt: now.Add(-2 * time.Minute)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if n, _ := r.SweepOnce(ctx); n != 1 {
		t.Fatalf("first sweep = %d, want 1", n)
	}
	if n, _ := r.SweepOnce(ctx); n != 0 {
		t.Fatalf("second sweep = %d, want 0", n)
	}
}
