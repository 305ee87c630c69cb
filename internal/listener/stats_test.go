package listener

import (
	"context"
	"sync"
	"testing"
	"time"
)

func seedListener(repo *MemoryRepo, id string) {
	repo.Put(Listener{
		ID:                 id,
		UserID:             "user-" + id,
		DisplayName:        "L " + id,
		RatePerMinuteMinor: 2000,
		Currency:           "USD",
	})
}

func TestApplyCompletedCall_IncrementsOnce(t *testing.T) {
	repo := NewMemoryRepo()
	seedListener(repo, "lst-1")
	agg := NewStatsAggregator(repo)

	applied, err := agg.ApplyCompletedCall(context.Background(), "lst-1", "call-1", 2, 4000, "USD")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied {
		t.Fatalf("expected first application to count")
	}

	// Redelivery of the same call must be a no-op.
	applied, err = agg.ApplyCompletedCall(context.Background(), "lst-1", "call-1", 2, 4000, "USD")
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if applied {
		t.Fatalf("expected redelivery to be idempotent")
	}

	l, err := repo.GetByID(context.Background(), "lst-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if l.TotalCalls != 1 || l.TotalMinutes != 2 || l.TotalEarningsMinor != 4000 {
		t.Fatalf("unexpected aggregates: calls=%d minutes=%d earnings=%d", l.TotalCalls, l.TotalMinutes, l.TotalEarningsMinor)
	}
}

func TestApplyCompletedCall_ConcurrentCompletionsDoNotLoseUpdates(t *testing.T) {
	repo := NewMemoryRepo()
	seedListener(repo, "lst-1")
	agg := NewStatsAggregator(repo)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			callID := "call-" + string(rune('a'+i))
			if _, err := agg.ApplyCompletedCall(context.Background(), "lst-1", callID, 1, 2000, "USD"); err != nil {
				t.Errorf("apply %s: %v", callID, err)
			}
		}(i)
	}
	wg.Wait()

	l, _ := repo.GetByID(context.Background(), "lst-1")
	if l.TotalCalls != n || l.TotalMinutes != n {
		t.Fatalf("lost updates: calls=%d minutes=%d, want %d", l.TotalCalls, l.TotalMinutes, n)
	}
}

func TestApplyCompletedCall_RejectsInvalidArgs(t *testing.T) {
	agg := NewStatsAggregator(NewMemoryRepo())

	if _, err := agg.ApplyCompletedCall(context.Background(), "", "call-1", 1, 100, "USD"); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := agg.ApplyCompletedCall(context.Background(), "lst-1", "", 1, 100, "USD"); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := agg.ApplyCompletedCall(context.Background(), "lst-1", "call-1", -1, 100, "USD"); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCanAcceptCall_RequiresBothFlagAndLiveness(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	fresh := now.Add(-5 * time.Second)
	stale := now.Add(-45 * time.Second)

	cases := []struct {
		name string
		l    Listener
		want bool
	}{
		{"available and fresh", Listener{IsAvailable: true, LastActiveAt: &fresh}, true},
		{"available but stale heartbeat", Listener{IsAvailable: true, LastActiveAt: &stale}, false},
		{"unavailable with fresh heartbeat", Listener{IsAvailable: false, LastActiveAt: &fresh}, false},
		{"available, never heartbeated", Listener{IsAvailable: true}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAcceptCall(now, tc.l); got != tc.want {
				t.Fatalf("CanAcceptCall = %v, want %v", got, tc.want)
			}
		})
	}
}
