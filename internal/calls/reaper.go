package calls

import (
	"context"
	"log/slog"
	"time"

	"listenline/internal/events"
)

// Reaper sweeps calls stuck in pending/ringing into missed so an
// unanswered invite cannot hold a listener's slot forever.
type Reaper struct {
	repo   Repository
	claims ClaimStore
	events *events.Service
	log    *slog.Logger

	pendingTTL time.Duration
	interval   time.Duration

	clock func() time.Time
}

func NewReaper(repo Repository, claims ClaimStore, ev *events.Service, log *slog.Logger, pendingTTL, interval time.Duration) *Reaper {
	return &Reaper{
		repo:       repo,
		claims:     claims,
		events:     ev,
		log:        log,
		pendingTTL: pendingTTL,
		interval:   interval,
		clock:      time.Now,
	}
}

// Run loops until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	r.log.Info("call reaper started", "pending_ttl", r.pendingTTL.String(), "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			r.log.Info("call reaper stopped")
			return
		case <-t.C:
			if n, err := r.SweepOnce(ctx); err != nil {
				r.log.Error("call reaper sweep failed", "err", err)
			} else if n > 0 {
				r.log.Info("stale calls reaped", "count", n)
			}
		}
	}
}

// SweepOnce performs one sweep pass and returns the number of calls
// moved to missed.
func (r *Reaper) SweepOnce(ctx context.Context) (int, error) {
	now := r.clock().UTC()
	swept, err := r.repo.SweepStale(ctx, now.Add(-r.pendingTTL), now)
	if err != nil {
		return 0, err
	}
	for _, c := range swept {
		if r.claims != nil {
			if err := r.claims.Release(ctx, c.ListenerID); err != nil {
				r.log.Warn("claim release failed", "listener_id", c.ListenerID, "err", err)
			}
		}
		if r.events != nil {
			if err := r.events.EmitCallEvent(ctx, events.TypeCallMissed, c.ID, c.ListenerID, "", `{"reason":"pending_ttl_expired"}`); err != nil {
				r.log.Warn("missed event emit failed", "call_id", c.ID, "err", err)
			}
		}
	}
	return len(swept), nil
}
