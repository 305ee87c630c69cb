package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"listenline/internal/calls"
)

// MemoryRepo is a simple in-memory reporting repository for tests and
// early development. It enforces listener scoping on reads.

type MemoryRepo struct {
	mu sync.Mutex

	Calls    []calls.Call
	Earnings []EarningsEntry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCalls(ctx context.Context, listenerID string, from, to time.Time) ([]calls.Call, error) {
	if listenerID == "" {
		return nil, errors.New("listener_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.Call, 0)
	for _, c := range r.Calls {
		if c.ListenerID != listenerID {
			continue
		}
		if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) ListEarnings(ctx context.Context, listenerID string, from, to time.Time) ([]EarningsEntry, error) {
	if listenerID == "" {
		return nil, errors.New("listener_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EarningsEntry, 0)
	for _, e := range r.Earnings {
		if e.ListenerID != listenerID {
			continue
		}
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
