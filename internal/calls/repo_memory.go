package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory call store for tests and early development.
// It mirrors the SQL repository's conditional-write semantics.
type MemoryRepo struct {
	mu    sync.Mutex
	Calls map[string]*Call
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{Calls: map[string]*Call{}}
}

func (r *MemoryRepo) InsertIfListenerFree(ctx context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Calls {
		if existing.ListenerID == c.ListenerID && !existing.Status.Terminal() {
			return ErrListenerBusy
		}
	}
	cp := c
	r.Calls[c.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Calls[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	return *c, nil
}

func (r *MemoryRepo) Transition(ctx context.Context, id string, from, to CallStatus, w TransitionWrite) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Calls[id]
	if !ok || c.Status != from {
		return Call{}, ErrConflict
	}
	c.Status = to
	if c.StartedAt == nil && w.StartedAt != nil {
		c.StartedAt = w.StartedAt
	}
	if c.EndedAt == nil && w.EndedAt != nil {
		c.EndedAt = w.EndedAt
	}
	if c.DurationSeconds == nil && w.DurationSeconds != nil {
		c.DurationSeconds = w.DurationSeconds
	}
	if c.TotalCostMinor == nil && w.TotalCostMinor != nil {
		c.TotalCostMinor = w.TotalCostMinor
	}
	c.UpdatedAt = w.At
	return *c, nil
}

func (r *MemoryRepo) SweepStale(ctx context.Context, cutoff, endedAt time.Time) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.Calls {
		if (c.Status == CallStatusPending || c.Status == CallStatusRinging) && c.CreatedAt.Before(cutoff) {
			c.Status = CallStatusMissed
			end := endedAt
			c.EndedAt = &end
			c.UpdatedAt = endedAt
			out = append(out, *c)
		}
	}
	return out, nil
}
