package rating

import (
	"context"
	"sort"
	"sync"

	"listenline/internal/listener"
)

// MemoryRepo is an in-memory rating store for tests and early
// development. It keeps the listener aggregates in step via the listener
// memory repo, mirroring the transactional SQL recompute.
type MemoryRepo struct {
	mu        sync.Mutex
	byCall    map[string]Rating
	listeners *listener.MemoryRepo
}

func NewMemoryRepo(listeners *listener.MemoryRepo) *MemoryRepo {
	return &MemoryRepo{byCall: map[string]Rating{}, listeners: listeners}
}

func (r *MemoryRepo) Insert(ctx context.Context, rt Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byCall[rt.CallID]; exists {
		return ErrAlreadyRated
	}
	r.byCall[rt.CallID] = rt

	if r.listeners != nil {
		var scores []int
		for _, existing := range r.byCall {
			if existing.ListenerID == rt.ListenerID {
				scores = append(scores, existing.Score)
			}
		}
		if err := r.listeners.ApplyRatingRecompute(rt.ListenerID, scores); err != nil {
			delete(r.byCall, rt.CallID)
			return err
		}
	}
	return nil
}

func (r *MemoryRepo) ListByListener(ctx context.Context, listenerID string, limit int) ([]Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Rating
	for _, rt := range r.byCall {
		if rt.ListenerID == listenerID {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
