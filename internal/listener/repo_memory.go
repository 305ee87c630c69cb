package listener

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory listener store for tests and early development.
// It mirrors the SQL repository's semantics, including exactly-once
// aggregate application keyed by call id.
type MemoryRepo struct {
	mu sync.Mutex

	Listeners map[string]*Listener

	// appliedCalls mirrors the listener_earnings UNIQUE(call_id) guard.
	appliedCalls map[string]struct{}
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		Listeners:    map[string]*Listener{},
		appliedCalls: map[string]struct{}{},
	}
}

// Put registers a listener (test seeding helper).
func (r *MemoryRepo) Put(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := l
	r.Listeners[l.ID] = &cp
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Listener, error) {
	if id == "" {
		return Listener{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.Listeners[id]
	if !ok {
		return Listener{}, ErrNotFound
	}
	return *l, nil
}

func (r *MemoryRepo) GetByUserID(ctx context.Context, userID string) (Listener, error) {
	if userID == "" {
		return Listener{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.Listeners {
		if l.UserID == userID {
			return *l, nil
		}
	}
	return Listener{}, ErrNotFound
}

func (r *MemoryRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.Listeners[id]
	if !ok {
		return ErrNotFound
	}
	t := at
	l.LastActiveAt = &t
	l.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	if id == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.Listeners[id]
	if !ok {
		return ErrNotFound
	}
	l.IsAvailable = available
	return nil
}

func (r *MemoryRepo) ListEligible(ctx context.Context, onlineSince time.Time, excludeID string) ([]Listener, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Listener, 0)
	for _, l := range r.Listeners {
		if !l.IsAvailable {
			continue
		}
		if l.LastActiveAt == nil || l.LastActiveAt.Before(onlineSince) {
			continue
		}
		if excludeID != "" && l.ID == excludeID {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (r *MemoryRepo) ApplyCompletedCall(ctx context.Context, listenerID, callID string, minutes int, amountMinor int64, currency string) (bool, error) {
	if listenerID == "" || callID == "" {
		return false, ErrInvalidArgument
	}
	if minutes < 0 || amountMinor < 0 {
		return false, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.appliedCalls[callID]; done {
		return false, nil
	}
	l, ok := r.Listeners[listenerID]
	if !ok {
		return false, ErrNotFound
	}
	r.appliedCalls[callID] = struct{}{}
	l.TotalCalls++
	l.TotalMinutes += int64(minutes)
	l.TotalEarningsMinor += amountMinor
	return true, nil
}

// ApplyRatingRecompute recomputes the rating aggregates from a full
// population snapshot. The rating memory repo calls this under its own
// lock ordering (rating store first, then listener store).
func (r *MemoryRepo) ApplyRatingRecompute(listenerID string, ratings []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.Listeners[listenerID]
	if !ok {
		return ErrNotFound
	}
	l.TotalRatings = int64(len(ratings))
	if len(ratings) == 0 {
		l.AverageRating = 0
		return nil
	}
	sum := 0
	for _, v := range ratings {
		sum += v
	}
	l.AverageRating = float64(sum) / float64(len(ratings))
	return nil
}
