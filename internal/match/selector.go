package match

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"listenline/internal/listener"
	"listenline/internal/presence"
)

var ErrNoListenerAvailable = errors.New("match: no listener available")

// Selector picks a random acceptable listener for a caller who does not
// care who answers. Acceptable means the same gate a direct call uses:
// opted in and live within the presence window.
//
// The pick is uniform over the eligible set; there is no load balancing
// or affinity beyond excluding the caller's own listener profile.
type Selector struct {
	listeners listener.Repository
	clock     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(listeners listener.Repository) *Selector {
	return &Selector{
		listeners: listeners,
		clock:     time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Pick returns one eligible listener at random. excludeListenerID keeps
// a caller who is also a listener from being matched with themselves;
// pass "" when the caller has no listener profile.
func (s *Selector) Pick(ctx context.Context, excludeListenerID string) (listener.Listener, error) {
	now := s.clock().UTC()
	eligible, err := s.listeners.ListEligible(ctx, now.Add(-presence.FreshnessWindow), excludeListenerID)
	if err != nil {
		return listener.Listener{}, err
	}
	if len(eligible) == 0 {
		return listener.Listener{}, ErrNoListenerAvailable
	}

	s.mu.Lock()
	i := s.rng.Intn(len(eligible))
	s.mu.Unlock()
	return eligible[i], nil
}
