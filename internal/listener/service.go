package listener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listenline/internal/presence"
)

var ErrForbidden = errors.New("listener: not the listener's user")

// Service exposes the listener-facing operations: the heartbeat that
// feeds liveness, the availability toggle, and the public summary view.
type Service struct {
	repo     Repository
	recorder *presence.Recorder
	clock    func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		recorder: presence.NewRecorder(repo),
		clock:    time.Now,
	}
}

// Heartbeat marks the listener live now. Only the listener's own user
// may beat; there is no proxy heartbeat.
func (s *Service) Heartbeat(ctx context.Context, actorUserID, listenerID string) error {
	l, err := s.repo.GetByID(ctx, listenerID)
	if err != nil {
		return err
	}
	if l.UserID != actorUserID {
		return ErrForbidden
	}
	return s.recorder.RecordHeartbeat(ctx, listenerID)
}

// SetAvailability flips the listener-controlled toggle. The toggle does
// not touch last_active_at; an available listener still needs a fresh
// heartbeat to accept calls.
func (s *Service) SetAvailability(ctx context.Context, actorUserID, listenerID string, available bool) error {
	l, err := s.repo.GetByID(ctx, listenerID)
	if err != nil {
		return err
	}
	if l.UserID != actorUserID {
		return ErrForbidden
	}
	return s.repo.SetAvailability(ctx, listenerID, available)
}

// GetSummary returns the public view of a listener.
func (s *Service) GetSummary(ctx context.Context, listenerID string) (Summary, error) {
	l, err := s.repo.GetByID(ctx, listenerID)
	if err != nil {
		return Summary{}, err
	}
	return l.Summarize(s.clock().UTC()), nil
}

// ResolveOwn maps a user to their listener profile, for endpoints where
// the actor acts as a listener.
func (s *Service) ResolveOwn(ctx context.Context, userID string) (Listener, error) {
	l, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Listener{}, ErrNotFound
		}
		return Listener{}, fmt.Errorf("listener: resolve user %s: %w", userID, err)
	}
	return l, nil
}
