package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Publisher fans an event out to interested subscribers (the external
// notification subsystem). Publishing is best-effort on top of the
// durable Append.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Service records call-engine events.
//
// IMPORTANT:
// - Callers should treat event emission as best-effort: a failed emit
//   must never roll back an already-recorded call transition.
type Service struct {
	repo  Repository
	pub   Publisher
	clock func() time.Time
}

func NewService(repo Repository, pub Publisher) *Service {
	return &Service{repo: repo, pub: pub, clock: time.Now}
}

var ErrInvalidEvent = errors.New("events: invalid event")

func (s *Service) Emit(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("events: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return err
	}
	if s.pub != nil {
		// Fan-out failure is not a caller concern; the durable row above
		// is the source of truth for compensating delivery.
		_ = s.pub.Publish(ctx, e)
	}
	return nil
}

// EmitCallEvent records a call lifecycle outcome.
func (s *Service) EmitCallEvent(ctx context.Context, typ Type, callID, listenerID, actorUserID, metadata string) error {
	return s.Emit(ctx, Event{
		Type:        typ,
		CallID:      callID,
		ListenerID:  listenerID,
		ActorUserID: actorUserID,
		Metadata:    metadata,
	})
}

// EmitRatingReceived records an accepted rating.
func (s *Service) EmitRatingReceived(ctx context.Context, callID, listenerID, raterUserID, metadata string) error {
	return s.Emit(ctx, Event{
		Type:        TypeRatingReceived,
		CallID:      callID,
		ListenerID:  listenerID,
		ActorUserID: raterUserID,
		Metadata:    metadata,
	})
}
