package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"listenline/internal/billing"
	"listenline/internal/events"
	"listenline/internal/listener"
	"listenline/pkg/logger"

	"github.com/google/uuid"
)

// Service owns the call session lifecycle.
//
// Contract:
// - Session creation requires the availability gate (listener opted in
//   AND live per the presence window) and a free listener: one active
//   call per listener, enforced by an atomic conditional insert.
// - The listener's rate is captured on the call at creation; later rate
//   changes never affect in-flight sessions.
// - A terminal transition is a single atomic write of status,
//   timestamps and billing. Aggregate application is idempotent per
//   call, so a retry after a partial failure cannot double-count.
// - Billing is best-effort on completion: a completed transition
//   without duration_seconds records the status and leaves the billing
//   fields absent.
type Service struct {
	repo      Repository
	listeners listener.Repository
	stats     *listener.StatsAggregator
	events    *events.Service

	// claims is the Redis fast path for the one-active-call rule; nil
	// disables it (the conditional insert stays authoritative).
	claims ClaimStore

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, listeners listener.Repository, stats *listener.StatsAggregator, ev *events.Service, claims ClaimStore) *Service {
	return &Service{
		repo:      repo,
		listeners: listeners,
		stats:     stats,
		events:    ev,
		claims:    claims,
		clock:     time.Now,
	}
}

var (
	ErrInvalidArgument     = errors.New("calls: invalid argument")
	ErrListenerNotFound    = errors.New("calls: listener not found")
	ErrListenerUnavailable = errors.New("calls: listener not available")
	ErrForbidden           = errors.New("calls: not a party of this call")
	ErrInvalidStatus       = errors.New("calls: invalid status value")
	ErrIllegalTransition   = errors.New("calls: illegal status transition")
)

type CreateRequest struct {
	ListenerID string   `json:"listener_id"`
	Type       CallType `json:"call_type"`
}

// CreateSession books a new call against a listener.
func (s *Service) CreateSession(ctx context.Context, callerID string, req CreateRequest) (Call, error) {
	if callerID == "" || req.ListenerID == "" {
		return Call{}, ErrInvalidArgument
	}
	if !req.Type.Valid() {
		return Call{}, ErrInvalidArgument
	}

	l, err := s.listeners.GetByID(ctx, req.ListenerID)
	if err != nil {
		if errors.Is(err, listener.ErrNotFound) {
			return Call{}, ErrListenerNotFound
		}
		return Call{}, fmt.Errorf("calls: load listener: %w", err)
	}

	now := s.clock().UTC()
	if !listener.CanAcceptCall(now, l) {
		return Call{}, ErrListenerUnavailable
	}

	claimed := false
	if s.claims != nil {
		ok, err := s.claims.Acquire(ctx, l.ID)
		if err != nil {
			return Call{}, fmt.Errorf("calls: claim listener: %w", err)
		}
		if !ok {
			return Call{}, ErrListenerBusy
		}
		claimed = true
	}

	c := Call{
		ID:         uuid.NewString(),
		CallerID:   callerID,
		ListenerID: l.ID,
		Type:       req.Type,
		Status:     CallStatusPending,
		// Price locked at booking time.
		RatePerMinuteMinor: l.RatePerMinuteMinor,
		Currency:           l.Currency,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.InsertIfListenerFree(ctx, c); err != nil {
		if claimed {
			s.releaseClaim(ctx, l.ID)
		}
		if errors.Is(err, ErrListenerBusy) {
			return Call{}, ErrListenerBusy
		}
		return Call{}, fmt.Errorf("calls: insert call: %w", err)
	}
	return c, nil
}

// Transition moves a call through its state machine. Only the caller or
// the listener party may transition a call.
func (s *Service) Transition(ctx context.Context, actorUserID, callID string, to CallStatus, durationSeconds *int) (Call, error) {
	if actorUserID == "" || callID == "" {
		return Call{}, ErrInvalidArgument
	}
	// An illegal status value is rejected before any read or mutation.
	if !to.Valid() {
		return Call{}, ErrInvalidStatus
	}

	c, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Call{}, ErrNotFound
		}
		return Call{}, fmt.Errorf("calls: load call: %w", err)
	}

	party, err := s.isParty(ctx, c, actorUserID)
	if err != nil {
		return Call{}, err
	}
	if !party {
		return Call{}, ErrForbidden
	}

	if !CanTransition(c.Status, to) {
		return Call{}, ErrIllegalTransition
	}

	now := s.clock().UTC()
	w := TransitionWrite{At: now}
	if to == CallStatusOngoing {
		w.StartedAt = &now
	}
	if to.Terminal() {
		w.EndedAt = &now
	}

	var charge *billing.Charge
	if to == CallStatusCompleted && durationSeconds != nil {
		ch := billing.Cost(*durationSeconds, c.RatePerMinuteMinor, c.Currency)
		dur := *durationSeconds
		w.DurationSeconds = &dur
		w.TotalCostMinor = &ch.AmountMinor
		charge = &ch
	}

	updated, err := s.repo.Transition(ctx, c.ID, c.Status, to, w)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			// A concurrent transition won; the requested edge is no longer legal.
			return Call{}, ErrIllegalTransition
		}
		return Call{}, fmt.Errorf("calls: transition: %w", err)
	}

	if to.Terminal() {
		s.finishTerminal(ctx, updated, actorUserID, charge)
	}
	return updated, nil
}

// GetForParty fetches a call, restricted to its parties.
func (s *Service) GetForParty(ctx context.Context, actorUserID, callID string) (Call, error) {
	if actorUserID == "" || callID == "" {
		return Call{}, ErrInvalidArgument
	}
	c, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		return Call{}, err
	}
	party, err := s.isParty(ctx, c, actorUserID)
	if err != nil {
		return Call{}, err
	}
	if !party {
		return Call{}, ErrForbidden
	}
	return c, nil
}

func (s *Service) isParty(ctx context.Context, c Call, userID string) (bool, error) {
	if userID == c.CallerID {
		return true, nil
	}
	l, err := s.listeners.GetByID(ctx, c.ListenerID)
	if err != nil {
		if errors.Is(err, listener.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("calls: load listener: %w", err)
	}
	return l.UserID == userID, nil
}

// finishTerminal runs the after-effects of a recorded terminal status:
// claim release, aggregate application, event emission. All of these
// are recoverable; none may undo the already-durable status write.
func (s *Service) finishTerminal(ctx context.Context, c Call, actorUserID string, charge *billing.Charge) {
	log := logger.From(ctx)

	s.releaseClaim(ctx, c.ListenerID)

	if charge != nil && s.stats != nil {
		applied, err := s.stats.ApplyCompletedCall(ctx, c.ListenerID, c.ID, charge.BilledMinutes, charge.AmountMinor, charge.Currency)
		if err != nil {
			// The status write is durable and the aggregator is idempotent:
			// the emitted event below is the durable trigger to re-drive this.
			log.Error("listener stats apply failed", "call_id", c.ID, "listener_id", c.ListenerID, "err", err)
		} else if !applied {
			log.Warn("listener stats already applied", "call_id", c.ID)
		}
	}

	if s.events != nil {
		typ, ok := terminalEventType(c.Status)
		if !ok {
			return
		}
		meta := ""
		if charge != nil {
			if b, err := json.Marshal(charge); err == nil {
				meta = string(b)
			}
		}
		if err := s.events.EmitCallEvent(ctx, typ, c.ID, c.ListenerID, actorUserID, meta); err != nil {
			log.Warn("call event emit failed", "call_id", c.ID, "type", typ, "err", err)
		}
	}
}

func (s *Service) releaseClaim(ctx context.Context, listenerID string) {
	if s.claims == nil {
		return
	}
	if err := s.claims.Release(ctx, listenerID); err != nil {
		// TTL will reclaim the slot.
		logger.From(ctx).Warn("claim release failed", "listener_id", listenerID, "err", err)
	}
}

func terminalEventType(st CallStatus) (events.Type, bool) {
	switch st {
	case CallStatusCompleted:
		return events.TypeCallCompleted, true
	case CallStatusMissed:
		return events.TypeCallMissed, true
	case CallStatusRejected:
		return events.TypeCallRejected, true
	case CallStatusCancelled:
		return events.TypeCallCancelled, true
	default:
		return "", false
	}
}
