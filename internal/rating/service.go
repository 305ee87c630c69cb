package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listenline/internal/calls"
	"listenline/internal/events"
	"listenline/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgument  = errors.New("rating: invalid argument")
	ErrOutOfRange       = errors.New("rating: score out of range")
	ErrCallNotCompleted = errors.New("rating: call not completed")
	ErrNotCaller        = errors.New("rating: only the caller may rate")
)

// CallReader is the slice of the call engine the rating flow needs.
type CallReader interface {
	GetByID(ctx context.Context, id string) (calls.Call, error)
}

// Service accepts post-call ratings from callers.
type Service struct {
	repo   Repository
	calls  CallReader
	events *events.Service
	clock  func() time.Time
}

func NewService(repo Repository, callReader CallReader, ev *events.Service) *Service {
	return &Service{repo: repo, calls: callReader, events: ev, clock: time.Now}
}

type SubmitRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// Submit rates a completed call. Only the call's caller may rate, a
// call is rated at most once, and the score is 1..5.
func (s *Service) Submit(ctx context.Context, raterUserID, callID string, req SubmitRequest) (Rating, error) {
	if raterUserID == "" || callID == "" {
		return Rating{}, ErrInvalidArgument
	}
	if req.Score < MinScore || req.Score > MaxScore {
		return Rating{}, ErrOutOfRange
	}

	c, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			return Rating{}, calls.ErrNotFound
		}
		return Rating{}, fmt.Errorf("rating: load call: %w", err)
	}
	if c.CallerID != raterUserID {
		return Rating{}, ErrNotCaller
	}
	if c.Status != calls.CallStatusCompleted {
		return Rating{}, ErrCallNotCompleted
	}

	rt := Rating{
		ID:          uuid.NewString(),
		CallID:      c.ID,
		ListenerID:  c.ListenerID,
		RaterUserID: raterUserID,
		Score:       req.Score,
		Comment:     req.Comment,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.repo.Insert(ctx, rt); err != nil {
		if errors.Is(err, ErrAlreadyRated) {
			return Rating{}, ErrAlreadyRated
		}
		return Rating{}, fmt.Errorf("rating: insert: %w", err)
	}

	if s.events != nil {
		meta := fmt.Sprintf(`{"score":%d}`, rt.Score)
		if err := s.events.EmitRatingReceived(ctx, rt.CallID, rt.ListenerID, raterUserID, meta); err != nil {
			logger.From(ctx).Warn("rating event emit failed", "call_id", rt.CallID, "err", err)
		}
	}
	return rt, nil
}

// ListForListener returns a listener's most recent ratings.
func (s *Service) ListForListener(ctx context.Context, listenerID string, limit int) ([]Rating, error) {
	if listenerID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByListener(ctx, listenerID, limit)
}
