package reporting

import (
	"context"
	"errors"
	"time"

	"listenline/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - Methods must filter by listener.
// - Implementations should query immutable sources when possible (the
//   earnings ledger, call records).

type Repository interface {
	ListCalls(ctx context.Context, listenerID string, from, to time.Time) ([]calls.Call, error)
	ListEarnings(ctx context.Context, listenerID string, from, to time.Time) ([]EarningsEntry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func validRange(r TimeRange) bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.ListenerID == "" || !validRange(req.Range) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.ListenerID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{ListenerID: req.ListenerID}
	for _, c := range rows {
		out.TotalCalls++
		if c.DurationSeconds != nil {
			out.TotalDurationSeconds += *c.DurationSeconds
		}
		switch c.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusMissed:
			out.MissedCalls++
		case calls.CallStatusRejected:
			out.RejectedCalls++
		case calls.CallStatusCancelled:
			out.CancelledCalls++
		case calls.CallStatusPending, calls.CallStatusRinging, calls.CallStatusOngoing:
			out.ActiveCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) EarningsSummary(ctx context.Context, req EarningsSummaryRequest) (EarningsSummary, error) {
	if req.ListenerID == "" || !validRange(req.Range) {
		return EarningsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return EarningsSummary{}, errors.New("reporting: repository not configured")
	}

	entries, err := s.repo.ListEarnings(ctx, req.ListenerID, req.Range.From, req.Range.To)
	if err != nil {
		return EarningsSummary{}, err
	}

	out := EarningsSummary{ListenerID: req.ListenerID, Currency: req.Currency}
	for _, e := range entries {
		// Currency normalization: a requested currency filters; otherwise
		// the first row sets it.
		if out.Currency == "" {
			out.Currency = e.Currency
		}
		if req.Currency != "" && e.Currency != req.Currency {
			continue
		}
		out.PaidCalls++
		out.TotalMinutes += int64(e.Minutes)
		out.TotalEarningsMinor += e.AmountMinor
	}
	return out, nil
}
