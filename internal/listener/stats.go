package listener

import (
	"context"
	"errors"
)

// StatsAggregator folds completed-call outcomes into listener aggregates.
//
// Exactly-once contract: a call contributes to total_calls/total_minutes
// at most once. The repository enforces this with the append-only
// earnings ledger (UNIQUE on call_id); redelivery returns applied=false
// and leaves the aggregates alone.
type StatsAggregator struct {
	repo StatsRepository
}

func NewStatsAggregator(repo StatsRepository) *StatsAggregator {
	return &StatsAggregator{repo: repo}
}

// ApplyCompletedCall records a completed call's billed minutes and
// earnings against the listener. Safe to call again for the same call.
func (a *StatsAggregator) ApplyCompletedCall(ctx context.Context, listenerID, callID string, minutes int, amountMinor int64, currency string) (bool, error) {
	if a.repo == nil {
		return false, errors.New("listener: stats repository not configured")
	}
	if listenerID == "" || callID == "" {
		return false, ErrInvalidArgument
	}
	if minutes < 0 || amountMinor < 0 {
		return false, ErrInvalidArgument
	}
	return a.repo.ApplyCompletedCall(ctx, listenerID, callID, minutes, amountMinor, currency)
}
