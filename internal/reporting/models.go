package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics for one listener.

type CallsSummaryRequest struct {
	ListenerID string    `json:"listener_id"`
	Range      TimeRange `json:"range"`
}

type CallsSummary struct {
	ListenerID string `json:"listener_id"`

	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	MissedCalls    int `json:"missed_calls"`
	RejectedCalls  int `json:"rejected_calls"`
	CancelledCalls int `json:"cancelled_calls"`
	ActiveCalls    int `json:"active_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}

// EarningsSummaryRequest requests aggregated earnings.
// Earnings are derived from the immutable per-call earnings ledger, not
// from the mutable listener counters.

type EarningsSummaryRequest struct {
	ListenerID string    `json:"listener_id"`
	Range      TimeRange `json:"range"`
	Currency   string    `json:"currency,omitempty"`
}

type EarningsSummary struct {
	ListenerID string `json:"listener_id"`
	Currency   string `json:"currency"`

	PaidCalls          int   `json:"paid_calls"`
	TotalMinutes       int64 `json:"total_minutes"`
	TotalEarningsMinor int64 `json:"total_earnings_minor"`
}

// EarningsEntry is one immutable ledger row, as reporting sees it.
type EarningsEntry struct {
	CallID      string    `json:"call_id"`
	ListenerID  string    `json:"listener_id"`
	Minutes     int       `json:"minutes"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}
