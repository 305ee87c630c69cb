package billing

// Amounts are expressed in minor units (e.g., cents) using int64.
// Per-minute pricing follows telephony convention: a started minute is
// billed as a full minute, so the listener is never under-compensated
// for connection overhead.

// Charge is the billing outcome for one completed call.
type Charge struct {
	DurationSeconds int    `json:"duration_seconds"`
	BilledMinutes   int    `json:"billed_minutes"`
	AmountMinor     int64  `json:"amount_minor"`
	Currency        string `json:"currency"`
}

// BilledMinutes rounds a duration up to whole minutes.
// Zero or negative durations are degenerate no-op calls and bill nothing.
func BilledMinutes(durationSeconds int) int {
	if durationSeconds <= 0 {
		return 0
	}
	m := durationSeconds / 60
	if durationSeconds%60 != 0 {
		m++
	}
	return m
}

// Cost computes the charge for a connected duration at a per-minute rate.
// Minor-unit integer math keeps the result exact; there is no rounding
// step because billed_minutes * rate_per_minute_minor cannot produce
// sub-minor amounts. No currency conversion: the currency is whatever
// was captured on the call at creation.
func Cost(durationSeconds int, ratePerMinuteMinor int64, currency string) Charge {
	minutes := BilledMinutes(durationSeconds)
	if minutes == 0 || ratePerMinuteMinor <= 0 {
		return Charge{DurationSeconds: durationSeconds, BilledMinutes: minutes, AmountMinor: 0, Currency: currency}
	}
	return Charge{
		DurationSeconds: durationSeconds,
		BilledMinutes:   minutes,
		AmountMinor:     int64(minutes) * ratePerMinuteMinor,
		Currency:        currency,
	}
}
