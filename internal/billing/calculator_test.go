package billing

import "testing"

func TestBilledMinutes_CeilsPartialMinutes(t *testing.T) {
	cases := []struct {
		seconds int
		want    int
	}{
		{0, 0},
		{-5, 0},
		{1, 1},
		{59, 1},
		{60, 1},
		{61, 2},
		{119, 2},
		{120, 2},
		{125, 3},
		{3600, 60},
	}
	for _, tc := range cases {
		if got := BilledMinutes(tc.seconds); got != tc.want {
			t.Fatalf("BilledMinutes(%d) = %d, want %d", tc.seconds, got, tc.want)
		}
	}
}

func TestCost_CeilingNotNearestRounding(t *testing.T) {
	// 125s at 10.00/min must bill 3 minutes, not 2.
	ch := Cost(125, 1000, "USD")
	if ch.BilledMinutes != 3 {
		t.Fatalf("expected 3 billed minutes, got %d", ch.BilledMinutes)
	}
	if ch.AmountMinor != 3000 {
		t.Fatalf("expected 3000 minor, got %d", ch.AmountMinor)
	}
	if ch.Currency != "USD" {
		t.Fatalf("expected currency carried through, got %q", ch.Currency)
	}
}

func TestCost_ZeroDurationIsFree(t *testing.T) {
	ch := Cost(0, 1000, "USD")
	if ch.BilledMinutes != 0 || ch.AmountMinor != 0 {
		t.Fatalf("expected free degenerate call, got %+v", ch)
	}
}

func TestCost_JustOverOneMinuteBillsTwo(t *testing.T) {
	// 61s at 20.00/min -> 2 minutes -> 40.00
	ch := Cost(61, 2000, "USD")
	if ch.BilledMinutes != 2 || ch.AmountMinor != 4000 {
		t.Fatalf("expected 2 min / 4000 minor, got %+v", ch)
	}
}

func TestCost_NonPositiveRateBillsNothing(t *testing.T) {
	ch := Cost(90, 0, "USD")
	if ch.AmountMinor != 0 {
		t.Fatalf("expected zero amount for zero rate, got %d", ch.AmountMinor)
	}
}
