package payouts

import "time"

// Period is one weekly earnings window. Start is a Wednesday 00:00 UTC,
// inclusive; End is the following Wednesday 00:00 UTC, exclusive (the window
// covers through Tuesday 23:59).
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Next returns the window immediately after this one.
func (p Period) Next() Period {
	return Period{Start: p.End, End: p.End.AddDate(0, 0, 7)}
}

// CalculatePayoutPeriod resolves the window a payout run settles. Processing
// happens on Fridays: on a Friday (or when forced) the most recently closed
// Wednesday-to-Tuesday span is settled; on any other day the window before
// that is used, so a manual run never settles a span that regular Friday
// processing has not reached yet.
func CalculatePayoutPeriod(now time.Time, force bool) Period {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	daysSinceWednesday := (int(midnight.Weekday()) - int(time.Wednesday) + 7) % 7
	end := midnight.AddDate(0, 0, -daysSinceWednesday)
	if now.Weekday() != time.Friday && !force {
		end = end.AddDate(0, 0, -7)
	}
	return Period{Start: end.AddDate(0, 0, -7), End: end}
}
