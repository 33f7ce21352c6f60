package calendar

import "time"

var berlin = time.FixedZone("CET", 1*60*60)

// DefaultLocation returns the timezone all day arithmetic falls back to when
// the caller does not supply one. The route plans originate from a German
// operation, so Central European Time is the agreed default.
func DefaultLocation() *time.Location {
	if loc, err := time.LoadLocation("Europe/Berlin"); err == nil {
		return loc
	}
	return berlin
}

// StartOfDay truncates the timestamp to local midnight in the given location.
// It is idempotent and monotonic; every component compares only values that
// went through this function, never raw timestamps.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = DefaultLocation()
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of the day containing t. Vacation
// ranges store their upper bound this way so inclusive comparisons hold.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// AddDays moves the normalized day forward (or backward) by the given number
// of calendar days, re-normalizing afterwards so DST transitions cannot leave
// a stray hour behind.
func AddDays(day time.Time, days int, loc *time.Location) time.Time {
	return StartOfDay(day.AddDate(0, 0, days), loc)
}

// SameDay reports whether both timestamps fall on the same calendar day in
// the given location.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}
