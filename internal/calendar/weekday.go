package calendar

import "time"

// Weekday numbers the days of the week starting at Monday, matching the
// numbering the route plans were captured with: 0 is Monday, 6 is Sunday.
// Go's time.Weekday starts at Sunday, so conversions go through this type.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Valid reports whether the value is inside the 0..6 range.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

// Time converts to the stdlib weekday representation.
func (w Weekday) Time() time.Weekday {
	return time.Weekday((int(w) + 1) % 7)
}

// String returns the English day name, or "invalid" for out of range values.
func (w Weekday) String() string {
	if !w.Valid() {
		return "invalid"
	}
	return w.Time().String()
}

// WeekdayOf returns the Monday-based weekday of the timestamp in the given
// location.
func WeekdayOf(t time.Time, loc *time.Location) Weekday {
	if loc == nil {
		loc = DefaultLocation()
	}
	return Weekday((int(t.In(loc).Weekday()) + 6) % 7)
}

// NextWeekday returns the first day on or after the given day that falls on
// the requested weekday.
func NextWeekday(day time.Time, target Weekday, loc *time.Location) time.Time {
	day = StartOfDay(day, loc)
	offset := (int(target) - int(WeekdayOf(day, loc)) + 7) % 7
	return AddDays(day, offset, loc)
}
