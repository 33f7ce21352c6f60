package crm

import (
	"time"

	"github.com/example/route-crm/internal/calendar"
)

// TermListWeekday marks a list as term based instead of weekday based.
const TermListWeekday calendar.Weekday = -1

// CustomerList groups customers. A weekday list injects one weekday into
// every member's effective schedule; a term list drives its members through
// an explicit shared sequence of dated events. A list is never both.
type CustomerList struct {
	ID      string
	Name    string
	Weekday calendar.Weekday
	Terms   []ListTerm

	// Optional helpers used to auto-generate the next term pair.
	WeekdayForPickup     *calendar.Weekday
	DaysPickupToDelivery int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsWeekdayList reports whether the list schedules its members through a
// fixed weekday.
func (l CustomerList) IsWeekdayList() bool {
	return l.Weekday != TermListWeekday
}

// IsTermList reports whether the list schedules its members through dated
// terms.
func (l CustomerList) IsTermList() bool {
	return l.Weekday == TermListWeekday
}

// TermsOfType returns the list terms matching the appointment type, in the
// stored order.
func (l CustomerList) TermsOfType(t AppointmentType) []ListTerm {
	if len(l.Terms) == 0 {
		return nil
	}
	out := make([]ListTerm, 0, len(l.Terms))
	for _, term := range l.Terms {
		if term.Type == t {
			out = append(out, term)
		}
	}
	return out
}
