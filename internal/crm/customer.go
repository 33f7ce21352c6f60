package crm

import (
	"time"

	"github.com/example/route-crm/internal/calendar"
)

// CustomerStatus describes how a customer is serviced.
type CustomerStatus string

const (
	// StatusRegular marks customers on a fixed recurring cadence.
	StatusRegular CustomerStatus = "regular"
	// StatusIrregular marks customers whose cadence changes often but who are
	// still planned through intervals and lists.
	StatusIrregular CustomerStatus = "irregular"
	// StatusAdHoc marks customers without a fixed cadence; they are serviced
	// through one-off slot suggestions.
	StatusAdHoc CustomerStatus = "ad_hoc"
	// StatusPaused marks customers that yield no due occurrences at all.
	StatusPaused CustomerStatus = "paused"
)

// Valid reports whether the status is one of the known values.
func (s CustomerStatus) Valid() bool {
	switch s {
	case StatusRegular, StatusIrregular, StatusAdHoc, StatusPaused:
		return true
	}
	return false
}

// AppointmentType distinguishes the two visit kinds tracked per customer.
type AppointmentType string

const (
	// Pickup is the collection visit.
	Pickup AppointmentType = "pickup"
	// Delivery is the return visit.
	Delivery AppointmentType = "delivery"
)

// Valid reports whether the appointment type is known.
func (t AppointmentType) Valid() bool {
	return t == Pickup || t == Delivery
}

// Interval is one concrete, possibly repeating, recurrence instance owned by
// a customer. A zero base date means the interval does not schedule that
// appointment type.
type Interval struct {
	ID             string
	PickupBase     time.Time
	DeliveryBase   time.Time
	Repeats        bool
	StepDays       int
	MaxOccurrences int
	CreatedAt      time.Time
	SourceRuleID   string
}

// BaseDate returns the base date for the appointment type. The second return
// value is false when the interval does not cover that type.
func (iv Interval) BaseDate(t AppointmentType) (time.Time, bool) {
	switch t {
	case Pickup:
		return iv.PickupBase, !iv.PickupBase.IsZero()
	case Delivery:
		return iv.DeliveryBase, !iv.DeliveryBase.IsZero()
	}
	return time.Time{}, false
}

// VacationEntry is an inclusive day range during which a customer is not
// visited. To is normalized to end of day when the entry is stored.
type VacationEntry struct {
	From time.Time
	To   time.Time
}

// ListTerm is a dated single-type event, either owned by a term list or
// copied down onto its member customers.
type ListTerm struct {
	Date time.Time
	Type AppointmentType
}

// Customer is the scheduling profile of one route customer.
type Customer struct {
	ID   string
	Name string
	City string

	Status           CustomerStatus
	PreferredWeekday *calendar.Weekday

	// Personal weekday defaults. List membership is folded in on read, see
	// the recurrence engine's EffectiveWeekdays.
	PickupWeekdays   []calendar.Weekday
	DeliveryWeekdays []calendar.Weekday

	Intervals []Interval
	ListID    string
	ListTerms []ListTerm

	// RescheduledTo supersedes the next open occurrence only; it never feeds
	// back into the recurrence rules.
	RescheduledTo *time.Time

	PickupDoneAt   *time.Time
	DeliveryDoneAt *time.Time
	PickupDone     bool
	DeliveryDone   bool

	Vacations []VacationEntry
	// LegacyVacation carries the old single from/to fields. VacationPeriods
	// folds it in exactly once.
	LegacyVacation *VacationEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VacationPeriods returns every vacation range of the customer. The legacy
// single entry is appended only when the list does not already contain an
// identical range, so it is never counted twice.
func (c Customer) VacationPeriods() []VacationEntry {
	if c.LegacyVacation == nil {
		return c.Vacations
	}
	for _, entry := range c.Vacations {
		if entry.From.Equal(c.LegacyVacation.From) && entry.To.Equal(c.LegacyVacation.To) {
			return c.Vacations
		}
	}
	out := make([]VacationEntry, 0, len(c.Vacations)+1)
	out = append(out, c.Vacations...)
	out = append(out, *c.LegacyVacation)
	return out
}

// CompletedAt returns the completion timestamp for the appointment type. The
// second return value is false when the completion flag is not set or no
// timestamp was recorded.
func (c Customer) CompletedAt(t AppointmentType) (time.Time, bool) {
	switch t {
	case Pickup:
		if c.PickupDone && c.PickupDoneAt != nil {
			return *c.PickupDoneAt, true
		}
	case Delivery:
		if c.DeliveryDone && c.DeliveryDoneAt != nil {
			return *c.DeliveryDoneAt, true
		}
	}
	return time.Time{}, false
}

// DefaultWeekdays returns the personal weekday defaults for the appointment
// type, without any list folding.
func (c Customer) DefaultWeekdays(t AppointmentType) []calendar.Weekday {
	if t == Pickup {
		return c.PickupWeekdays
	}
	return c.DeliveryWeekdays
}
