package crm

import (
	"time"

	"github.com/example/route-crm/internal/calendar"
)

// Rule is a reusable recurrence template not yet bound to a customer.
// Either the literal dates are set, or WeekdayBased is true and the weekday
// fields drive the next concrete dates when the rule is applied.
type Rule struct {
	ID   string
	Name string

	WeekdayBased       bool
	PickupWeekday      calendar.Weekday
	DeliveryWeekday    *calendar.Weekday
	DeliveryOffsetDays int

	PickupDate   time.Time
	DeliveryDate time.Time

	Repeats        bool
	StepDays       int
	MaxOccurrences int

	// UsageCount is a best-effort counter. Concurrent applications may
	// under-count; that is accepted.
	UsageCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TourSlot is an available window on a recurring tour, matched against
// ad-hoc customers by weekday and city.
type TourSlot struct {
	ID      string
	Weekday calendar.Weekday
	City    string
	Window  TimeWindow
}

// TimeWindow is a within-day time range in HH:MM wall clock notation.
type TimeWindow struct {
	Start string
	End   string
}
