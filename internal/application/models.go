package application

import (
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
)

// CustomerInput captures caller provided customer fields.
type CustomerInput struct {
	Name             string
	City             string
	Status           crm.CustomerStatus
	PreferredWeekday *calendar.Weekday
	PickupWeekdays   []calendar.Weekday
	DeliveryWeekdays []calendar.Weekday
	ListID           string
	ListTerms        []crm.ListTerm
}

// ListInput captures caller provided customer list fields. Weekday is
// crm.TermListWeekday for term lists.
type ListInput struct {
	Name                 string
	Weekday              calendar.Weekday
	Terms                []crm.ListTerm
	WeekdayForPickup     *calendar.Weekday
	DaysPickupToDelivery int
}

// RuleInput captures caller provided rule template fields. Either the
// weekday fields or the literal dates drive the template, never both.
type RuleInput struct {
	Name               string
	WeekdayBased       bool
	PickupWeekday      calendar.Weekday
	DeliveryWeekday    *calendar.Weekday
	DeliveryOffsetDays int
	PickupDate         time.Time
	DeliveryDate       time.Time
	Repeats            bool
	StepDays           int
	MaxOccurrences     int
}

// TourSlotInput captures caller provided tour slot fields.
type TourSlotInput struct {
	Weekday calendar.Weekday
	City    string
	Window  crm.TimeWindow
}

// CacheInvalidator is the slice of the tour cache the write paths need.
type CacheInvalidator interface {
	Invalidate(customerID string)
	InvalidateAll()
}
