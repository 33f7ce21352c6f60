// Package testfixtures provides deterministic clocks, id generators and
// entity builders shared by the test suites.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
)

var (
	customerCounter uint64
	listCounter     uint64
	ruleCounter     uint64
	slotCounter     uint64
)

// referenceTime is a Monday morning so weekday arithmetic in tests stays
// easy to follow.
var referenceTime = time.Date(2024, time.June, 3, 8, 0, 0, 0, calendar.DefaultLocation())

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// CustomerOption configures a generated customer fixture.
type CustomerOption func(*crm.Customer)

// NewCustomerFixture returns a deterministic regular customer with optional
// overrides.
func NewCustomerFixture(opts ...CustomerOption) crm.Customer {
	idx := atomic.AddUint64(&customerCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	customer := crm.Customer{
		ID:        fmt.Sprintf("customer-%03d", idx),
		Name:      fmt.Sprintf("Customer %03d", idx),
		City:      "Leipzig",
		Status:    crm.StatusRegular,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&customer)
	}
	return customer
}

// WithStatus overrides the customer status.
func WithStatus(status crm.CustomerStatus) CustomerOption {
	return func(c *crm.Customer) { c.Status = status }
}

// WithPickupWeekdays sets the personal pickup defaults.
func WithPickupWeekdays(days ...calendar.Weekday) CustomerOption {
	return func(c *crm.Customer) { c.PickupWeekdays = days }
}

// WithInterval appends an interval.
func WithInterval(interval crm.Interval) CustomerOption {
	return func(c *crm.Customer) { c.Intervals = append(c.Intervals, interval) }
}

// ListOption configures a generated list fixture.
type ListOption func(*crm.CustomerList)

// NewWeekdayListFixture returns a deterministic weekday list.
func NewWeekdayListFixture(weekday calendar.Weekday, opts ...ListOption) crm.CustomerList {
	idx := atomic.AddUint64(&listCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	list := crm.CustomerList{
		ID:        fmt.Sprintf("list-%03d", idx),
		Name:      fmt.Sprintf("Route %03d", idx),
		Weekday:   weekday,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&list)
	}
	return list
}

// NewTermListFixture returns a deterministic term list with the given terms.
func NewTermListFixture(terms []crm.ListTerm, opts ...ListOption) crm.CustomerList {
	list := NewWeekdayListFixture(crm.TermListWeekday, opts...)
	list.Terms = terms
	return list
}

// NewRuleFixture returns a deterministic weekday based rule template.
func NewRuleFixture() crm.Rule {
	idx := atomic.AddUint64(&ruleCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	return crm.Rule{
		ID:            fmt.Sprintf("rule-%03d", idx),
		Name:          fmt.Sprintf("Rule %03d", idx),
		WeekdayBased:  true,
		PickupWeekday: calendar.Tuesday,
		Repeats:       true,
		StepDays:      7,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

// NewTourSlotFixture returns a deterministic tour slot.
func NewTourSlotFixture(weekday calendar.Weekday, city string) crm.TourSlot {
	idx := atomic.AddUint64(&slotCounter, 1)
	return crm.TourSlot{
		ID:      fmt.Sprintf("slot-%03d", idx),
		Weekday: weekday,
		City:    city,
		Window:  crm.TimeWindow{Start: "09:00", End: "11:00"},
	}
}
