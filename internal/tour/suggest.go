package tour

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
)

// ErrInvalidHorizon indicates a slot suggestion call without a positive day
// horizon. The horizon bounds the scan and is mandatory.
var ErrInvalidHorizon = errors.New("tour: suggestion horizon must be positive")

// Suggestion pairs an ad-hoc customer with a concrete date on which one of
// the recurring tour slots passes through their city.
type Suggestion struct {
	CustomerID   string
	CustomerName string
	Date         time.Time
	Slot         crm.TourSlot
}

// SuggestSlots scans the days from startDate through startDate+horizonDays-1
// and collects every tour slot whose weekday and city match the customer.
// City comparison ignores case. Suggestions on the customer's preferred
// weekday sort first; within the same rank they order by date, then by the
// slot's start time. Customers without ad-hoc status get no suggestions, and
// a horizon with no match yields an empty list rather than an error.
func SuggestSlots(loc *time.Location, customer crm.Customer, slots []crm.TourSlot, startDate time.Time, horizonDays int) ([]Suggestion, error) {
	if horizonDays <= 0 {
		return nil, ErrInvalidHorizon
	}
	if customer.Status != crm.StatusAdHoc {
		return nil, nil
	}
	if loc == nil {
		loc = calendar.DefaultLocation()
	}

	city := strings.ToLower(strings.TrimSpace(customer.City))
	start := calendar.StartOfDay(startDate, loc)

	var suggestions []Suggestion
	for offset := 0; offset < horizonDays; offset++ {
		day := calendar.AddDays(start, offset, loc)
		weekday := calendar.WeekdayOf(day, loc)
		for _, slot := range slots {
			if slot.Weekday != weekday {
				continue
			}
			if strings.ToLower(strings.TrimSpace(slot.City)) != city {
				continue
			}
			suggestions = append(suggestions, Suggestion{
				CustomerID:   customer.ID,
				CustomerName: customer.Name,
				Date:         day,
				Slot:         slot,
			})
		}
	}

	preferred := func(s Suggestion) bool {
		return customer.PreferredWeekday != nil && calendar.WeekdayOf(s.Date, loc) == *customer.PreferredWeekday
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		pi, pj := preferred(suggestions[i]), preferred(suggestions[j])
		if pi != pj {
			return pi
		}
		if !suggestions[i].Date.Equal(suggestions[j].Date) {
			return suggestions[i].Date.Before(suggestions[j].Date)
		}
		return suggestions[i].Slot.Window.Start < suggestions[j].Slot.Window.Start
	})
	return suggestions, nil
}
