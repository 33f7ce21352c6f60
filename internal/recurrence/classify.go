package recurrence

import (
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
)

// DueState labels one (customer, day, appointment type) combination.
type DueState string

const (
	// StateNone means no candidate exists inside the query horizon.
	StateNone DueState = "none"
	// StateDone means the most recent relevant occurrence was completed.
	StateDone DueState = "done"
	// StateOverdue means the next open occurrence lies before the reference day.
	StateOverdue DueState = "overdue"
	// StateDueToday means the next open occurrence is the reference day.
	StateDueToday DueState = "due_today"
	// StateUpcoming means the next open occurrence lies after the reference day.
	StateUpcoming DueState = "upcoming"
)

// Urgency orders states from most to least pressing. Higher values win when
// a customer's pickup and delivery states disagree.
func (s DueState) Urgency() int {
	switch s {
	case StateOverdue:
		return 4
	case StateDueToday:
		return 3
	case StateUpcoming:
		return 2
	case StateDone:
		return 1
	default:
		return 0
	}
}

// Assessment is the classification of one appointment type for a customer,
// together with the occurrence day that produced it. NextDate is nil for
// StateNone.
type Assessment struct {
	State    DueState
	NextDate *time.Time
}

// Classify labels the customer's appointment type relative to the reference
// day, considering only candidates inside the window. It is total over well
// formed input: absence of data yields StateNone, never an error.
func (e *Engine) Classify(c crm.Customer, list *crm.CustomerList, t crm.AppointmentType, referenceDay time.Time, w Window) (DueState, error) {
	assessment, err := e.Assess(c, list, t, referenceDay, w)
	if err != nil {
		return StateNone, err
	}
	return assessment.State, nil
}

// Assess computes the due state and the occurrence day behind it.
//
// The completion markers resolve against candidates as follows: an occurrence
// equal to the normalized completion day is done; the next open occurrence is
// the earliest candidate at or after its source's creation day, after the
// completion when one exists, that is not suppressed by a pause or vacation.
func (e *Engine) Assess(c crm.Customer, list *crm.CustomerList, t crm.AppointmentType, referenceDay time.Time, w Window) (Assessment, error) {
	loc := e.Location()
	reference := calendar.StartOfDay(referenceDay, loc)

	resolved, err := e.resolve(c, list, t, w)
	if err != nil {
		return Assessment{}, err
	}

	open := make([]candidate, 0, len(resolved))
	for _, cand := range resolved {
		suppressed, err := e.IsSuppressed(c, cand.day)
		if err != nil {
			return Assessment{}, err
		}
		if !suppressed {
			open = append(open, cand)
		}
	}
	if len(open) == 0 {
		return Assessment{State: StateNone}, nil
	}

	var doneDay time.Time
	hasDone := false
	if at, ok := c.CompletedAt(t); ok {
		doneDay = calendar.StartOfDay(at, loc)
		hasDone = true
	}

	// Completed when the completion timestamp matches the most recent
	// candidate on or before the reference day and that candidate is the
	// reference day itself. On later days the schedule rolls forward to the
	// next open occurrence instead of staying done.
	if hasDone && doneDay.Equal(reference) {
		var latestPast *candidate
		for i := range open {
			if open[i].day.After(reference) {
				break
			}
			latestPast = &open[i]
		}
		if latestPast != nil && latestPast.day.Equal(doneDay) {
			day := latestPast.day
			return Assessment{State: StateDone, NextDate: &day}, nil
		}
	}

	for _, cand := range open {
		if cand.day.Before(cand.anchor) {
			continue
		}
		if hasDone && !cand.day.After(doneDay) {
			continue
		}
		day := cand.day
		switch {
		case day.Before(reference):
			return Assessment{State: StateOverdue, NextDate: &day}, nil
		case day.Equal(reference):
			return Assessment{State: StateDueToday, NextDate: &day}, nil
		default:
			return Assessment{State: StateUpcoming, NextDate: &day}, nil
		}
	}

	return Assessment{State: StateNone}, nil
}
