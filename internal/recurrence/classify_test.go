package recurrence

import (
	"testing"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
)

// weeklyTuesdayCustomer has a Tuesday pickup default and nothing else.
func weeklyTuesdayCustomer(createdAt time.Time) crm.Customer {
	return crm.Customer{
		ID:             "c-1",
		Name:           "Wagner",
		Status:         crm.StatusRegular,
		PickupWeekdays: []calendar.Weekday{calendar.Tuesday},
		CreatedAt:      createdAt,
	}
}

func TestClassify_WeekdayCadence(t *testing.T) {
	engine := NewEngine(nil)
	// 2024-06-04 is a Tuesday.
	tuesday := day(t, 2024, time.June, 4)
	horizon := window(t, tuesday.AddDate(0, 0, -28), tuesday.AddDate(0, 0, 28))

	t.Run("due today on the scheduled weekday", func(t *testing.T) {
		customer := weeklyTuesdayCustomer(tuesday.AddDate(0, 0, -2))

		state, err := engine.Classify(customer, nil, crm.Pickup, tuesday, horizon)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != StateDueToday {
			t.Fatalf("expected due_today, got %s", state)
		}
	})

	t.Run("upcoming on the Monday after a completed visit", func(t *testing.T) {
		doneAt := tuesday
		customer := weeklyTuesdayCustomer(tuesday.AddDate(0, 0, -14))
		customer.PickupDone = true
		customer.PickupDoneAt = &doneAt

		followingMonday := tuesday.AddDate(0, 0, 6)
		assessment, err := engine.Assess(customer, nil, crm.Pickup, followingMonday, horizon)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if assessment.State != StateUpcoming {
			t.Fatalf("expected upcoming, got %s", assessment.State)
		}
		nextTuesday := tuesday.AddDate(0, 0, 7)
		if assessment.NextDate == nil || !assessment.NextDate.Equal(nextTuesday) {
			t.Fatalf("expected next Tuesday %v, got %v", nextTuesday, assessment.NextDate)
		}
	})

	t.Run("overdue on the Wednesday after an uncompleted visit", func(t *testing.T) {
		customer := weeklyTuesdayCustomer(tuesday.AddDate(0, 0, -14))

		wednesday := tuesday.AddDate(0, 0, 1)
		assessment, err := engine.Assess(customer, nil, crm.Pickup, wednesday, horizon)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if assessment.State != StateOverdue {
			t.Fatalf("expected overdue, got %s", assessment.State)
		}
		if assessment.NextDate == nil || assessment.NextDate.After(wednesday) {
			t.Fatalf("expected the missed occurrence, got %v", assessment.NextDate)
		}
	})
}

func TestClassify_PausedCustomerIsNeverDue(t *testing.T) {
	engine := NewEngine(nil)
	tuesday := day(t, 2024, time.June, 4)
	horizon := window(t, tuesday.AddDate(0, 0, -28), tuesday.AddDate(0, 0, 28))

	customer := weeklyTuesdayCustomer(tuesday.AddDate(0, 0, -14))
	customer.Status = crm.StatusPaused
	customer.Intervals = []crm.Interval{
		{ID: "iv-1", PickupBase: tuesday, CreatedAt: tuesday.AddDate(0, 0, -7)},
	}

	for _, reference := range []time.Time{tuesday.AddDate(0, 0, -7), tuesday, tuesday.AddDate(0, 0, 7)} {
		state, err := engine.Classify(customer, nil, crm.Pickup, reference, horizon)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != StateNone {
			t.Fatalf("expected none for paused customer at %v, got %s", reference, state)
		}
	}
}

func TestClassify_VacationSuppressesAllSources(t *testing.T) {
	engine := NewEngine(nil)
	tuesday := day(t, 2024, time.June, 4)
	horizon := window(t, tuesday.AddDate(0, 0, -7), tuesday.AddDate(0, 0, 21))

	customer := weeklyTuesdayCustomer(tuesday.AddDate(0, 0, -2))
	customer.Intervals = []crm.Interval{
		{ID: "iv-1", PickupBase: tuesday, CreatedAt: tuesday.AddDate(0, 0, -2)},
	}
	customer.ListTerms = []crm.ListTerm{{Date: tuesday, Type: crm.Pickup}}
	customer.Vacations = []crm.VacationEntry{
		{From: tuesday.AddDate(0, 0, -1), To: tuesday.AddDate(0, 0, 2)},
	}

	assessment, err := engine.Assess(customer, nil, crm.Pickup, tuesday, horizon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assessment.State != StateUpcoming {
		t.Fatalf("expected next week's occurrence while on vacation, got %s", assessment.State)
	}
	nextTuesday := tuesday.AddDate(0, 0, 7)
	if assessment.NextDate == nil || !assessment.NextDate.Equal(nextTuesday) {
		t.Fatalf("expected %v, got %v", nextTuesday, assessment.NextDate)
	}
}

func TestClassify_DoneRequiresMatchingDayAndFlag(t *testing.T) {
	engine := NewEngine(nil)
	base := day(t, 2024, time.June, 4)
	horizon := window(t, base.AddDate(0, 0, -14), base.AddDate(0, 0, 14))

	newCustomer := func() crm.Customer {
		return crm.Customer{
			ID:     "c-1",
			Status: crm.StatusRegular,
			Intervals: []crm.Interval{
				{ID: "iv-1", PickupBase: base, CreatedAt: base.AddDate(0, 0, -7)},
			},
			CreatedAt: base.AddDate(0, 0, -7),
		}
	}

	t.Run("completed on the occurrence day", func(t *testing.T) {
		doneAt := base.Add(14 * time.Hour) // afternoon timestamp normalizes to the day
		customer := newCustomer()
		customer.PickupDone = true
		customer.PickupDoneAt = &doneAt

		state, err := engine.Classify(customer, nil, crm.Pickup, base, horizon)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != StateDone {
			t.Fatalf("expected done, got %s", state)
		}
	})

	t.Run("timestamp without flag does not complete", func(t *testing.T) {
		doneAt := base
		customer := newCustomer()
		customer.PickupDoneAt = &doneAt

		state, err := engine.Classify(customer, nil, crm.Pickup, base, horizon)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != StateDueToday {
			t.Fatalf("expected due_today, got %s", state)
		}
	})

	t.Run("completion on another day leaves the occurrence open", func(t *testing.T) {
		doneAt := base.AddDate(0, 0, -9)
		customer := newCustomer()
		customer.PickupDone = true
		customer.PickupDoneAt = &doneAt

		state, err := engine.Classify(customer, nil, crm.Pickup, base.AddDate(0, 0, 1), horizon)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != StateOverdue {
			t.Fatalf("expected overdue, got %s", state)
		}
	})
}

func TestAssess_CompletionDoesNotRevivePreCreationOccurrence(t *testing.T) {
	engine := NewEngine(nil)
	base := day(t, 2024, time.June, 5)
	doneAt := base.AddDate(0, 0, -4)
	customer := crm.Customer{
		ID:     "c-1",
		Status: crm.StatusRegular,
		Intervals: []crm.Interval{
			// A past dated interval created after its own base date; the base
			// occurrence predates the interval and must never come due.
			{ID: "iv-1", PickupBase: base, CreatedAt: base.AddDate(0, 0, 5)},
		},
		PickupDone:   true,
		PickupDoneAt: &doneAt,
		CreatedAt:    doneAt.AddDate(0, 0, -7),
	}

	reference := base.AddDate(0, 0, 2)
	assessment, err := engine.Assess(customer, nil, crm.Pickup, reference, window(t, base.AddDate(0, 0, -14), base.AddDate(0, 0, 14)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assessment.State != StateNone {
		t.Fatalf("expected none for a pre-creation occurrence, got %s (%v)", assessment.State, assessment.NextDate)
	}
}

func TestClassify_NoCandidatesYieldsNone(t *testing.T) {
	engine := NewEngine(nil)
	reference := day(t, 2024, time.June, 4)
	horizon := window(t, reference.AddDate(0, 0, -14), reference.AddDate(0, 0, 14))

	customer := crm.Customer{ID: "c-1", Status: crm.StatusAdHoc, CreatedAt: reference.AddDate(0, 0, -30)}

	state, err := engine.Classify(customer, nil, crm.Pickup, reference, horizon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateNone {
		t.Fatalf("expected none for a customer without scheduling sources, got %s", state)
	}
}

func TestDueStateUrgencyOrdering(t *testing.T) {
	ordered := []DueState{StateOverdue, StateDueToday, StateUpcoming, StateDone, StateNone}
	for i := 0; i < len(ordered)-1; i++ {
		if ordered[i].Urgency() <= ordered[i+1].Urgency() {
			t.Fatalf("%s must outrank %s", ordered[i], ordered[i+1])
		}
	}
}
