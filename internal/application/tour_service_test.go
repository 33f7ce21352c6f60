package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/testfixtures"
	"github.com/example/route-crm/internal/tour"
)

func newTourService(t *testing.T) (*TourService, *memoryStore, *testfixtures.Clock) {
	t.Helper()
	store := newMemoryStore()
	clock := testfixtures.NewClock(time.Time{})
	ids := testfixtures.NewIDGenerator("slot")
	aggregator := tour.NewAggregator(nil, nil, 0, 0)
	service := NewTourService(store, store, store, aggregator, nil, ids.NextFunc(), clock.NowFunc(), nil)
	return service, store, clock
}

func TestBuildTourAggregatesStoredCustomers(t *testing.T) {
	service, store, clock := newTourService(t)
	loc := calendar.DefaultLocation()

	monday := time.Date(2024, time.June, 3, 0, 0, 0, 0, loc)
	due := testfixtures.NewCustomerFixture(testfixtures.WithInterval(crm.Interval{
		ID:         "iv-due",
		PickupBase: monday,
		Repeats:    true,
		StepDays:   7,
	}))
	due.CreatedAt = monday.AddDate(0, 0, -14)
	upcoming := testfixtures.NewCustomerFixture(testfixtures.WithInterval(crm.Interval{
		ID:         "iv-upcoming",
		PickupBase: monday.AddDate(0, 0, 2),
	}))
	upcoming.CreatedAt = monday.AddDate(0, 0, -14)
	if err := store.CreateCustomer(context.Background(), due); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := store.CreateCustomer(context.Background(), upcoming); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	snapshot, err := service.BuildTour(context.Background(), monday)
	if err != nil {
		t.Fatalf("BuildTour failed: %v", err)
	}
	if len(snapshot.DueToday) != 1 || snapshot.DueToday[0].Customer.ID != due.ID {
		t.Fatalf("expected %q in the due-today section, got %+v", due.ID, snapshot.DueToday)
	}
	if len(snapshot.Upcoming) != 1 || snapshot.Upcoming[0].Customer.ID != upcoming.ID {
		t.Fatalf("expected %q in the upcoming section, got %+v", upcoming.ID, snapshot.Upcoming)
	}

	// A zero day falls back to the injected clock.
	clock.Set(monday.Add(9 * time.Hour))
	snapshot, err = service.BuildTour(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("BuildTour with zero day failed: %v", err)
	}
	if !snapshot.Day.Equal(monday) {
		t.Fatalf("expected the snapshot anchored at %v, got %v", monday, snapshot.Day)
	}
}

func TestSuggestSlotsForAdHocCustomer(t *testing.T) {
	service, store, _ := newTourService(t)
	loc := calendar.DefaultLocation()

	customer := testfixtures.NewCustomerFixture(testfixtures.WithStatus(crm.StatusAdHoc))
	customer.City = "Leipzig"
	if err := store.CreateCustomer(context.Background(), customer); err != nil {
		t.Fatalf("seed customer failed: %v", err)
	}
	if err := store.CreateTourSlot(context.Background(), testfixtures.NewTourSlotFixture(calendar.Tuesday, "Leipzig")); err != nil {
		t.Fatalf("seed slot failed: %v", err)
	}
	if err := store.CreateTourSlot(context.Background(), testfixtures.NewTourSlotFixture(calendar.Tuesday, "Dresden")); err != nil {
		t.Fatalf("seed slot failed: %v", err)
	}

	monday := time.Date(2024, time.June, 3, 0, 0, 0, 0, loc)
	suggestions, err := service.SuggestSlots(context.Background(), customer.ID, monday, 7)
	if err != nil {
		t.Fatalf("SuggestSlots failed: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected one suggestion in the customer's city, got %d", len(suggestions))
	}
	want := time.Date(2024, time.June, 4, 0, 0, 0, 0, loc)
	if !suggestions[0].Date.Equal(want) {
		t.Fatalf("expected the suggestion on %v, got %v", want, suggestions[0].Date)
	}

	if _, err := service.SuggestSlots(context.Background(), "missing", monday, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown customer, got %v", err)
	}
}

func TestTourSlotLifecycle(t *testing.T) {
	service, _, _ := newTourService(t)

	slot, err := service.CreateTourSlot(context.Background(), TourSlotInput{
		Weekday: calendar.Thursday,
		City:    "  Halle ",
		Window:  crm.TimeWindow{Start: "08:00", End: "12:00"},
	})
	if err != nil {
		t.Fatalf("CreateTourSlot failed: %v", err)
	}
	if slot.City != "Halle" {
		t.Fatalf("expected the city trimmed, got %q", slot.City)
	}

	updated, err := service.UpdateTourSlot(context.Background(), slot.ID, TourSlotInput{
		Weekday: calendar.Friday,
		City:    "Halle",
		Window:  crm.TimeWindow{Start: "13:00", End: "16:00"},
	})
	if err != nil {
		t.Fatalf("UpdateTourSlot failed: %v", err)
	}
	if updated.Weekday != calendar.Friday || updated.Window.Start != "13:00" {
		t.Fatalf("update was not applied: %+v", updated)
	}

	slots, err := service.ListTourSlots(context.Background())
	if err != nil {
		t.Fatalf("ListTourSlots failed: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected one stored slot, got %d", len(slots))
	}

	if err := service.DeleteTourSlot(context.Background(), slot.ID); err != nil {
		t.Fatalf("DeleteTourSlot failed: %v", err)
	}
	if _, err := service.GetTourSlot(context.Background(), slot.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTourSlotValidation(t *testing.T) {
	service, _, _ := newTourService(t)

	cases := []struct {
		name  string
		input TourSlotInput
	}{
		{"invalid weekday", TourSlotInput{Weekday: calendar.Weekday(8), City: "Leipzig", Window: crm.TimeWindow{Start: "08:00", End: "10:00"}}},
		{"missing city", TourSlotInput{Weekday: calendar.Monday, Window: crm.TimeWindow{Start: "08:00", End: "10:00"}}},
		{"malformed clock", TourSlotInput{Weekday: calendar.Monday, City: "Leipzig", Window: crm.TimeWindow{Start: "8am", End: "10:00"}}},
		{"inverted window", TourSlotInput{Weekday: calendar.Monday, City: "Leipzig", Window: crm.TimeWindow{Start: "12:00", End: "09:00"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.CreateTourSlot(context.Background(), tc.input); !isValidation(err) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}
