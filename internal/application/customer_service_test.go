package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/testfixtures"
)

func newCustomerService(t *testing.T) (*CustomerService, *memoryStore, *recordingCache, *testfixtures.Clock) {
	t.Helper()
	store := newMemoryStore()
	cache := &recordingCache{}
	clock := testfixtures.NewClock(time.Time{})
	ids := testfixtures.NewIDGenerator("customer")
	service := NewCustomerService(store, cache, nil, ids.NextFunc(), clock.NowFunc(), nil)
	return service, store, cache, clock
}

func TestCreateCustomerAssignsIdentityAndTimestamps(t *testing.T) {
	service, store, _, clock := newCustomerService(t)

	customer, err := service.CreateCustomer(context.Background(), CustomerInput{
		Name:   "  Wäscherei Schmidt  ",
		City:   "Leipzig",
		Status: crm.StatusRegular,
	})
	if err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}
	if customer.ID != "customer-1" {
		t.Fatalf("expected generated id customer-1, got %q", customer.ID)
	}
	if customer.Name != "Wäscherei Schmidt" {
		t.Fatalf("expected trimmed name, got %q", customer.Name)
	}
	if !customer.CreatedAt.Equal(clock.Now()) || !customer.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected timestamps from the injected clock, got %v / %v", customer.CreatedAt, customer.UpdatedAt)
	}
	stored, err := store.GetCustomer(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("customer was not persisted: %v", err)
	}
	if stored.Status != crm.StatusRegular {
		t.Fatalf("expected status regular, got %q", stored.Status)
	}
}

func TestCreateCustomerValidation(t *testing.T) {
	service, _, _, _ := newCustomerService(t)

	bad := calendar.Weekday(9)
	_, err := service.CreateCustomer(context.Background(), CustomerInput{
		Name:             "   ",
		Status:           crm.CustomerStatus("weekly"),
		PreferredWeekday: &bad,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	for _, field := range []string{"name", "status", "preferredWeekday"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected a field error for %q, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestUpdateCustomerKeepsSchedulingState(t *testing.T) {
	service, store, cache, clock := newCustomerService(t)

	fixture := testfixtures.NewCustomerFixture()
	fixture.PickupDone = true
	done := clock.Now()
	fixture.PickupDoneAt = &done
	fixture.Intervals = []crm.Interval{{ID: "iv-1", PickupBase: calendar.StartOfDay(clock.Now(), calendar.DefaultLocation())}}
	if err := store.CreateCustomer(context.Background(), fixture); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	updated, err := service.UpdateCustomer(context.Background(), fixture.ID, CustomerInput{
		Name:   "Renamed",
		City:   "Halle",
		Status: crm.StatusIrregular,
	})
	if err != nil {
		t.Fatalf("UpdateCustomer failed: %v", err)
	}
	if updated.Name != "Renamed" || updated.City != "Halle" || updated.Status != crm.StatusIrregular {
		t.Fatalf("profile fields were not replaced: %+v", updated)
	}
	if !updated.PickupDone || updated.PickupDoneAt == nil || len(updated.Intervals) != 1 {
		t.Fatalf("scheduling state must survive a profile update: %+v", updated)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != fixture.ID {
		t.Fatalf("expected one cache invalidation for %q, got %v", fixture.ID, cache.invalidated)
	}
}

func TestGetCustomerNotFound(t *testing.T) {
	service, _, _, _ := newCustomerService(t)

	if _, err := service.GetCustomer(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddVacationNormalizesRange(t *testing.T) {
	service, store, cache, _ := newCustomerService(t)
	loc := calendar.DefaultLocation()

	fixture := testfixtures.NewCustomerFixture()
	if err := store.CreateCustomer(context.Background(), fixture); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	from := time.Date(2024, time.July, 1, 14, 30, 0, 0, loc)
	to := time.Date(2024, time.July, 5, 9, 0, 0, 0, loc)
	customer, err := service.AddVacation(context.Background(), fixture.ID, from, to)
	if err != nil {
		t.Fatalf("AddVacation failed: %v", err)
	}
	if len(customer.Vacations) != 1 {
		t.Fatalf("expected one vacation entry, got %d", len(customer.Vacations))
	}
	entry := customer.Vacations[0]
	if !entry.From.Equal(calendar.StartOfDay(from, loc)) {
		t.Fatalf("expected vacation start at local midnight, got %v", entry.From)
	}
	if !entry.To.Equal(calendar.EndOfDay(to, loc)) {
		t.Fatalf("expected vacation end at the last instant of the day, got %v", entry.To)
	}
	if len(cache.invalidated) != 1 {
		t.Fatalf("expected a cache invalidation, got %v", cache.invalidated)
	}
}

func TestAddVacationUsesConfiguredLocation(t *testing.T) {
	store := newMemoryStore()
	clock := testfixtures.NewClock(time.Time{})
	ids := testfixtures.NewIDGenerator("customer")
	service := NewCustomerService(store, &recordingCache{}, time.UTC, ids.NextFunc(), clock.NowFunc(), nil)

	fixture := testfixtures.NewCustomerFixture()
	if err := store.CreateCustomer(context.Background(), fixture); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Late evening UTC is already the next day in Berlin; the configured
	// location decides which day the vacation starts on.
	from := time.Date(2024, time.June, 3, 23, 30, 0, 0, time.UTC)
	to := time.Date(2024, time.June, 5, 1, 0, 0, 0, time.UTC)
	customer, err := service.AddVacation(context.Background(), fixture.ID, from, to)
	if err != nil {
		t.Fatalf("AddVacation failed: %v", err)
	}
	entry := customer.Vacations[len(customer.Vacations)-1]
	if !entry.From.Equal(time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected the vacation anchored to the UTC day, got %v", entry.From)
	}
}

func TestAddVacationRejectsReversedRange(t *testing.T) {
	service, store, _, _ := newCustomerService(t)
	loc := calendar.DefaultLocation()

	fixture := testfixtures.NewCustomerFixture()
	if err := store.CreateCustomer(context.Background(), fixture); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	from := time.Date(2024, time.July, 5, 0, 0, 0, 0, loc)
	to := time.Date(2024, time.July, 1, 0, 0, 0, 0, loc)
	if _, err := service.AddVacation(context.Background(), fixture.ID, from, to); !isValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestRemoveVacationDropsLegacyRange(t *testing.T) {
	service, store, _, _ := newCustomerService(t)
	loc := calendar.DefaultLocation()

	legacy := crm.VacationEntry{
		From: time.Date(2024, time.August, 1, 0, 0, 0, 0, loc),
		To:   time.Date(2024, time.August, 10, 23, 59, 59, 0, loc),
	}
	fixture := testfixtures.NewCustomerFixture()
	fixture.LegacyVacation = &legacy
	if err := store.CreateCustomer(context.Background(), fixture); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	customer, err := service.RemoveVacation(context.Background(), fixture.ID, 0)
	if err != nil {
		t.Fatalf("RemoveVacation failed: %v", err)
	}
	if len(customer.VacationPeriods()) != 0 {
		t.Fatalf("expected no vacations left, got %v", customer.VacationPeriods())
	}
	if customer.LegacyVacation != nil {
		t.Fatalf("legacy range must be cleared after removal")
	}

	if _, err := service.RemoveVacation(context.Background(), fixture.ID, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an out of range index, got %v", err)
	}
}

func TestMarkCompletedConsumesReschedule(t *testing.T) {
	service, store, cache, clock := newCustomerService(t)
	loc := calendar.DefaultLocation()

	moved := calendar.StartOfDay(clock.Now().AddDate(0, 0, 3), loc)
	fixture := testfixtures.NewCustomerFixture()
	fixture.RescheduledTo = &moved
	if err := store.CreateCustomer(context.Background(), fixture); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	customer, err := service.MarkCompleted(context.Background(), fixture.ID, crm.Pickup, time.Time{})
	if err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if !customer.PickupDone || customer.PickupDoneAt == nil {
		t.Fatalf("expected the pickup completion marker to be set: %+v", customer)
	}
	if !customer.PickupDoneAt.Equal(clock.Now()) {
		t.Fatalf("a zero timestamp must fall back to the clock, got %v", customer.PickupDoneAt)
	}
	if customer.RescheduledTo != nil {
		t.Fatalf("completion must clear the reschedule override")
	}
	if customer.DeliveryDone {
		t.Fatalf("delivery state must stay untouched")
	}
	if len(cache.invalidated) == 0 {
		t.Fatalf("expected a cache invalidation after completion")
	}

	if _, err := service.MarkCompleted(context.Background(), fixture.ID, crm.AppointmentType("wash"), time.Time{}); !isValidation(err) {
		t.Fatalf("expected a validation error for an unknown type, got %v", err)
	}
}

func TestClearCompletionReopensType(t *testing.T) {
	service, store, _, clock := newCustomerService(t)

	stamp := clock.Now()
	fixture := testfixtures.NewCustomerFixture()
	fixture.DeliveryDone = true
	fixture.DeliveryDoneAt = &stamp
	if err := store.CreateCustomer(context.Background(), fixture); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	customer, err := service.ClearCompletion(context.Background(), fixture.ID, crm.Delivery)
	if err != nil {
		t.Fatalf("ClearCompletion failed: %v", err)
	}
	if customer.DeliveryDone || customer.DeliveryDoneAt != nil {
		t.Fatalf("expected the delivery marker to be dropped: %+v", customer)
	}
}

func TestRescheduleNormalizesToMidnight(t *testing.T) {
	service, store, cache, _ := newCustomerService(t)
	loc := calendar.DefaultLocation()

	fixture := testfixtures.NewCustomerFixture()
	if err := store.CreateCustomer(context.Background(), fixture); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	to := time.Date(2024, time.June, 14, 16, 45, 0, 0, loc)
	customer, err := service.Reschedule(context.Background(), fixture.ID, to)
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if customer.RescheduledTo == nil || !customer.RescheduledTo.Equal(calendar.StartOfDay(to, loc)) {
		t.Fatalf("expected the override at local midnight, got %v", customer.RescheduledTo)
	}
	if len(cache.invalidated) != 1 {
		t.Fatalf("expected a cache invalidation, got %v", cache.invalidated)
	}

	if _, err := service.Reschedule(context.Background(), fixture.ID, time.Time{}); !isValidation(err) {
		t.Fatalf("expected a validation error for a zero date, got %v", err)
	}

	customer, err = service.ClearReschedule(context.Background(), fixture.ID)
	if err != nil {
		t.Fatalf("ClearReschedule failed: %v", err)
	}
	if customer.RescheduledTo != nil {
		t.Fatalf("expected the override to be gone")
	}
}

func TestDeleteCustomerInvalidatesCache(t *testing.T) {
	service, store, cache, _ := newCustomerService(t)

	fixture := testfixtures.NewCustomerFixture()
	if err := store.CreateCustomer(context.Background(), fixture); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := service.DeleteCustomer(context.Background(), fixture.ID); err != nil {
		t.Fatalf("DeleteCustomer failed: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != fixture.ID {
		t.Fatalf("expected one cache invalidation for %q, got %v", fixture.ID, cache.invalidated)
	}
	if err := service.DeleteCustomer(context.Background(), fixture.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on a second delete, got %v", err)
	}
}
