package tour

import (
	"errors"
	"testing"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
)

func adHocCustomer(city string, preferred *calendar.Weekday) crm.Customer {
	return crm.Customer{
		ID:               "c-1",
		Name:             "Wagner",
		City:             city,
		Status:           crm.StatusAdHoc,
		PreferredWeekday: preferred,
	}
}

func TestSuggestSlots_MatchesCityAndWeekdayWithinHorizon(t *testing.T) {
	// 2024-06-03 is a Monday.
	monday := day(t, 2024, time.June, 3)
	preferred := calendar.Tuesday
	customer := adHocCustomer("Leipzig", &preferred)
	slots := []crm.TourSlot{
		{ID: "slot-1", Weekday: calendar.Tuesday, City: "Leipzig", Window: crm.TimeWindow{Start: "09:00", End: "11:00"}},
	}

	suggestions, err := SuggestSlots(nil, customer, slots, monday, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected exactly one suggestion, got %d", len(suggestions))
	}
	got := suggestions[0]
	if !got.Date.Equal(monday.AddDate(0, 0, 1)) {
		t.Fatalf("expected the following Tuesday, got %v", got.Date)
	}
	if got.Slot.ID != "slot-1" {
		t.Fatalf("expected the Leipzig slot, got %+v", got.Slot)
	}
	if got.CustomerID != customer.ID || got.CustomerName != customer.Name {
		t.Fatalf("suggestion must reference the customer, got %+v", got)
	}
}

func TestSuggestSlots_CityComparisonIgnoresCase(t *testing.T) {
	monday := day(t, 2024, time.June, 3)
	customer := adHocCustomer("leipzig", nil)
	slots := []crm.TourSlot{
		{ID: "slot-1", Weekday: calendar.Monday, City: "LEIPZIG", Window: crm.TimeWindow{Start: "08:00", End: "10:00"}},
	}

	suggestions, err := SuggestSlots(nil, customer, slots, monday, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected a case-insensitive city match, got %d suggestions", len(suggestions))
	}
}

func TestSuggestSlots_PreferredWeekdayRanksFirst(t *testing.T) {
	monday := day(t, 2024, time.June, 3)
	preferred := calendar.Thursday
	customer := adHocCustomer("Leipzig", &preferred)
	slots := []crm.TourSlot{
		{ID: "slot-mon", Weekday: calendar.Monday, City: "Leipzig", Window: crm.TimeWindow{Start: "08:00", End: "10:00"}},
		{ID: "slot-thu", Weekday: calendar.Thursday, City: "Leipzig", Window: crm.TimeWindow{Start: "13:00", End: "15:00"}},
	}

	suggestions, err := SuggestSlots(nil, customer, slots, monday, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected two suggestions, got %d", len(suggestions))
	}
	if suggestions[0].Slot.ID != "slot-thu" {
		t.Fatalf("expected the preferred Thursday slot first, got %s", suggestions[0].Slot.ID)
	}
	if suggestions[1].Slot.ID != "slot-mon" {
		t.Fatalf("expected the Monday slot second, got %s", suggestions[1].Slot.ID)
	}
}

func TestSuggestSlots_SameDayOrdersByWindowStart(t *testing.T) {
	monday := day(t, 2024, time.June, 3)
	customer := adHocCustomer("Leipzig", nil)
	slots := []crm.TourSlot{
		{ID: "slot-late", Weekday: calendar.Monday, City: "Leipzig", Window: crm.TimeWindow{Start: "14:00", End: "16:00"}},
		{ID: "slot-early", Weekday: calendar.Monday, City: "Leipzig", Window: crm.TimeWindow{Start: "09:00", End: "11:00"}},
	}

	suggestions, err := SuggestSlots(nil, customer, slots, monday, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 2 || suggestions[0].Slot.ID != "slot-early" {
		t.Fatalf("expected the earlier window first, got %+v", suggestions)
	}
}

func TestSuggestSlots_EdgeConditions(t *testing.T) {
	monday := day(t, 2024, time.June, 3)
	slots := []crm.TourSlot{
		{ID: "slot-1", Weekday: calendar.Monday, City: "Leipzig", Window: crm.TimeWindow{Start: "09:00", End: "11:00"}},
	}

	t.Run("non positive horizon is rejected", func(t *testing.T) {
		_, err := SuggestSlots(nil, adHocCustomer("Leipzig", nil), slots, monday, 0)
		if !errors.Is(err, ErrInvalidHorizon) {
			t.Fatalf("expected ErrInvalidHorizon, got %v", err)
		}
	})

	t.Run("non ad-hoc customer gets nothing", func(t *testing.T) {
		customer := adHocCustomer("Leipzig", nil)
		customer.Status = crm.StatusRegular
		suggestions, err := SuggestSlots(nil, customer, slots, monday, 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(suggestions) != 0 {
			t.Fatalf("expected no suggestions, got %d", len(suggestions))
		}
	})

	t.Run("no city match yields empty list", func(t *testing.T) {
		suggestions, err := SuggestSlots(nil, adHocCustomer("Dresden", nil), slots, monday, 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(suggestions) != 0 {
			t.Fatalf("expected no suggestions, got %d", len(suggestions))
		}
	})

	t.Run("empty slot set yields empty list", func(t *testing.T) {
		suggestions, err := SuggestSlots(nil, adHocCustomer("Leipzig", nil), nil, monday, 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(suggestions) != 0 {
			t.Fatalf("expected no suggestions, got %d", len(suggestions))
		}
	})

	t.Run("horizon excludes the day after its last slot", func(t *testing.T) {
		// Horizon of 7 starting Monday covers Monday..Sunday; the next
		// Monday is out of range, so exactly one match remains.
		suggestions, err := SuggestSlots(nil, adHocCustomer("Leipzig", nil), slots, monday, 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(suggestions) != 1 {
			t.Fatalf("expected one suggestion inside the horizon, got %d", len(suggestions))
		}
	})
}
