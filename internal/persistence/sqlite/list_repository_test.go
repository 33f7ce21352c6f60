package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/persistence"
)

func TestCustomerListRepository_WeekdayListRoundTrip(t *testing.T) {
	store := setupStore(t)
	repo := NewCustomerListRepository(store)
	ctx := context.Background()

	created := testDay(t, 2024, time.June, 1)
	list := crm.CustomerList{
		ID:        "list-1",
		Name:      "Tuesday route",
		Weekday:   calendar.Tuesday,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := repo.CreateCustomerList(ctx, list); err != nil {
		t.Fatalf("CreateCustomerList failed: %v", err)
	}

	got, err := repo.GetCustomerList(ctx, "list-1")
	if err != nil {
		t.Fatalf("GetCustomerList failed: %v", err)
	}
	if !got.IsWeekdayList() || got.Weekday != calendar.Tuesday {
		t.Errorf("expected a Tuesday weekday list, got %+v", got)
	}
	if len(got.Terms) != 0 {
		t.Errorf("weekday list must carry no terms, got %+v", got.Terms)
	}
}

func TestCustomerListRepository_TermListRoundTrip(t *testing.T) {
	store := setupStore(t)
	repo := NewCustomerListRepository(store)
	ctx := context.Background()

	created := testDay(t, 2024, time.June, 1)
	pickupWeekday := calendar.Thursday
	list := crm.CustomerList{
		ID:      "list-1",
		Name:    "Hotel terms",
		Weekday: crm.TermListWeekday,
		Terms: []crm.ListTerm{
			{Date: testDay(t, 2024, time.June, 6), Type: crm.Pickup},
			{Date: testDay(t, 2024, time.June, 8), Type: crm.Delivery},
		},
		WeekdayForPickup:     &pickupWeekday,
		DaysPickupToDelivery: 2,
		CreatedAt:            created,
		UpdatedAt:            created,
	}
	if err := repo.CreateCustomerList(ctx, list); err != nil {
		t.Fatalf("CreateCustomerList failed: %v", err)
	}

	got, err := repo.GetCustomerList(ctx, "list-1")
	if err != nil {
		t.Fatalf("GetCustomerList failed: %v", err)
	}
	if !got.IsTermList() {
		t.Fatalf("expected a term list, got weekday %v", got.Weekday)
	}
	if len(got.Terms) != 2 || got.Terms[0].Type != crm.Pickup || got.Terms[1].Type != crm.Delivery {
		t.Fatalf("expected ordered terms, got %+v", got.Terms)
	}
	if got.WeekdayForPickup == nil || *got.WeekdayForPickup != calendar.Thursday || got.DaysPickupToDelivery != 2 {
		t.Errorf("unexpected term generation helpers: %+v", got)
	}
}

func TestCustomerListRepository_UpdateReplacesTerms(t *testing.T) {
	store := setupStore(t)
	repo := NewCustomerListRepository(store)
	ctx := context.Background()

	created := testDay(t, 2024, time.June, 1)
	list := crm.CustomerList{
		ID:      "list-1",
		Name:    "Hotel terms",
		Weekday: crm.TermListWeekday,
		Terms: []crm.ListTerm{
			{Date: testDay(t, 2024, time.June, 6), Type: crm.Pickup},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := repo.CreateCustomerList(ctx, list); err != nil {
		t.Fatalf("CreateCustomerList failed: %v", err)
	}

	list.Terms = []crm.ListTerm{
		{Date: testDay(t, 2024, time.June, 13), Type: crm.Pickup},
		{Date: testDay(t, 2024, time.June, 15), Type: crm.Delivery},
	}
	list.UpdatedAt = created.AddDate(0, 0, 1)
	if err := repo.UpdateCustomerList(ctx, list); err != nil {
		t.Fatalf("UpdateCustomerList failed: %v", err)
	}

	got, err := repo.GetCustomerList(ctx, "list-1")
	if err != nil {
		t.Fatalf("GetCustomerList failed: %v", err)
	}
	if len(got.Terms) != 2 || !got.Terms[0].Date.Equal(list.Terms[0].Date) {
		t.Fatalf("expected replaced terms, got %+v", got.Terms)
	}
}

func TestCustomerListRepository_DeleteClearsMemberReference(t *testing.T) {
	store := setupStore(t)
	listRepo := NewCustomerListRepository(store)
	customerRepo := NewCustomerRepository(store)
	ctx := context.Background()

	created := testDay(t, 2024, time.June, 1)
	list := crm.CustomerList{ID: "list-1", Name: "Tuesday route", Weekday: calendar.Tuesday, CreatedAt: created, UpdatedAt: created}
	if err := listRepo.CreateCustomerList(ctx, list); err != nil {
		t.Fatalf("CreateCustomerList failed: %v", err)
	}
	customer := crm.Customer{ID: "cust-1", Name: "Vogel", Status: crm.StatusRegular, ListID: "list-1", CreatedAt: created, UpdatedAt: created}
	if err := customerRepo.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}

	if err := listRepo.DeleteCustomerList(ctx, "list-1"); err != nil {
		t.Fatalf("DeleteCustomerList failed: %v", err)
	}

	got, err := customerRepo.GetCustomer(ctx, "cust-1")
	if err != nil {
		t.Fatalf("GetCustomer failed: %v", err)
	}
	if got.ListID != "" {
		t.Fatalf("expected membership to clear when the list is deleted, got %q", got.ListID)
	}
}

func TestCustomerListRepository_NotFound(t *testing.T) {
	store := setupStore(t)
	repo := NewCustomerListRepository(store)
	ctx := context.Background()

	if _, err := repo.GetCustomerList(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteCustomerList(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	created := testDay(t, 2024, time.June, 1)
	list := crm.CustomerList{ID: "list-1", Name: "Route", Weekday: calendar.Monday, CreatedAt: created, UpdatedAt: created}
	if err := repo.UpdateCustomerList(ctx, list); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}
