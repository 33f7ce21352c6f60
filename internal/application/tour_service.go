package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/tour"
)

// TourSlotRepository captures the persistence operations needed for tour
// slots.
type TourSlotRepository interface {
	CreateTourSlot(ctx context.Context, slot crm.TourSlot) error
	UpdateTourSlot(ctx context.Context, slot crm.TourSlot) error
	GetTourSlot(ctx context.Context, id string) (crm.TourSlot, error)
	ListTourSlots(ctx context.Context) ([]crm.TourSlot, error)
	DeleteTourSlot(ctx context.Context, id string) error
}

// TourService assembles day snapshots and slot suggestions from the store.
type TourService struct {
	customers   CustomerRepository
	lists       CustomerListRepository
	slots       TourSlotRepository
	aggregator  *tour.Aggregator
	idGenerator func() string
	now         func() time.Time
	loc         *time.Location
	logger      *slog.Logger
}

func NewTourService(customers CustomerRepository, lists CustomerListRepository, slots TourSlotRepository, aggregator *tour.Aggregator, loc *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TourService {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	if aggregator == nil {
		aggregator = tour.NewAggregator(nil, nil, 0, 0)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TourService{
		customers:   customers,
		lists:       lists,
		slots:       slots,
		aggregator:  aggregator,
		idGenerator: idGenerator,
		now:         now,
		loc:         loc,
		logger:      defaultLogger(logger),
	}
}

func (s *TourService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TourService", operation, attrs...)
}

// BuildTour loads the current customer and list snapshot and aggregates it
// for the reference day. A zero day means today.
func (s *TourService) BuildTour(ctx context.Context, day time.Time) (snapshot tour.Snapshot, err error) {
	if day.IsZero() {
		day = s.now()
	}
	logger := s.loggerWith(ctx, "BuildTour", "day", calendar.StartOfDay(day, s.loc).Format("2006-01-02"))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build tour", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "tour built",
			"overdue", snapshot.Stats.Overdue,
			"due_today", snapshot.Stats.DueToday,
			"upcoming", snapshot.Stats.Upcoming,
			"done", snapshot.Stats.Done,
		)
	}()

	customers, err := s.customers.ListCustomers(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	lists, err := s.lists.ListCustomerLists(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	snapshot, err = s.aggregator.Aggregate(day, customers, lists)
	return
}

// SuggestSlots matches an ad-hoc customer against the stored tour slots over
// the bounded horizon.
func (s *TourService) SuggestSlots(ctx context.Context, customerID string, startDate time.Time, horizonDays int) (suggestions []tour.Suggestion, err error) {
	logger := s.loggerWith(ctx, "SuggestSlots", "customer_id", customerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to suggest slots", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slots suggested", "count", len(suggestions))
	}()

	customer, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	slots, err := s.slots.ListTourSlots(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if startDate.IsZero() {
		startDate = s.now()
	}

	suggestions, err = tour.SuggestSlots(s.loc, customer, slots, startDate, horizonDays)
	return
}

// CreateTourSlot validates and persists a new tour slot.
func (s *TourService) CreateTourSlot(ctx context.Context, input TourSlotInput) (slot crm.TourSlot, err error) {
	logger := s.loggerWith(ctx, "CreateTourSlot")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create tour slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("slot_id", slot.ID).InfoContext(ctx, "tour slot created")
	}()

	vErr := validateTourSlotInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	slot = crm.TourSlot{
		ID:      s.idGenerator(),
		Weekday: input.Weekday,
		City:    strings.TrimSpace(input.City),
		Window:  input.Window,
	}
	if err = mapRepoError(s.slots.CreateTourSlot(ctx, slot)); err != nil {
		slot = crm.TourSlot{}
		return
	}
	return
}

// UpdateTourSlot validates and updates an existing tour slot.
func (s *TourService) UpdateTourSlot(ctx context.Context, id string, input TourSlotInput) (slot crm.TourSlot, err error) {
	logger := s.loggerWith(ctx, "UpdateTourSlot", "slot_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update tour slot", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	vErr := validateTourSlotInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	slot = crm.TourSlot{
		ID:      id,
		Weekday: input.Weekday,
		City:    strings.TrimSpace(input.City),
		Window:  input.Window,
	}
	if err = mapRepoError(s.slots.UpdateTourSlot(ctx, slot)); err != nil {
		slot = crm.TourSlot{}
		return
	}
	return
}

func (s *TourService) GetTourSlot(ctx context.Context, id string) (crm.TourSlot, error) {
	slot, err := s.slots.GetTourSlot(ctx, id)
	return slot, mapRepoError(err)
}

func (s *TourService) ListTourSlots(ctx context.Context) ([]crm.TourSlot, error) {
	slots, err := s.slots.ListTourSlots(ctx)
	return slots, mapRepoError(err)
}

func (s *TourService) DeleteTourSlot(ctx context.Context, id string) error {
	return mapRepoError(s.slots.DeleteTourSlot(ctx, id))
}

func validateTourSlotInput(input TourSlotInput) *ValidationError {
	vErr := &ValidationError{}

	if !input.Weekday.Valid() {
		vErr.add("weekday", "weekday must be between Monday and Sunday")
	}
	if strings.TrimSpace(input.City) == "" {
		vErr.add("city", "city is required")
	}
	if !validClock(input.Window.Start) || !validClock(input.Window.End) {
		vErr.add("window", "window times must be HH:MM wall clock values")
	} else if input.Window.End <= input.Window.Start {
		vErr.add("window", "window end must lie after its start")
	}

	return vErr
}

// validClock checks the HH:MM shape. Lexical comparison of two valid values
// matches chronological order.
func validClock(value string) bool {
	if _, err := time.Parse("15:04", value); err != nil {
		return false
	}
	return len(value) == 5
}
