package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/persistence"
)

// CustomerRepository captures the persistence operations needed by the
// customer service.
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer crm.Customer) error
	UpdateCustomer(ctx context.Context, customer crm.Customer) error
	GetCustomer(ctx context.Context, id string) (crm.Customer, error)
	ListCustomers(ctx context.Context) ([]crm.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

// CustomerService orchestrates validation, persistence and cache
// invalidation for customers and their scheduling state.
type CustomerService struct {
	customers   CustomerRepository
	cache       CacheInvalidator
	idGenerator func() string
	now         func() time.Time
	loc         *time.Location
	logger      *slog.Logger
}

func NewCustomerService(customers CustomerRepository, cache CacheInvalidator, loc *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CustomerService {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CustomerService{
		customers:   customers,
		cache:       cache,
		idGenerator: idGenerator,
		now:         now,
		loc:         loc,
		logger:      defaultLogger(logger),
	}
}

func (s *CustomerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CustomerService", operation, attrs...)
}

func (s *CustomerService) invalidate(customerID string) {
	if s.cache != nil {
		s.cache.Invalidate(customerID)
	}
}

// CreateCustomer validates the input and persists a new customer.
func (s *CustomerService) CreateCustomer(ctx context.Context, input CustomerInput) (customer crm.Customer, err error) {
	logger := s.loggerWith(ctx, "CreateCustomer")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create customer", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("customer_id", customer.ID).InfoContext(ctx, "customer created")
	}()

	vErr := validateCustomerInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	customer = crm.Customer{
		ID:               s.idGenerator(),
		Name:             strings.TrimSpace(input.Name),
		City:             strings.TrimSpace(input.City),
		Status:           input.Status,
		PreferredWeekday: input.PreferredWeekday,
		PickupWeekdays:   input.PickupWeekdays,
		DeliveryWeekdays: input.DeliveryWeekdays,
		ListID:           input.ListID,
		ListTerms:        normalizeTerms(input.ListTerms, s.loc),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err = mapRepoError(s.customers.CreateCustomer(ctx, customer)); err != nil {
		customer = crm.Customer{}
		return
	}
	return
}

// UpdateCustomer replaces the customer's profile fields while keeping its
// scheduling state (intervals, vacations, completion markers) untouched.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id string, input CustomerInput) (customer crm.Customer, err error) {
	logger := s.loggerWith(ctx, "UpdateCustomer", "customer_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update customer", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "customer updated")
	}()

	vErr := validateCustomerInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	customer, err = s.getCustomer(ctx, id)
	if err != nil {
		return
	}

	customer.Name = strings.TrimSpace(input.Name)
	customer.City = strings.TrimSpace(input.City)
	customer.Status = input.Status
	customer.PreferredWeekday = input.PreferredWeekday
	customer.PickupWeekdays = input.PickupWeekdays
	customer.DeliveryWeekdays = input.DeliveryWeekdays
	customer.ListID = input.ListID
	customer.ListTerms = normalizeTerms(input.ListTerms, s.loc)
	customer.UpdatedAt = s.now()

	if err = mapRepoError(s.customers.UpdateCustomer(ctx, customer)); err != nil {
		customer = crm.Customer{}
		return
	}
	s.invalidate(id)
	return
}

func (s *CustomerService) GetCustomer(ctx context.Context, id string) (crm.Customer, error) {
	return s.getCustomer(ctx, id)
}

func (s *CustomerService) ListCustomers(ctx context.Context) ([]crm.Customer, error) {
	customers, err := s.customers.ListCustomers(ctx)
	return customers, mapRepoError(err)
}

func (s *CustomerService) DeleteCustomer(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "DeleteCustomer", "customer_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete customer", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "customer deleted")
	}()

	if err = mapRepoError(s.customers.DeleteCustomer(ctx, id)); err != nil {
		return
	}
	s.invalidate(id)
	return
}

// AddVacation appends an inclusive vacation range. The start is normalized
// to local midnight and the end to the last instant of its day.
func (s *CustomerService) AddVacation(ctx context.Context, id string, from, to time.Time) (customer crm.Customer, err error) {
	logger := s.loggerWith(ctx, "AddVacation", "customer_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add vacation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "vacation added")
	}()

	entry := crm.VacationEntry{
		From: calendar.StartOfDay(from, s.loc),
		To:   calendar.EndOfDay(to, s.loc),
	}
	if entry.To.Before(entry.From) {
		vErr := &ValidationError{}
		vErr.add("to", "vacation end must not precede its start")
		err = vErr
		return
	}

	customer, err = s.getCustomer(ctx, id)
	if err != nil {
		return
	}
	customer.Vacations = append(customer.Vacations, entry)
	customer.UpdatedAt = s.now()

	if err = mapRepoError(s.customers.UpdateCustomer(ctx, customer)); err != nil {
		customer = crm.Customer{}
		return
	}
	s.invalidate(id)
	return
}

// RemoveVacation deletes the vacation range at the given position.
func (s *CustomerService) RemoveVacation(ctx context.Context, id string, index int) (customer crm.Customer, err error) {
	logger := s.loggerWith(ctx, "RemoveVacation", "customer_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove vacation", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	customer, err = s.getCustomer(ctx, id)
	if err != nil {
		return
	}
	periods := customer.VacationPeriods()
	if index < 0 || index >= len(periods) {
		err = ErrNotFound
		customer = crm.Customer{}
		return
	}
	customer.Vacations = append(periods[:index:index], periods[index+1:]...)
	customer.LegacyVacation = nil
	customer.UpdatedAt = s.now()

	if err = mapRepoError(s.customers.UpdateCustomer(ctx, customer)); err != nil {
		customer = crm.Customer{}
		return
	}
	s.invalidate(id)
	return
}

// MarkCompleted records a completed visit for the appointment type. The
// reschedule override is consumed by the completion and cleared.
func (s *CustomerService) MarkCompleted(ctx context.Context, id string, t crm.AppointmentType, at time.Time) (customer crm.Customer, err error) {
	logger := s.loggerWith(ctx, "MarkCompleted", "customer_id", id, "appointment_type", string(t))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark completion", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "visit completed")
	}()

	if !t.Valid() {
		vErr := &ValidationError{}
		vErr.add("type", "appointment type must be pickup or delivery")
		err = vErr
		return
	}

	customer, err = s.getCustomer(ctx, id)
	if err != nil {
		return
	}

	stamp := at
	if stamp.IsZero() {
		stamp = s.now()
	}
	switch t {
	case crm.Pickup:
		customer.PickupDone = true
		customer.PickupDoneAt = &stamp
	case crm.Delivery:
		customer.DeliveryDone = true
		customer.DeliveryDoneAt = &stamp
	}
	customer.RescheduledTo = nil
	customer.UpdatedAt = s.now()

	if err = mapRepoError(s.customers.UpdateCustomer(ctx, customer)); err != nil {
		customer = crm.Customer{}
		return
	}
	s.invalidate(id)
	return
}

// ClearCompletion reopens the appointment type by dropping its completion
// marker.
func (s *CustomerService) ClearCompletion(ctx context.Context, id string, t crm.AppointmentType) (customer crm.Customer, err error) {
	logger := s.loggerWith(ctx, "ClearCompletion", "customer_id", id, "appointment_type", string(t))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to clear completion", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if !t.Valid() {
		vErr := &ValidationError{}
		vErr.add("type", "appointment type must be pickup or delivery")
		err = vErr
		return
	}

	customer, err = s.getCustomer(ctx, id)
	if err != nil {
		return
	}
	switch t {
	case crm.Pickup:
		customer.PickupDone = false
		customer.PickupDoneAt = nil
	case crm.Delivery:
		customer.DeliveryDone = false
		customer.DeliveryDoneAt = nil
	}
	customer.UpdatedAt = s.now()

	if err = mapRepoError(s.customers.UpdateCustomer(ctx, customer)); err != nil {
		customer = crm.Customer{}
		return
	}
	s.invalidate(id)
	return
}

// Reschedule moves the customer's next open occurrence to the given day.
func (s *CustomerService) Reschedule(ctx context.Context, id string, to time.Time) (customer crm.Customer, err error) {
	logger := s.loggerWith(ctx, "Reschedule", "customer_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reschedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "customer rescheduled")
	}()

	if to.IsZero() {
		vErr := &ValidationError{}
		vErr.add("to", "reschedule date is required")
		err = vErr
		return
	}

	customer, err = s.getCustomer(ctx, id)
	if err != nil {
		return
	}
	day := calendar.StartOfDay(to, s.loc)
	customer.RescheduledTo = &day
	customer.UpdatedAt = s.now()

	if err = mapRepoError(s.customers.UpdateCustomer(ctx, customer)); err != nil {
		customer = crm.Customer{}
		return
	}
	s.invalidate(id)
	return
}

// ClearReschedule drops the reschedule override.
func (s *CustomerService) ClearReschedule(ctx context.Context, id string) (customer crm.Customer, err error) {
	logger := s.loggerWith(ctx, "ClearReschedule", "customer_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to clear reschedule", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	customer, err = s.getCustomer(ctx, id)
	if err != nil {
		return
	}
	customer.RescheduledTo = nil
	customer.UpdatedAt = s.now()

	if err = mapRepoError(s.customers.UpdateCustomer(ctx, customer)); err != nil {
		customer = crm.Customer{}
		return
	}
	s.invalidate(id)
	return
}

func (s *CustomerService) getCustomer(ctx context.Context, id string) (crm.Customer, error) {
	if s.customers == nil {
		return crm.Customer{}, fmt.Errorf("customer repository not configured")
	}
	customer, err := s.customers.GetCustomer(ctx, id)
	if err != nil {
		return crm.Customer{}, mapRepoError(err)
	}
	return customer, nil
}

func validateCustomerInput(input CustomerInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if !input.Status.Valid() {
		vErr.add("status", "status must be regular, irregular, ad_hoc or paused")
	}
	if input.PreferredWeekday != nil && !input.PreferredWeekday.Valid() {
		vErr.add("preferredWeekday", "weekday must be between Monday and Sunday")
	}
	for _, day := range input.PickupWeekdays {
		if !day.Valid() {
			vErr.add("pickupWeekdays", "weekday must be between Monday and Sunday")
			break
		}
	}
	for _, day := range input.DeliveryWeekdays {
		if !day.Valid() {
			vErr.add("deliveryWeekdays", "weekday must be between Monday and Sunday")
			break
		}
	}
	for _, term := range input.ListTerms {
		if !term.Type.Valid() || term.Date.IsZero() {
			vErr.add("listTerms", "terms need a date and a pickup or delivery type")
			break
		}
	}

	return vErr
}

func normalizeTerms(terms []crm.ListTerm, loc *time.Location) []crm.ListTerm {
	if len(terms) == 0 {
		return nil
	}
	out := make([]crm.ListTerm, len(terms))
	for i, term := range terms {
		out[i] = crm.ListTerm{Date: calendar.StartOfDay(term.Date, loc), Type: term.Type}
	}
	return out
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("request", "conflicts with stored data")
		return vErr
	}
	return err
}
