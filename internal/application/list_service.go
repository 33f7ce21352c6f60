package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
)

// CustomerListRepository captures the persistence operations needed by the
// list service.
type CustomerListRepository interface {
	CreateCustomerList(ctx context.Context, list crm.CustomerList) error
	UpdateCustomerList(ctx context.Context, list crm.CustomerList) error
	GetCustomerList(ctx context.Context, id string) (crm.CustomerList, error)
	ListCustomerLists(ctx context.Context) ([]crm.CustomerList, error)
	DeleteCustomerList(ctx context.Context, id string) error
}

// ListService orchestrates validation and persistence for customer lists.
// List writes can change the schedule of every member, so they flush the
// whole tour cache.
type ListService struct {
	lists       CustomerListRepository
	cache       CacheInvalidator
	idGenerator func() string
	now         func() time.Time
	loc         *time.Location
	logger      *slog.Logger
}

func NewListService(lists CustomerListRepository, cache CacheInvalidator, loc *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ListService {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ListService{
		lists:       lists,
		cache:       cache,
		idGenerator: idGenerator,
		now:         now,
		loc:         loc,
		logger:      defaultLogger(logger),
	}
}

func (s *ListService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ListService", operation, attrs...)
}

func (s *ListService) invalidateAll() {
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
}

// CreateList validates the input and persists a new customer list.
func (s *ListService) CreateList(ctx context.Context, input ListInput) (list crm.CustomerList, err error) {
	logger := s.loggerWith(ctx, "CreateList")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create list", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("list_id", list.ID).InfoContext(ctx, "list created")
	}()

	vErr := validateListInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	list = crm.CustomerList{
		ID:                   s.idGenerator(),
		Name:                 strings.TrimSpace(input.Name),
		Weekday:              input.Weekday,
		Terms:                normalizeTerms(input.Terms, s.loc),
		WeekdayForPickup:     input.WeekdayForPickup,
		DaysPickupToDelivery: input.DaysPickupToDelivery,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err = mapRepoError(s.lists.CreateCustomerList(ctx, list)); err != nil {
		list = crm.CustomerList{}
		return
	}
	return
}

// UpdateList validates the input and updates an existing list.
func (s *ListService) UpdateList(ctx context.Context, id string, input ListInput) (list crm.CustomerList, err error) {
	logger := s.loggerWith(ctx, "UpdateList", "list_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update list", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "list updated")
	}()

	vErr := validateListInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	list, err = s.getList(ctx, id)
	if err != nil {
		return
	}

	list.Name = strings.TrimSpace(input.Name)
	list.Weekday = input.Weekday
	list.Terms = normalizeTerms(input.Terms, s.loc)
	list.WeekdayForPickup = input.WeekdayForPickup
	list.DaysPickupToDelivery = input.DaysPickupToDelivery
	list.UpdatedAt = s.now()

	if err = mapRepoError(s.lists.UpdateCustomerList(ctx, list)); err != nil {
		list = crm.CustomerList{}
		return
	}
	s.invalidateAll()
	return
}

func (s *ListService) GetList(ctx context.Context, id string) (crm.CustomerList, error) {
	return s.getList(ctx, id)
}

func (s *ListService) ListLists(ctx context.Context) ([]crm.CustomerList, error) {
	lists, err := s.lists.ListCustomerLists(ctx)
	return lists, mapRepoError(err)
}

func (s *ListService) DeleteList(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "DeleteList", "list_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete list", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "list deleted")
	}()

	if err = mapRepoError(s.lists.DeleteCustomerList(ctx, id)); err != nil {
		return
	}
	s.invalidateAll()
	return
}

// GenerateNextTerms appends the next pickup/delivery term pair to a term
// list, derived from its pickup weekday and pickup-to-delivery distance. The
// pickup lands on the first matching weekday strictly after the list's last
// pickup term, or after fromDay when the list has no terms yet.
func (s *ListService) GenerateNextTerms(ctx context.Context, id string, fromDay time.Time) (list crm.CustomerList, err error) {
	logger := s.loggerWith(ctx, "GenerateNextTerms", "list_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to generate terms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "term pair generated")
	}()

	list, err = s.getList(ctx, id)
	if err != nil {
		return
	}

	vErr := &ValidationError{}
	if !list.IsTermList() {
		vErr.add("list", "terms can only be generated for term lists")
	}
	if list.WeekdayForPickup == nil {
		vErr.add("weekdayForPickup", "the list has no pickup weekday configured")
	}
	if vErr.HasErrors() {
		err = vErr
		list = crm.CustomerList{}
		return
	}

	after := calendar.StartOfDay(fromDay, s.loc)
	if pickups := list.TermsOfType(crm.Pickup); len(pickups) > 0 {
		last := pickups[len(pickups)-1].Date
		if last.After(after) {
			after = last
		}
	}

	pickup := calendar.NextWeekday(calendar.AddDays(after, 1, s.loc), *list.WeekdayForPickup, s.loc)
	list.Terms = append(list.Terms, crm.ListTerm{Date: pickup, Type: crm.Pickup})
	if list.DaysPickupToDelivery > 0 {
		delivery := calendar.AddDays(pickup, list.DaysPickupToDelivery, s.loc)
		list.Terms = append(list.Terms, crm.ListTerm{Date: delivery, Type: crm.Delivery})
	}
	list.UpdatedAt = s.now()

	if err = mapRepoError(s.lists.UpdateCustomerList(ctx, list)); err != nil {
		list = crm.CustomerList{}
		return
	}
	s.invalidateAll()
	return
}

func (s *ListService) getList(ctx context.Context, id string) (crm.CustomerList, error) {
	list, err := s.lists.GetCustomerList(ctx, id)
	if err != nil {
		return crm.CustomerList{}, mapRepoError(err)
	}
	return list, nil
}

// validateListInput enforces that a list is either weekday based or term
// based, never both.
func validateListInput(input ListInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Weekday != crm.TermListWeekday && !input.Weekday.Valid() {
		vErr.add("weekday", "weekday must be between Monday and Sunday, or -1 for a term list")
	}
	if input.Weekday != crm.TermListWeekday && len(input.Terms) > 0 {
		vErr.add("terms", "a weekday list cannot carry terms")
	}
	if input.WeekdayForPickup != nil && !input.WeekdayForPickup.Valid() {
		vErr.add("weekdayForPickup", "weekday must be between Monday and Sunday")
	}
	if input.DaysPickupToDelivery < 0 {
		vErr.add("daysPickupToDelivery", "distance must not be negative")
	}
	for _, term := range input.Terms {
		if !term.Type.Valid() || term.Date.IsZero() {
			vErr.add("terms", "terms need a date and a pickup or delivery type")
			break
		}
	}

	return vErr
}
