package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
)

// RuleRepository captures the persistence operations needed by the rule
// service.
type RuleRepository interface {
	CreateRule(ctx context.Context, rule crm.Rule) error
	UpdateRule(ctx context.Context, rule crm.Rule) error
	GetRule(ctx context.Context, id string) (crm.Rule, error)
	ListRules(ctx context.Context) ([]crm.Rule, error)
	DeleteRule(ctx context.Context, id string) error
	IncrementRuleUsage(ctx context.Context, id string) error
}

// RuleService orchestrates rule templates and their materialization onto
// customers.
type RuleService struct {
	rules       RuleRepository
	customers   CustomerRepository
	cache       CacheInvalidator
	idGenerator func() string
	now         func() time.Time
	loc         *time.Location
	logger      *slog.Logger
}

func NewRuleService(rules RuleRepository, customers CustomerRepository, cache CacheInvalidator, loc *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RuleService {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RuleService{
		rules:       rules,
		customers:   customers,
		cache:       cache,
		idGenerator: idGenerator,
		now:         now,
		loc:         loc,
		logger:      defaultLogger(logger),
	}
}

func (s *RuleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RuleService", operation, attrs...)
}

// CreateRule validates the input and persists a new rule template.
func (s *RuleService) CreateRule(ctx context.Context, input RuleInput) (rule crm.Rule, err error) {
	logger := s.loggerWith(ctx, "CreateRule")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("rule_id", rule.ID).InfoContext(ctx, "rule created")
	}()

	vErr := validateRuleInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	rule = crm.Rule{
		ID:                 s.idGenerator(),
		Name:               strings.TrimSpace(input.Name),
		WeekdayBased:       input.WeekdayBased,
		PickupWeekday:      input.PickupWeekday,
		DeliveryWeekday:    input.DeliveryWeekday,
		DeliveryOffsetDays: input.DeliveryOffsetDays,
		PickupDate:         normalizeOptionalDay(input.PickupDate, s.loc),
		DeliveryDate:       normalizeOptionalDay(input.DeliveryDate, s.loc),
		Repeats:            input.Repeats,
		StepDays:           input.StepDays,
		MaxOccurrences:     input.MaxOccurrences,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err = mapRepoError(s.rules.CreateRule(ctx, rule)); err != nil {
		rule = crm.Rule{}
		return
	}
	return
}

// UpdateRule validates the input and updates an existing rule template. The
// usage counter is untouched.
func (s *RuleService) UpdateRule(ctx context.Context, id string, input RuleInput) (rule crm.Rule, err error) {
	logger := s.loggerWith(ctx, "UpdateRule", "rule_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "rule updated")
	}()

	vErr := validateRuleInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	rule, err = s.getRule(ctx, id)
	if err != nil {
		return
	}

	rule.Name = strings.TrimSpace(input.Name)
	rule.WeekdayBased = input.WeekdayBased
	rule.PickupWeekday = input.PickupWeekday
	rule.DeliveryWeekday = input.DeliveryWeekday
	rule.DeliveryOffsetDays = input.DeliveryOffsetDays
	rule.PickupDate = normalizeOptionalDay(input.PickupDate, s.loc)
	rule.DeliveryDate = normalizeOptionalDay(input.DeliveryDate, s.loc)
	rule.Repeats = input.Repeats
	rule.StepDays = input.StepDays
	rule.MaxOccurrences = input.MaxOccurrences
	rule.UpdatedAt = s.now()

	if err = mapRepoError(s.rules.UpdateRule(ctx, rule)); err != nil {
		rule = crm.Rule{}
		return
	}
	return
}

func (s *RuleService) GetRule(ctx context.Context, id string) (crm.Rule, error) {
	return s.getRule(ctx, id)
}

func (s *RuleService) ListRules(ctx context.Context) ([]crm.Rule, error) {
	rules, err := s.rules.ListRules(ctx)
	return rules, mapRepoError(err)
}

func (s *RuleService) DeleteRule(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "DeleteRule", "rule_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "rule deleted")
	}()

	err = mapRepoError(s.rules.DeleteRule(ctx, id))
	return
}

// ApplyRuleToCustomer materializes the rule into a fresh interval on the
// customer. Applying the same rule twice yields two independent intervals
// with distinct ids. The usage counter bump is best-effort: a failed
// increment is logged and swallowed, never surfaced to the caller.
func (s *RuleService) ApplyRuleToCustomer(ctx context.Context, ruleID, customerID string, today time.Time) (interval crm.Interval, err error) {
	logger := s.loggerWith(ctx, "ApplyRuleToCustomer", "rule_id", ruleID, "customer_id", customerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to apply rule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("interval_id", interval.ID).InfoContext(ctx, "rule applied")
	}()

	rule, err := s.getRule(ctx, ruleID)
	if err != nil {
		return
	}
	customer, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if today.IsZero() {
		today = s.now()
	}
	interval = s.materialize(rule, today)

	customer.Intervals = append(customer.Intervals, interval)
	customer.UpdatedAt = s.now()
	if err = mapRepoError(s.customers.UpdateCustomer(ctx, customer)); err != nil {
		interval = crm.Interval{}
		return
	}

	if incErr := s.rules.IncrementRuleUsage(ctx, ruleID); incErr != nil {
		logger.WarnContext(ctx, "usage counter increment lost", "error", incErr)
	}
	if s.cache != nil {
		s.cache.Invalidate(customerID)
	}
	return
}

// materialize turns the template into a concrete interval anchored at
// today. Weekday rules resolve to the next matching dates; literal rules
// copy their dates verbatim.
func (s *RuleService) materialize(rule crm.Rule, today time.Time) crm.Interval {
	interval := crm.Interval{
		ID:             s.idGenerator(),
		Repeats:        rule.Repeats,
		StepDays:       rule.StepDays,
		MaxOccurrences: rule.MaxOccurrences,
		SourceRuleID:   rule.ID,
		CreatedAt:      s.now(),
	}

	if !rule.WeekdayBased {
		interval.PickupBase = normalizeOptionalDay(rule.PickupDate, s.loc)
		interval.DeliveryBase = normalizeOptionalDay(rule.DeliveryDate, s.loc)
		return interval
	}

	pickup := calendar.NextWeekday(today, rule.PickupWeekday, s.loc)
	interval.PickupBase = pickup
	switch {
	case rule.DeliveryWeekday != nil:
		interval.DeliveryBase = calendar.NextWeekday(pickup, *rule.DeliveryWeekday, s.loc)
	case rule.DeliveryOffsetDays > 0:
		interval.DeliveryBase = calendar.AddDays(pickup, rule.DeliveryOffsetDays, s.loc)
	}
	return interval
}

func (s *RuleService) getRule(ctx context.Context, id string) (crm.Rule, error) {
	rule, err := s.rules.GetRule(ctx, id)
	if err != nil {
		return crm.Rule{}, mapRepoError(err)
	}
	return rule, nil
}

func validateRuleInput(input RuleInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.WeekdayBased {
		if !input.PickupWeekday.Valid() {
			vErr.add("pickupWeekday", "weekday must be between Monday and Sunday")
		}
		if input.DeliveryWeekday != nil && !input.DeliveryWeekday.Valid() {
			vErr.add("deliveryWeekday", "weekday must be between Monday and Sunday")
		}
		if !input.PickupDate.IsZero() || !input.DeliveryDate.IsZero() {
			vErr.add("pickupDate", "a weekday rule must not carry literal dates")
		}
	} else if input.PickupDate.IsZero() && input.DeliveryDate.IsZero() {
		vErr.add("pickupDate", "a literal rule needs at least one date")
	}
	if input.DeliveryOffsetDays < 0 {
		vErr.add("deliveryOffsetDays", "offset must not be negative")
	}
	if input.Repeats && input.StepDays < 1 {
		vErr.add("stepDays", "a repeating rule needs a step of at least one day")
	}
	if input.MaxOccurrences < 0 {
		vErr.add("maxOccurrences", "occurrence limit must not be negative")
	}

	return vErr
}

func normalizeOptionalDay(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return calendar.StartOfDay(t, loc)
}
