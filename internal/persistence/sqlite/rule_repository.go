package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/persistence"
)

// RuleRepository implements persistence.RuleRepository on SQLite.
type RuleRepository struct {
	store  *Store
	mapper *ErrorMapper
}

func NewRuleRepository(store *Store) *RuleRepository {
	return &RuleRepository{store: store, mapper: NewErrorMapper()}
}

func (r *RuleRepository) CreateRule(ctx context.Context, rule crm.Rule) error {
	if rule.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO rules
		(id, name, weekday_based, pickup_weekday, delivery_weekday, delivery_offset_days,
		 pickup_date, delivery_date, repeats, step_days, max_occurrences, usage_count,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.store.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.WeekdayBased,
		int(rule.PickupWeekday),
		nullableWeekday(rule.DeliveryWeekday),
		rule.DeliveryOffsetDays,
		optionalTime(rule.PickupDate),
		optionalTime(rule.DeliveryDate),
		rule.Repeats,
		rule.StepDays,
		rule.MaxOccurrences,
		rule.UsageCount,
		formatTime(rule.CreatedAt),
		formatTime(rule.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

func (r *RuleRepository) UpdateRule(ctx context.Context, rule crm.Rule) error {
	if rule.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE rules
		SET name = ?, weekday_based = ?, pickup_weekday = ?, delivery_weekday = ?,
		    delivery_offset_days = ?, pickup_date = ?, delivery_date = ?,
		    repeats = ?, step_days = ?, max_occurrences = ?, usage_count = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.store.db.ExecContext(ctx, query,
		rule.Name,
		rule.WeekdayBased,
		int(rule.PickupWeekday),
		nullableWeekday(rule.DeliveryWeekday),
		rule.DeliveryOffsetDays,
		optionalTime(rule.PickupDate),
		optionalTime(rule.DeliveryDate),
		rule.Repeats,
		rule.StepDays,
		rule.MaxOccurrences,
		rule.UsageCount,
		formatTime(rule.UpdatedAt),
		rule.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *RuleRepository) GetRule(ctx context.Context, id string) (crm.Rule, error) {
	if id == "" {
		return crm.Rule{}, persistence.ErrNotFound
	}
	row := r.store.db.QueryRowContext(ctx, ruleSelect+" WHERE id = ?", id)
	rule, err := scanRule(row)
	if err != nil {
		return crm.Rule{}, r.mapper.MapError(err)
	}
	return rule, nil
}

func (r *RuleRepository) ListRules(ctx context.Context) ([]crm.Rule, error) {
	rows, err := r.store.db.QueryContext(ctx, ruleSelect+" ORDER BY name ASC, id ASC")
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rules []crm.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *RuleRepository) DeleteRule(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// IncrementRuleUsage bumps the usage counter by one. The counter is
// best-effort: callers invoke it after materializing a rule and tolerate a
// lost increment.
func (r *RuleRepository) IncrementRuleUsage(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx,
		"UPDATE rules SET usage_count = usage_count + 1 WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const ruleSelect = `
	SELECT id, name, weekday_based, pickup_weekday, delivery_weekday, delivery_offset_days,
	       pickup_date, delivery_date, repeats, step_days, max_occurrences, usage_count,
	       created_at, updated_at
	FROM rules
`

func scanRule(row rowScanner) (crm.Rule, error) {
	var (
		rule            crm.Rule
		pickupWeekday   int64
		deliveryWeekday sql.NullInt64
		pickupDate      sql.NullString
		deliveryDate    sql.NullString
		createdAt       string
		updatedAt       string
	)
	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.WeekdayBased,
		&pickupWeekday,
		&deliveryWeekday,
		&rule.DeliveryOffsetDays,
		&pickupDate,
		&deliveryDate,
		&rule.Repeats,
		&rule.StepDays,
		&rule.MaxOccurrences,
		&rule.UsageCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return crm.Rule{}, err
	}
	rule.PickupWeekday = calendar.Weekday(pickupWeekday)
	rule.DeliveryWeekday = scanNullableWeekday(deliveryWeekday)
	if rule.PickupDate, err = scanOptionalTime(pickupDate); err != nil {
		return crm.Rule{}, err
	}
	if rule.DeliveryDate, err = scanOptionalTime(deliveryDate); err != nil {
		return crm.Rule{}, err
	}
	if rule.CreatedAt, err = parseTime(createdAt); err != nil {
		return crm.Rule{}, err
	}
	if rule.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return crm.Rule{}, err
	}
	return rule, nil
}
