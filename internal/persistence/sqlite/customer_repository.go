package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/persistence"
)

// CustomerRepository implements persistence.CustomerRepository on SQLite.
// Intervals, vacations and personal terms live in child tables and are
// written together with the customer row in one transaction.
type CustomerRepository struct {
	store  *Store
	mapper *ErrorMapper
}

func NewCustomerRepository(store *Store) *CustomerRepository {
	return &CustomerRepository{store: store, mapper: NewErrorMapper()}
}

func (r *CustomerRepository) CreateCustomer(ctx context.Context, customer crm.Customer) error {
	if customer.ID == "" || !customer.Status.Valid() {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO customers
			(id, name, city, status, preferred_weekday, pickup_weekdays, delivery_weekdays,
			 list_id, rescheduled_to, pickup_done, pickup_done_at, delivery_done, delivery_done_at,
			 created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query,
			customer.ID,
			customer.Name,
			customer.City,
			string(customer.Status),
			nullableWeekday(customer.PreferredWeekday),
			encodeWeekdays(customer.PickupWeekdays),
			encodeWeekdays(customer.DeliveryWeekdays),
			nullableString(customer.ListID),
			nullableTime(customer.RescheduledTo),
			customer.PickupDone,
			nullableTime(customer.PickupDoneAt),
			customer.DeliveryDone,
			nullableTime(customer.DeliveryDoneAt),
			formatTime(customer.CreatedAt),
			formatTime(customer.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.writeChildrenTx(ctx, tx, customer)
	})
}

func (r *CustomerRepository) UpdateCustomer(ctx context.Context, customer crm.Customer) error {
	if customer.ID == "" || !customer.Status.Valid() {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE customers
			SET name = ?, city = ?, status = ?, preferred_weekday = ?,
			    pickup_weekdays = ?, delivery_weekdays = ?, list_id = ?, rescheduled_to = ?,
			    pickup_done = ?, pickup_done_at = ?, delivery_done = ?, delivery_done_at = ?,
			    updated_at = ?
			WHERE id = ?
		`
		result, err := tx.ExecContext(ctx, query,
			customer.Name,
			customer.City,
			string(customer.Status),
			nullableWeekday(customer.PreferredWeekday),
			encodeWeekdays(customer.PickupWeekdays),
			encodeWeekdays(customer.DeliveryWeekdays),
			nullableString(customer.ListID),
			nullableTime(customer.RescheduledTo),
			customer.PickupDone,
			nullableTime(customer.PickupDoneAt),
			customer.DeliveryDone,
			nullableTime(customer.DeliveryDoneAt),
			formatTime(customer.UpdatedAt),
			customer.ID,
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

		for _, table := range []string{"customer_intervals", "customer_vacations", "customer_terms"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE customer_id = ?", customer.ID); err != nil {
				return r.mapper.MapError(err)
			}
		}
		return r.writeChildrenTx(ctx, tx, customer)
	})
}

func (r *CustomerRepository) writeChildrenTx(ctx context.Context, tx *sql.Tx, customer crm.Customer) error {
	for i, interval := range customer.Intervals {
		if interval.ID == "" {
			return persistence.ErrConstraintViolation
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO customer_intervals
			(id, customer_id, position, pickup_base, delivery_base, repeats, step_days, max_occurrences, source_rule_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			interval.ID,
			customer.ID,
			i,
			optionalTime(interval.PickupBase),
			optionalTime(interval.DeliveryBase),
			interval.Repeats,
			interval.StepDays,
			interval.MaxOccurrences,
			nullableString(interval.SourceRuleID),
			formatTime(interval.CreatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}

	// The legacy single entry is folded into the normalized rows on write.
	for i, vacation := range customer.VacationPeriods() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO customer_vacations (customer_id, position, from_day, to_day)
			VALUES (?, ?, ?, ?)
		`, customer.ID, i, formatTime(vacation.From), formatTime(vacation.To))
		if err != nil {
			return r.mapper.MapError(err)
		}
	}

	for i, term := range customer.ListTerms {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO customer_terms (customer_id, position, term_date, term_type)
			VALUES (?, ?, ?, ?)
		`, customer.ID, i, formatTime(term.Date), string(term.Type))
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *CustomerRepository) GetCustomer(ctx context.Context, id string) (crm.Customer, error) {
	if id == "" {
		return crm.Customer{}, persistence.ErrNotFound
	}

	row := r.store.db.QueryRowContext(ctx, customerSelect+" WHERE id = ?", id)
	customer, err := scanCustomer(row)
	if err != nil {
		return crm.Customer{}, r.mapper.MapError(err)
	}
	if err := r.loadChildren(ctx, map[string]*crm.Customer{customer.ID: &customer}); err != nil {
		return crm.Customer{}, err
	}
	return customer, nil
}

func (r *CustomerRepository) ListCustomers(ctx context.Context) ([]crm.Customer, error) {
	rows, err := r.store.db.QueryContext(ctx, customerSelect+" ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var customers []crm.Customer
	byID := make(map[string]*crm.Customer)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	for i := range customers {
		byID[customers[i].ID] = &customers[i]
	}
	if err := r.loadChildren(ctx, byID); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *CustomerRepository) DeleteCustomer(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
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

const customerSelect = `
	SELECT id, name, city, status, preferred_weekday, pickup_weekdays, delivery_weekdays,
	       list_id, rescheduled_to, pickup_done, pickup_done_at, delivery_done, delivery_done_at,
	       created_at, updated_at
	FROM customers
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (crm.Customer, error) {
	var (
		customer         crm.Customer
		status           string
		preferredWeekday sql.NullInt64
		pickupWeekdays   string
		deliveryWeekdays string
		listID           sql.NullString
		rescheduledTo    sql.NullString
		pickupDoneAt     sql.NullString
		deliveryDoneAt   sql.NullString
		createdAt        string
		updatedAt        string
	)

	err := row.Scan(
		&customer.ID,
		&customer.Name,
		&customer.City,
		&status,
		&preferredWeekday,
		&pickupWeekdays,
		&deliveryWeekdays,
		&listID,
		&rescheduledTo,
		&customer.PickupDone,
		&pickupDoneAt,
		&customer.DeliveryDone,
		&deliveryDoneAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return crm.Customer{}, err
	}

	customer.Status = crm.CustomerStatus(status)
	customer.PreferredWeekday = scanNullableWeekday(preferredWeekday)
	if customer.PickupWeekdays, err = decodeWeekdays(pickupWeekdays); err != nil {
		return crm.Customer{}, err
	}
	if customer.DeliveryWeekdays, err = decodeWeekdays(deliveryWeekdays); err != nil {
		return crm.Customer{}, err
	}
	customer.ListID = listID.String
	if customer.RescheduledTo, err = scanNullableTime(rescheduledTo); err != nil {
		return crm.Customer{}, err
	}
	if customer.PickupDoneAt, err = scanNullableTime(pickupDoneAt); err != nil {
		return crm.Customer{}, err
	}
	if customer.DeliveryDoneAt, err = scanNullableTime(deliveryDoneAt); err != nil {
		return crm.Customer{}, err
	}
	if customer.CreatedAt, err = parseTime(createdAt); err != nil {
		return crm.Customer{}, err
	}
	if customer.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return crm.Customer{}, err
	}
	return customer, nil
}

func (r *CustomerRepository) loadChildren(ctx context.Context, byID map[string]*crm.Customer) error {
	if len(byID) == 0 {
		return nil
	}

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, customer_id, pickup_base, delivery_base, repeats, step_days, max_occurrences, source_rule_id, created_at
		FROM customer_intervals ORDER BY customer_id, position
	`)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			interval     crm.Interval
			customerID   string
			pickupBase   sql.NullString
			deliveryBase sql.NullString
			sourceRuleID sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&interval.ID, &customerID, &pickupBase, &deliveryBase,
			&interval.Repeats, &interval.StepDays, &interval.MaxOccurrences, &sourceRuleID, &createdAt); err != nil {
			return r.mapper.MapError(err)
		}
		if interval.PickupBase, err = scanOptionalTime(pickupBase); err != nil {
			return err
		}
		if interval.DeliveryBase, err = scanOptionalTime(deliveryBase); err != nil {
			return err
		}
		interval.SourceRuleID = sourceRuleID.String
		if interval.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		if customer, ok := byID[customerID]; ok {
			customer.Intervals = append(customer.Intervals, interval)
		}
	}
	if err := rows.Err(); err != nil {
		return r.mapper.MapError(err)
	}

	vacationRows, err := r.store.db.QueryContext(ctx, `
		SELECT customer_id, from_day, to_day FROM customer_vacations ORDER BY customer_id, position
	`)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer vacationRows.Close()
	for vacationRows.Next() {
		var customerID, fromDay, toDay string
		if err := vacationRows.Scan(&customerID, &fromDay, &toDay); err != nil {
			return r.mapper.MapError(err)
		}
		var entry crm.VacationEntry
		if entry.From, err = parseTime(fromDay); err != nil {
			return err
		}
		if entry.To, err = parseTime(toDay); err != nil {
			return err
		}
		if customer, ok := byID[customerID]; ok {
			customer.Vacations = append(customer.Vacations, entry)
		}
	}
	if err := vacationRows.Err(); err != nil {
		return r.mapper.MapError(err)
	}

	termRows, err := r.store.db.QueryContext(ctx, `
		SELECT customer_id, term_date, term_type FROM customer_terms ORDER BY customer_id, position
	`)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer termRows.Close()
	for termRows.Next() {
		var customerID, termDate, termType string
		if err := termRows.Scan(&customerID, &termDate, &termType); err != nil {
			return r.mapper.MapError(err)
		}
		var term crm.ListTerm
		if term.Date, err = parseTime(termDate); err != nil {
			return err
		}
		term.Type = crm.AppointmentType(termType)
		if customer, ok := byID[customerID]; ok {
			customer.ListTerms = append(customer.ListTerms, term)
		}
	}
	return termRows.Err()
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
