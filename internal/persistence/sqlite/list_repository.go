package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/persistence"
)

// CustomerListRepository implements persistence.CustomerListRepository on
// SQLite. List terms live in a child table keyed by stored order.
type CustomerListRepository struct {
	store  *Store
	mapper *ErrorMapper
}

func NewCustomerListRepository(store *Store) *CustomerListRepository {
	return &CustomerListRepository{store: store, mapper: NewErrorMapper()}
}

func (r *CustomerListRepository) CreateCustomerList(ctx context.Context, list crm.CustomerList) error {
	if list.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO customer_lists
			(id, name, weekday, weekday_for_pickup, days_pickup_to_delivery, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			list.ID,
			list.Name,
			int(list.Weekday),
			nullableWeekday(list.WeekdayForPickup),
			list.DaysPickupToDelivery,
			formatTime(list.CreatedAt),
			formatTime(list.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.writeTermsTx(ctx, tx, list)
	})
}

func (r *CustomerListRepository) UpdateCustomerList(ctx context.Context, list crm.CustomerList) error {
	if list.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.store.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE customer_lists
			SET name = ?, weekday = ?, weekday_for_pickup = ?, days_pickup_to_delivery = ?, updated_at = ?
			WHERE id = ?
		`,
			list.Name,
			int(list.Weekday),
			nullableWeekday(list.WeekdayForPickup),
			list.DaysPickupToDelivery,
			formatTime(list.UpdatedAt),
			list.ID,
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

		if _, err := tx.ExecContext(ctx, "DELETE FROM list_terms WHERE list_id = ?", list.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.writeTermsTx(ctx, tx, list)
	})
}

func (r *CustomerListRepository) writeTermsTx(ctx context.Context, tx *sql.Tx, list crm.CustomerList) error {
	for i, term := range list.Terms {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO list_terms (list_id, position, term_date, term_type)
			VALUES (?, ?, ?, ?)
		`, list.ID, i, formatTime(term.Date), string(term.Type))
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *CustomerListRepository) GetCustomerList(ctx context.Context, id string) (crm.CustomerList, error) {
	if id == "" {
		return crm.CustomerList{}, persistence.ErrNotFound
	}

	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, name, weekday, weekday_for_pickup, days_pickup_to_delivery, created_at, updated_at
		FROM customer_lists WHERE id = ?
	`, id)
	list, err := scanCustomerList(row)
	if err != nil {
		return crm.CustomerList{}, r.mapper.MapError(err)
	}
	if err := r.loadTerms(ctx, map[string]*crm.CustomerList{list.ID: &list}); err != nil {
		return crm.CustomerList{}, err
	}
	return list, nil
}

func (r *CustomerListRepository) ListCustomerLists(ctx context.Context) ([]crm.CustomerList, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, name, weekday, weekday_for_pickup, days_pickup_to_delivery, created_at, updated_at
		FROM customer_lists ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var lists []crm.CustomerList
	for rows.Next() {
		list, err := scanCustomerList(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	byID := make(map[string]*crm.CustomerList, len(lists))
	for i := range lists {
		byID[lists[i].ID] = &lists[i]
	}
	if err := r.loadTerms(ctx, byID); err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *CustomerListRepository) DeleteCustomerList(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, "DELETE FROM customer_lists WHERE id = ?", id)
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

func scanCustomerList(row rowScanner) (crm.CustomerList, error) {
	var (
		list             crm.CustomerList
		weekday          int64
		weekdayForPickup sql.NullInt64
		createdAt        string
		updatedAt        string
	)
	err := row.Scan(&list.ID, &list.Name, &weekday, &weekdayForPickup,
		&list.DaysPickupToDelivery, &createdAt, &updatedAt)
	if err != nil {
		return crm.CustomerList{}, err
	}
	list.Weekday = calendar.Weekday(weekday)
	list.WeekdayForPickup = scanNullableWeekday(weekdayForPickup)
	if list.CreatedAt, err = parseTime(createdAt); err != nil {
		return crm.CustomerList{}, err
	}
	if list.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return crm.CustomerList{}, err
	}
	return list, nil
}

func (r *CustomerListRepository) loadTerms(ctx context.Context, byID map[string]*crm.CustomerList) error {
	if len(byID) == 0 {
		return nil
	}

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT list_id, term_date, term_type FROM list_terms ORDER BY list_id, position
	`)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var listID, termDate, termType string
		if err := rows.Scan(&listID, &termDate, &termType); err != nil {
			return r.mapper.MapError(err)
		}
		var term crm.ListTerm
		if term.Date, err = parseTime(termDate); err != nil {
			return err
		}
		term.Type = crm.AppointmentType(termType)
		if list, ok := byID[listID]; ok {
			list.Terms = append(list.Terms, term)
		}
	}
	return rows.Err()
}
