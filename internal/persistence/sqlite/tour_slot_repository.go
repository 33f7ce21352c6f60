package sqlite

import (
	"context"
	"fmt"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/persistence"
)

// TourSlotRepository implements persistence.TourSlotRepository on SQLite.
type TourSlotRepository struct {
	store  *Store
	mapper *ErrorMapper
}

func NewTourSlotRepository(store *Store) *TourSlotRepository {
	return &TourSlotRepository{store: store, mapper: NewErrorMapper()}
}

func (r *TourSlotRepository) CreateTourSlot(ctx context.Context, slot crm.TourSlot) error {
	if slot.ID == "" || !slot.Weekday.Valid() {
		return persistence.ErrConstraintViolation
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO tour_slots (id, weekday, city, window_start, window_end)
		VALUES (?, ?, ?, ?, ?)
	`, slot.ID, int(slot.Weekday), slot.City, slot.Window.Start, slot.Window.End)
	return r.mapper.MapError(err)
}

func (r *TourSlotRepository) UpdateTourSlot(ctx context.Context, slot crm.TourSlot) error {
	if slot.ID == "" || !slot.Weekday.Valid() {
		return persistence.ErrConstraintViolation
	}

	result, err := r.store.db.ExecContext(ctx, `
		UPDATE tour_slots SET weekday = ?, city = ?, window_start = ?, window_end = ? WHERE id = ?
	`, int(slot.Weekday), slot.City, slot.Window.Start, slot.Window.End, slot.ID)
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

func (r *TourSlotRepository) GetTourSlot(ctx context.Context, id string) (crm.TourSlot, error) {
	if id == "" {
		return crm.TourSlot{}, persistence.ErrNotFound
	}

	var (
		slot    crm.TourSlot
		weekday int64
	)
	err := r.store.db.QueryRowContext(ctx, `
		SELECT id, weekday, city, window_start, window_end FROM tour_slots WHERE id = ?
	`, id).Scan(&slot.ID, &weekday, &slot.City, &slot.Window.Start, &slot.Window.End)
	if err != nil {
		return crm.TourSlot{}, r.mapper.MapError(err)
	}
	slot.Weekday = calendar.Weekday(weekday)
	return slot, nil
}

func (r *TourSlotRepository) ListTourSlots(ctx context.Context) ([]crm.TourSlot, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, weekday, city, window_start, window_end
		FROM tour_slots ORDER BY weekday ASC, window_start ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var slots []crm.TourSlot
	for rows.Next() {
		var (
			slot    crm.TourSlot
			weekday int64
		)
		if err := rows.Scan(&slot.ID, &weekday, &slot.City, &slot.Window.Start, &slot.Window.End); err != nil {
			return nil, r.mapper.MapError(err)
		}
		slot.Weekday = calendar.Weekday(weekday)
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (r *TourSlotRepository) DeleteTourSlot(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, "DELETE FROM tour_slots WHERE id = ?", id)
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
