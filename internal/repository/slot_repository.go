package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// SlotTemplateRepo provides read access to per-restaurant slot
// templates.  Templates are part of the catalog: written only by the
// seed process, read by the availability index and, inside the ledger
// transaction, by the conditional append which locks the slot row to
// serialize capacity checks per (restaurant, slot).
type SlotTemplateRepo struct {
	db *sql.DB
}

// NewSlotTemplateRepo returns a new SlotTemplateRepo bound to the given database.
func NewSlotTemplateRepo(db *sql.DB) *SlotTemplateRepo { return &SlotTemplateRepo{db: db} }

// GetTemplate returns the ordered slot template for a restaurant.  The
// slice is empty when the restaurant has no bookable slots; callers
// that need to distinguish an unknown restaurant should check the
// catalog first.
func (r *SlotTemplateRepo) GetTemplate(ctx context.Context, restaurantID uint64) ([]model.TemplateSlot, error) {
	const q = `SELECT id, restaurant_id, label, capacity, position
               FROM slot_templates
               WHERE restaurant_id = ?
               ORDER BY position`
	rows, err := r.db.QueryContext(ctx, q, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TemplateSlot, 0)
	for rows.Next() {
		var s model.TemplateSlot
		if err := rows.Scan(&s.ID, &s.RestaurantID, &s.Label, &s.Capacity, &s.Position); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSlotForUpdateTx loads one template slot by (restaurant, label)
// inside an existing transaction, locking the row with FOR UPDATE.
// Locking the slot row totally orders all conditional appends for the
// same slot, so two callers racing for the last covers of a date
// serialize here.  ErrSlotUnknown is returned when the label is not in
// the template.  The caller must commit or roll back the transaction.
func (r *SlotTemplateRepo) GetSlotForUpdateTx(ctx context.Context, tx *sql.Tx, restaurantID uint64, label string) (*model.TemplateSlot, error) {
	const q = `SELECT id, restaurant_id, label, capacity, position
               FROM slot_templates
               WHERE restaurant_id = ? AND label = ?
               FOR UPDATE`
	var s model.TemplateSlot
	err := tx.QueryRowContext(ctx, q, restaurantID, label).Scan(
		&s.ID, &s.RestaurantID, &s.Label, &s.Capacity, &s.Position,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSlotUnknown
		}
		return nil, err
	}
	return &s, nil
}
