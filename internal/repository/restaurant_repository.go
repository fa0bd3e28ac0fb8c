package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// RestaurantRepo provides read access to the restaurant catalog.  The
// catalog is populated by the bulk seed process and treated as
// read-mostly: the booking core never mutates it.  All timestamp
// columns are assumed to be stored in UTC.
type RestaurantRepo struct {
	db *sql.DB
}

// NewRestaurantRepo returns a new RestaurantRepo bound to the given database.
func NewRestaurantRepo(db *sql.DB) *RestaurantRepo { return &RestaurantRepo{db: db} }

// ListAll returns every restaurant ordered by name.  Images are not
// populated; list responses only need the headline fields.  When the
// catalog is empty, an empty slice is returned.
func (r *RestaurantRepo) ListAll(ctx context.Context) ([]model.Restaurant, error) {
	const q = `SELECT id, name, address, opening, closing, created_at, updated_at
               FROM restaurants
               ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Restaurant, 0)
	for rows.Next() {
		var m model.Restaurant
		if err := rows.Scan(&m.ID, &m.Name, &m.Address, &m.Opening, &m.Closing, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns a single restaurant with its ordered image URLs.
// When the id is unknown, ErrRestaurantNotFound is returned.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (*model.Restaurant, error) {
	const q = `SELECT id, name, address, opening, closing, created_at, updated_at
               FROM restaurants
               WHERE id = ?`
	var m model.Restaurant
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&m.ID, &m.Name, &m.Address, &m.Opening, &m.Closing, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	// Ordering by position keeps the carousel order stable.
	const imgQ = `SELECT url FROM restaurant_images WHERE restaurant_id = ? ORDER BY position`
	rows, err := r.db.QueryContext(ctx, imgQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	m.Images = []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		m.Images = append(m.Images, url)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &m, nil
}

// RestaurantSearchQuery defines filters & pagination for searching the catalog.
type RestaurantSearchQuery struct {
	Term     string
	Page     int
	PageSize int
}

// Search returns restaurants whose name or address matches the term,
// case-insensitively, together with the total match count for
// pagination.  An empty term matches everything.  Results are ordered
// by name for stable paging.
func (r *RestaurantRepo) Search(ctx context.Context, q RestaurantSearchQuery) ([]model.Restaurant, int64, error) {
	cond := "1=1"
	args := []any{}
	if q.Term != "" {
		cond = "(LOWER(name) LIKE ? OR LOWER(address) LIKE ?)"
		like := "%" + strings.ToLower(q.Term) + "%"
		args = append(args, like, like)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurants WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	offset := (q.Page - 1) * q.PageSize
	args = append(args, q.PageSize, offset)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, address, opening, closing, created_at, updated_at
         FROM restaurants WHERE `+cond+` ORDER BY name LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Restaurant, 0)
	for rows.Next() {
		var m model.Restaurant
		if err := rows.Scan(&m.ID, &m.Name, &m.Address, &m.Opening, &m.Closing, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
