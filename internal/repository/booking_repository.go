package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// BookingRepo is the booking ledger: the single source of truth for
// committed reservations.  It owns the no-oversell invariant, which is
// enforced at commit time inside ConditionalAppend rather than at read
// time.  Rows are append-mostly; cancellation tombstones a row instead
// of deleting it so history and audit are preserved.  All timestamp
// columns are stored in UTC.
type BookingRepo struct {
	db         *sql.DB
	slots      *SlotTemplateRepo
	defaultCap int // capacity applied when a template row has none
}

// NewBookingRepo returns a new BookingRepo.  The slot template repo is
// used inside the append transaction to lock the slot row; defaultCap
// is the capacity assumed for template rows with a non-positive value.
func NewBookingRepo(db *sql.DB, slots *SlotTemplateRepo, defaultCap int) *BookingRepo {
	if defaultCap < 1 {
		defaultCap = 1
	}
	return &BookingRepo{db: db, slots: slots, defaultCap: defaultCap}
}

// ConditionalAppend atomically re-validates capacity and commits the
// candidate booking.  The steps run in one transaction:
//
//  1. If the candidate carries a client request id, look for an earlier
//     booking with the same id.  A match with identical parameters
//     returns the original booking; a match with different parameters
//     returns ErrIdempotencyMismatch.
//  2. Lock the (restaurant, slot) template row with FOR UPDATE.  This
//     serializes all appends for the same slot, so the sum computed in
//     step 3 cannot go stale before the insert.  ErrSlotUnknown is
//     returned when the label is not in the template.
//  3. Sum party sizes over CONFIRMED bookings for (restaurant, date,
//     slot) with a locking read and compare against the slot's
//     capacity.  The locking read matters: step 1's plain SELECT pins
//     the transaction's snapshot, and without FOR UPDATE the sum would
//     be served from that snapshot and could miss a booking committed
//     while this transaction waited on step 2's lock.  When the
//     candidate does not fit, ErrCapacityExceeded is returned.
//  4. Insert the booking with a freshly generated UUID.
//
// Two concurrent submissions with the same client request id can both
// miss in step 1; the unique index on client_request_id rejects the
// loser, which then returns the winner's booking.  The availability
// index performs the same sum without locks – that read is advisory,
// this commit is the authority.
func (r *BookingRepo) ConditionalAppend(ctx context.Context, cand *model.Booking) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	if cand.ClientRequestID != "" {
		prior, err := r.getByClientRequestIDTx(ctx, tx, cand.ClientRequestID)
		if err != nil && err != ErrBookingNotFound {
			return nil, err
		}
		if prior != nil {
			if !sameAttempt(prior, cand) {
				return nil, ErrIdempotencyMismatch
			}
			return prior, nil
		}
	}

	slot, err := r.slots.GetSlotForUpdateTx(ctx, tx, cand.RestaurantID, cand.SlotLabel)
	if err != nil {
		return nil, err
	}
	capacity := slot.Capacity
	if capacity <= 0 {
		capacity = r.defaultCap
	}

	// The sum is a locking read.  Under REPEATABLE READ the idempotency
	// pre-lookup above pins the transaction's consistent-read snapshot
	// before the slot lock is taken; a plain SELECT here would read that
	// snapshot and miss rows committed while this transaction waited on
	// the lock.  FOR UPDATE always reads the latest committed rows.
	var booked int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(party_size), 0)
         FROM bookings
         WHERE restaurant_id = ? AND booking_date = ? AND slot_label = ? AND status = 'CONFIRMED'
         FOR UPDATE`,
		cand.RestaurantID, cand.Date, cand.SlotLabel,
	).Scan(&booked)
	if err != nil {
		return nil, err
	}
	if booked+cand.PartySize > capacity {
		return nil, ErrCapacityExceeded
	}

	out := *cand
	out.ID = uuid.NewString()
	out.Status = model.BookingConfirmed
	out.CreatedAt = time.Now().UTC()
	var userID any
	if !out.Holder.IsGuest() {
		userID = out.Holder.UserID
	}
	var reqID any
	if out.ClientRequestID != "" {
		reqID = out.ClientRequestID
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings
           (id, restaurant_id, booking_date, slot_label, party_size,
            user_id, guest_name, guest_phone, status, client_request_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.RestaurantID, out.Date, out.SlotLabel, out.PartySize,
		userID, out.Holder.GuestName, out.Holder.GuestPhone,
		out.Status, reqID, out.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		if isDuplicateKey(err) && cand.ClientRequestID != "" {
			// Lost the race against a duplicate submission; surface the
			// winner's booking instead.
			_ = tx.Rollback()
			done = true // rollback already done
			prior, gerr := r.GetByClientRequestID(ctx, cand.ClientRequestID)
			if gerr != nil {
				return nil, gerr
			}
			if !sameAttempt(prior, cand) {
				return nil, ErrIdempotencyMismatch
			}
			return prior, nil
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	done = true
	return &out, nil
}

// sameAttempt reports whether a committed booking and a candidate
// describe the same logical attempt.  Used to decide whether a reused
// client request id is a safe retry or a conflicting submission.
func sameAttempt(prior, cand *model.Booking) bool {
	return prior.RestaurantID == cand.RestaurantID &&
		prior.Date == cand.Date &&
		prior.SlotLabel == cand.SlotLabel &&
		prior.PartySize == cand.PartySize &&
		prior.Holder.Owns(cand.Holder)
}

// isDuplicateKey detects a MySQL unique constraint violation (error 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

const bookingColumns = `id, restaurant_id, booking_date, slot_label, party_size,
       user_id, guest_name, guest_phone, status, client_request_id, created_at, cancelled_at`

// scanBooking reads one row selected with bookingColumns.
func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var (
		b           model.Booking
		userID      sql.NullInt64
		guestName   sql.NullString
		guestPhone  sql.NullString
		reqID       sql.NullString
		cancelledAt sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.RestaurantID, &b.Date, &b.SlotLabel, &b.PartySize,
		&userID, &guestName, &guestPhone, &b.Status, &reqID, &b.CreatedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		b.Holder = model.AuthenticatedHolder(uint64(userID.Int64))
	} else {
		b.Holder = model.GuestHolder(guestName.String, guestPhone.String)
	}
	if reqID.Valid {
		b.ClientRequestID = reqID.String
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return &b, nil
}

// GetByID returns a booking by its UUID.  ErrBookingNotFound is
// returned when no row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// GetByClientRequestID returns the booking committed under the given
// idempotency token, or ErrBookingNotFound.
func (r *BookingRepo) GetByClientRequestID(ctx context.Context, reqID string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE client_request_id = ?`, reqID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *BookingRepo) getByClientRequestIDTx(ctx context.Context, tx *sql.Tx, reqID string) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE client_request_id = ?`, reqID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// SumsByDate returns the committed (non-cancelled) party-size sum per
// slot label for a restaurant and date.  This is the read side used by
// the availability index; it runs without locks and is therefore
// advisory – only ConditionalAppend's in-transaction sum is
// authoritative.  Labels with no bookings are absent from the map.
func (r *BookingRepo) SumsByDate(ctx context.Context, restaurantID uint64, date string) (map[string]int, error) {
	const q = `SELECT slot_label, COALESCE(SUM(party_size), 0)
               FROM bookings
               WHERE restaurant_id = ? AND booking_date = ? AND status = 'CONFIRMED'
               GROUP BY slot_label`
	rows, err := r.db.QueryContext(ctx, q, restaurantID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := make(map[string]int)
	for rows.Next() {
		var label string
		var sum int
		if err := rows.Scan(&label, &sum); err != nil {
			return nil, err
		}
		sums[label] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sums, nil
}

// Cancel tombstones a booking.  Only the original holder may cancel:
// authenticated holders match by user id, guests by the phone captured
// at booking time.  The check and the update run in one transaction
// with the row locked, so a double cancel reliably reports
// ErrAlreadyCancelled.  Bookings whose date has passed cannot be
// cancelled; they report ErrCancelWindowClosed so the history stays
// accurate.  Cancellation releases capacity because
// CANCELLED rows are excluded from every committed sum.
func (r *BookingRepo) Cancel(ctx context.Context, id string, requester model.HolderIdentity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrBookingNotFound
		}
		return err
	}
	if !b.Holder.Owns(requester) {
		return ErrForbidden
	}
	if b.Status == model.BookingCancelled {
		return ErrAlreadyCancelled
	}
	if d, err := model.ParseDate(b.Date); err == nil {
		if d.Before(time.Now().UTC().Truncate(24 * time.Hour)) {
			return ErrCancelWindowClosed
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED', cancelled_at = UTC_TIMESTAMP() WHERE id = ?`,
		id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// BookingDetail pairs a ledger row with the restaurant fields needed
// by the history screen.  It is returned by ListByUser.
type BookingDetail struct {
	ID             string  `json:"id"`
	RestaurantID   uint64  `json:"restaurant_id"`
	RestaurantName string  `json:"restaurant_name"`
	Address        string  `json:"address"`
	Date           string  `json:"date"`
	SlotLabel      string  `json:"slot"`
	PartySize      int     `json:"party_size"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	CancelledAt    *string `json:"cancelled_at,omitempty"`
}

// ListByUser returns all bookings held by an authenticated user,
// newest first, with restaurant details joined in.  Cancelled bookings
// are included so the history view can show them; callers filter if
// they only want active ones.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.restaurant_id, rst.name, rst.address,
                      b.booking_date, b.slot_label, b.party_size, b.status,
                      b.created_at, b.cancelled_at
               FROM bookings b
               JOIN restaurants rst ON rst.id = b.restaurant_id
               WHERE b.user_id = ?
               ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var (
			d           BookingDetail
			createdAt   time.Time
			cancelledAt sql.NullTime
		)
		if err := rows.Scan(
			&d.ID, &d.RestaurantID, &d.RestaurantName, &d.Address,
			&d.Date, &d.SlotLabel, &d.PartySize, &d.Status,
			&createdAt, &cancelledAt,
		); err != nil {
			return nil, err
		}
		d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		if cancelledAt.Valid {
			iso := cancelledAt.Time.UTC().Format(time.RFC3339)
			d.CancelledAt = &iso
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
