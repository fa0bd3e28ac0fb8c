// Package availability derives remaining per-slot capacity for a
// restaurant and date from the catalog's slot template and the booking
// ledger's committed sums.  Everything here is read-side and advisory:
// it lets the UI render "2 seats left" and lets the reservation engine
// short-circuit obviously full slots, but the final authority over
// capacity is the ledger's conditional append, which re-validates the
// sum inside its own transaction.
package availability

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// ErrSlotUnknown is returned when a slot label is not part of the
// restaurant's template, or when the requested date falls outside the
// booking horizon (a date we will never accept has no known slots).
var ErrSlotUnknown = errors.New("slot unknown")

// ErrSlotFull is returned when the slot cannot accept the requested
// party size according to the advisory sums.
var ErrSlotFull = errors.New("slot full")

// ErrDateOutOfRange is returned by ListForDate when the date is in the
// past or beyond the booking horizon.
var ErrDateOutOfRange = errors.New("date outside booking horizon")

// TemplateReader is the slice of the catalog the index needs.
type TemplateReader interface {
	GetTemplate(ctx context.Context, restaurantID uint64) ([]model.TemplateSlot, error)
}

// LedgerReader is the read side of the booking ledger.
type LedgerReader interface {
	SumsByDate(ctx context.Context, restaurantID uint64, date string) (map[string]int, error)
}

// Index computes remaining capacity per slot.  It holds no state of
// its own; every call recomputes from the template and the ledger.
type Index struct {
	templates   TemplateReader
	ledger      LedgerReader
	horizonDays int
	defaultCap  int
	now         func() time.Time // injectable for tests
}

// NewIndex constructs an Index.  horizonDays bounds how far ahead a
// date may lie (today..today+horizonDays); defaultCap is applied to
// template rows without an explicit capacity.
func NewIndex(templates TemplateReader, ledger LedgerReader, horizonDays, defaultCap int) *Index {
	if horizonDays < 0 {
		horizonDays = 0
	}
	if defaultCap < 1 {
		defaultCap = 1
	}
	return &Index{
		templates:   templates,
		ledger:      ledger,
		horizonDays: horizonDays,
		defaultCap:  defaultCap,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.  Tests use this to pin "today".
func (i *Index) WithClock(now func() time.Time) *Index {
	i.now = now
	return i
}

// DateInHorizon reports whether the date (DateLayout) is between today
// and today+horizonDays inclusive.  A malformed date is out of horizon.
func (i *Index) DateInHorizon(date string) bool {
	d, err := model.ParseDate(date)
	if err != nil {
		return false
	}
	today := i.now().Truncate(24 * time.Hour)
	last := today.AddDate(0, 0, i.horizonDays)
	return !d.Before(today) && !d.After(last)
}

// SlotStatus is the availability of one template slot on a date.
type SlotStatus struct {
	Label     string `json:"slot"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Remaining int    `json:"remaining"`
}

// Availability is the positive outcome of Check.
type Availability struct {
	// RemainingAfterThis is how many covers would stay free if the
	// requested party booked now, according to the advisory sums.
	RemainingAfterThis int
}

// ListForDate returns the status of every template slot for a
// restaurant on a date, in template order.  ErrDateOutOfRange is
// returned for dates outside the horizon.  Cancelled bookings never
// count: the ledger's sums exclude them.
func (i *Index) ListForDate(ctx context.Context, restaurantID uint64, date string) ([]SlotStatus, error) {
	if !i.DateInHorizon(date) {
		return nil, ErrDateOutOfRange
	}
	slots, err := i.templates.GetTemplate(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	sums, err := i.ledger.SumsByDate(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}
	out := make([]SlotStatus, 0, len(slots))
	for _, s := range slots {
		capacity := s.Capacity
		if capacity <= 0 {
			capacity = i.defaultCap
		}
		booked := sums[s.Label]
		remaining := capacity - booked
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, SlotStatus{
			Label:     s.Label,
			Capacity:  capacity,
			Booked:    booked,
			Remaining: remaining,
		})
	}
	return out, nil
}

// Check determines whether a party of the given size fits into a slot
// on a date.  ErrSlotUnknown is returned when the label is not in the
// template or the date is outside the horizon; ErrSlotFull when the
// remaining capacity is smaller than the party.  A nil error means the
// slot looked bookable at read time – the ledger may still reject the
// commit if another caller gets there first.
func (i *Index) Check(ctx context.Context, restaurantID uint64, date, slotLabel string, partySize int) (*Availability, error) {
	if !i.DateInHorizon(date) {
		return nil, ErrSlotUnknown
	}
	slots, err := i.templates.GetTemplate(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	var slot *model.TemplateSlot
	for idx := range slots {
		if slots[idx].Label == slotLabel {
			slot = &slots[idx]
			break
		}
	}
	if slot == nil {
		return nil, ErrSlotUnknown
	}
	capacity := slot.Capacity
	if capacity <= 0 {
		capacity = i.defaultCap
	}
	sums, err := i.ledger.SumsByDate(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}
	remaining := capacity - sums[slotLabel]
	if remaining < partySize {
		return nil, ErrSlotFull
	}
	return &Availability{RemainingAfterThis: remaining - partySize}, nil
}
