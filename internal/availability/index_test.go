package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// Stub readers backed by fixed data.

type stubTemplates struct {
	slots []model.TemplateSlot
}

func (s stubTemplates) GetTemplate(ctx context.Context, restaurantID uint64) ([]model.TemplateSlot, error) {
	return s.slots, nil
}

type stubSums struct {
	sums map[string]int
}

func (s stubSums) SumsByDate(ctx context.Context, restaurantID uint64, date string) (map[string]int, error) {
	return s.sums, nil
}

// ledgerRows sums over booking rows the way the real reader's SQL does:
// only CONFIRMED rows count towards a slot's booked covers.
type ledgerRows struct {
	rows []model.Booking
}

func (l ledgerRows) SumsByDate(ctx context.Context, restaurantID uint64, date string) (map[string]int, error) {
	sums := map[string]int{}
	for _, b := range l.rows {
		if b.RestaurantID == restaurantID && b.Date == date && b.Status == model.BookingConfirmed {
			sums[b.SlotLabel] += b.PartySize
		}
	}
	return sums, nil
}

var indexNow = time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

func newTestIndex(slots []model.TemplateSlot, sums map[string]int) *Index {
	return NewIndex(stubTemplates{slots}, stubSums{sums}, 7, 4).
		WithClock(func() time.Time { return indexNow })
}

func TestDateInHorizon(t *testing.T) {
	idx := newTestIndex(nil, nil)

	cases := []struct {
		date string
		want bool
	}{
		{"2025-06-10", true},  // today
		{"2025-06-17", true},  // today+7, inclusive
		{"2025-06-09", false}, // yesterday
		{"2025-06-18", false}, // today+8
		{"junk", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, idx.DateInHorizon(tc.date), "date %q", tc.date)
	}
}

func TestListForDate(t *testing.T) {
	slots := []model.TemplateSlot{
		{RestaurantID: 1, Label: "18:00", Capacity: 6, Position: 0},
		{RestaurantID: 1, Label: "19:00", Capacity: 0, Position: 1}, // default capacity
		{RestaurantID: 1, Label: "20:00", Capacity: 2, Position: 2},
	}
	sums := map[string]int{"18:00": 4, "20:00": 3}
	idx := newTestIndex(slots, sums)

	out, err := idx.ListForDate(context.Background(), 1, "2025-06-12")
	assert.NoError(t, err)
	assert.Len(t, out, 3)

	assert.Equal(t, SlotStatus{Label: "18:00", Capacity: 6, Booked: 4, Remaining: 2}, out[0])
	// capacity 0 falls back to the default of 4
	assert.Equal(t, SlotStatus{Label: "19:00", Capacity: 4, Booked: 0, Remaining: 4}, out[1])
	// remaining is clamped at zero, never negative
	assert.Equal(t, SlotStatus{Label: "20:00", Capacity: 2, Booked: 3, Remaining: 0}, out[2])
}

func TestListForDateOutOfRange(t *testing.T) {
	idx := newTestIndex(nil, nil)

	_, err := idx.ListForDate(context.Background(), 1, "2025-06-09")
	assert.ErrorIs(t, err, ErrDateOutOfRange)
}

func TestCheck(t *testing.T) {
	slots := []model.TemplateSlot{
		{RestaurantID: 1, Label: "19:00", Capacity: 4},
	}
	idx := newTestIndex(slots, map[string]int{"19:00": 3})

	av, err := idx.Check(context.Background(), 1, "2025-06-12", "19:00", 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, av.RemainingAfterThis)

	_, err = idx.Check(context.Background(), 1, "2025-06-12", "19:00", 2)
	assert.ErrorIs(t, err, ErrSlotFull)
}

func TestCancelledBookingsExcludedFromSums(t *testing.T) {
	slots := []model.TemplateSlot{
		{RestaurantID: 1, Label: "19:00", Capacity: 4},
	}
	ledger := ledgerRows{rows: []model.Booking{
		{RestaurantID: 1, Date: "2025-06-12", SlotLabel: "19:00", PartySize: 2, Status: model.BookingConfirmed},
		{RestaurantID: 1, Date: "2025-06-12", SlotLabel: "19:00", PartySize: 2, Status: model.BookingCancelled},
	}}
	idx := NewIndex(stubTemplates{slots}, ledger, 7, 4).
		WithClock(func() time.Time { return indexNow })

	// The cancelled party of 2 releases its covers: the slot is half full.
	out, err := idx.ListForDate(context.Background(), 1, "2025-06-12")
	assert.NoError(t, err)
	assert.Equal(t, SlotStatus{Label: "19:00", Capacity: 4, Booked: 2, Remaining: 2}, out[0])

	av, err := idx.Check(context.Background(), 1, "2025-06-12", "19:00", 2)
	assert.NoError(t, err)
	assert.Equal(t, 0, av.RemainingAfterThis)
}

func TestCheckUnknownSlot(t *testing.T) {
	slots := []model.TemplateSlot{
		{RestaurantID: 1, Label: "19:00", Capacity: 4},
	}
	idx := newTestIndex(slots, nil)

	_, err := idx.Check(context.Background(), 1, "2025-06-12", "23:45", 2)
	assert.ErrorIs(t, err, ErrSlotUnknown)

	// A date outside the horizon has no known slots either.
	_, err = idx.Check(context.Background(), 1, "2025-07-01", "19:00", 2)
	assert.ErrorIs(t, err, ErrSlotUnknown)
}
