package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// Mock collaborators

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetByID(ctx context.Context, id uint64) (*model.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restaurant), args.Error(1)
}

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) Check(ctx context.Context, restaurantID uint64, date, slotLabel string, partySize int) (*availability.Availability, error) {
	args := m.Called(ctx, restaurantID, date, slotLabel, partySize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Availability), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) ConditionalAppend(ctx context.Context, cand *model.Booking) (*model.Booking, error) {
	args := m.Called(ctx, cand)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *mockLedger) Cancel(ctx context.Context, id string, requester model.HolderIdentity) error {
	args := m.Called(ctx, id, requester)
	return args.Error(0)
}

func (m *mockLedger) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *mockLedger) GetByClientRequestID(ctx context.Context, reqID string) (*model.Booking, error) {
	args := m.Called(ctx, reqID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

// Fixed clock: "today" is 2025-06-10.
var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine(cat Catalog, chk Checker, led Ledger) *Engine {
	return NewEngine(cat, chk, led, Config{MaxPartySize: 8, HorizonDays: 7, Timeout: time.Second}).
		WithClock(func() time.Time { return testNow })
}

func validRequest() ReserveRequest {
	return ReserveRequest{
		RestaurantID: 1,
		Date:         "2025-06-12",
		SlotLabel:    "19:00",
		PartySize:    2,
		Holder:       model.AuthenticatedHolder(42),
	}
}

func TestReserveSuccess(t *testing.T) {
	cat := new(mockCatalog)
	chk := new(mockChecker)
	led := new(mockLedger)
	eng := newTestEngine(cat, chk, led)

	req := validRequest()
	cat.On("GetByID", mock.Anything, uint64(1)).Return(&model.Restaurant{ID: 1, Name: "Spice Symphony"}, nil)
	chk.On("Check", mock.Anything, uint64(1), "2025-06-12", "19:00", 2).
		Return(&availability.Availability{RemainingAfterThis: 2}, nil)
	committed := &model.Booking{
		ID:           uuid.NewString(),
		RestaurantID: 1,
		Date:         "2025-06-12",
		SlotLabel:    "19:00",
		PartySize:    2,
		Holder:       req.Holder,
		Status:       model.BookingConfirmed,
		CreatedAt:    testNow,
	}
	led.On("ConditionalAppend", mock.Anything, mock.Anything).Return(committed, nil)

	conf, err := eng.Reserve(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, committed.ID, conf.Booking.ID)
	assert.Equal(t, model.BookingConfirmed, conf.Booking.Status)
	assert.False(t, conf.Replayed)
	led.AssertExpectations(t)
}

func TestReservePastDateNeverReachesLedger(t *testing.T) {
	cat := new(mockCatalog)
	chk := new(mockChecker)
	led := new(mockLedger)
	eng := newTestEngine(cat, chk, led)

	req := validRequest()
	req.Date = "2025-06-09" // yesterday

	_, err := eng.Reserve(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidDate)
	led.AssertNotCalled(t, "ConditionalAppend", mock.Anything, mock.Anything)
	led.AssertNotCalled(t, "GetByClientRequestID", mock.Anything, mock.Anything)
	cat.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestReserveDateBeyondHorizon(t *testing.T) {
	eng := newTestEngine(new(mockCatalog), new(mockChecker), new(mockLedger))

	req := validRequest()
	req.Date = "2025-06-18" // today+8, horizon is 7

	_, err := eng.Reserve(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestReserveHorizonBoundaryIsBookable(t *testing.T) {
	cat := new(mockCatalog)
	chk := new(mockChecker)
	led := new(mockLedger)
	eng := newTestEngine(cat, chk, led)

	req := validRequest()
	req.Date = "2025-06-17" // exactly today+7

	cat.On("GetByID", mock.Anything, uint64(1)).Return(&model.Restaurant{ID: 1}, nil)
	chk.On("Check", mock.Anything, uint64(1), "2025-06-17", "19:00", 2).
		Return(&availability.Availability{RemainingAfterThis: 0}, nil)
	led.On("ConditionalAppend", mock.Anything, mock.Anything).
		Return(&model.Booking{ID: uuid.NewString(), Status: model.BookingConfirmed}, nil)

	_, err := eng.Reserve(context.Background(), req)
	assert.NoError(t, err)
}

func TestReservePartySizeBounds(t *testing.T) {
	eng := newTestEngine(new(mockCatalog), new(mockChecker), new(mockLedger))

	for _, size := range []int{0, -1, 9} {
		req := validRequest()
		req.PartySize = size
		_, err := eng.Reserve(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidPartySize, "party size %d", size)
	}
}

func TestReserveGuestWithoutPhone(t *testing.T) {
	eng := newTestEngine(new(mockCatalog), new(mockChecker), new(mockLedger))

	req := validRequest()
	req.Holder = model.GuestHolder("Asha", "")

	_, err := eng.Reserve(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrInvalidHolder)
}

func TestReserveMalformedRequestID(t *testing.T) {
	eng := newTestEngine(new(mockCatalog), new(mockChecker), new(mockLedger))

	req := validRequest()
	req.ClientRequestID = "not-a-uuid"

	_, err := eng.Reserve(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequestID)
}

func TestReserveUnknownRestaurant(t *testing.T) {
	cat := new(mockCatalog)
	chk := new(mockChecker)
	led := new(mockLedger)
	eng := newTestEngine(cat, chk, led)

	cat.On("GetByID", mock.Anything, uint64(1)).Return(nil, repository.ErrRestaurantNotFound)

	_, err := eng.Reserve(context.Background(), validRequest())
	assert.ErrorIs(t, err, repository.ErrRestaurantNotFound)
	led.AssertNotCalled(t, "ConditionalAppend", mock.Anything, mock.Anything)
}

func TestReservePrecheckFullShortCircuits(t *testing.T) {
	cat := new(mockCatalog)
	chk := new(mockChecker)
	led := new(mockLedger)
	eng := newTestEngine(cat, chk, led)

	cat.On("GetByID", mock.Anything, uint64(1)).Return(&model.Restaurant{ID: 1}, nil)
	chk.On("Check", mock.Anything, uint64(1), "2025-06-12", "19:00", 2).
		Return(nil, availability.ErrSlotFull)

	_, err := eng.Reserve(context.Background(), validRequest())
	assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
	led.AssertNotCalled(t, "ConditionalAppend", mock.Anything, mock.Anything)
}

func TestReserveUnknownSlotMapped(t *testing.T) {
	cat := new(mockCatalog)
	chk := new(mockChecker)
	eng := newTestEngine(cat, chk, new(mockLedger))

	cat.On("GetByID", mock.Anything, uint64(1)).Return(&model.Restaurant{ID: 1}, nil)
	chk.On("Check", mock.Anything, uint64(1), "2025-06-12", "19:00", 2).
		Return(nil, availability.ErrSlotUnknown)

	_, err := eng.Reserve(context.Background(), validRequest())
	assert.ErrorIs(t, err, repository.ErrSlotUnknown)
}

// The pre-check can say yes while a concurrent booking takes the last
// covers.  The ledger's answer wins.
func TestReserveCommitRaceLosesCapacity(t *testing.T) {
	cat := new(mockCatalog)
	chk := new(mockChecker)
	led := new(mockLedger)
	eng := newTestEngine(cat, chk, led)

	cat.On("GetByID", mock.Anything, uint64(1)).Return(&model.Restaurant{ID: 1}, nil)
	chk.On("Check", mock.Anything, uint64(1), "2025-06-12", "19:00", 2).
		Return(&availability.Availability{RemainingAfterThis: 0}, nil)
	led.On("ConditionalAppend", mock.Anything, mock.Anything).Return(nil, repository.ErrCapacityExceeded)

	_, err := eng.Reserve(context.Background(), validRequest())
	assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
}

func TestReserveIdempotentReplay(t *testing.T) {
	cat := new(mockCatalog)
	chk := new(mockChecker)
	led := new(mockLedger)
	eng := newTestEngine(cat, chk, led)

	reqID := uuid.NewString()
	req := validRequest()
	req.ClientRequestID = reqID

	prior := &model.Booking{
		ID:              uuid.NewString(),
		RestaurantID:    req.RestaurantID,
		Date:            req.Date,
		SlotLabel:       req.SlotLabel,
		PartySize:       req.PartySize,
		Holder:          req.Holder,
		Status:          model.BookingConfirmed,
		ClientRequestID: reqID,
	}
	led.On("GetByClientRequestID", mock.Anything, reqID).Return(prior, nil)

	conf, err := eng.Reserve(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, conf.Replayed)
	assert.Equal(t, prior.ID, conf.Booking.ID)
	// The replay must not consult the catalog or append again, even if
	// the slot has since filled up.
	cat.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	chk.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	led.AssertNotCalled(t, "ConditionalAppend", mock.Anything, mock.Anything)
}

func TestReserveIdempotencyMismatch(t *testing.T) {
	led := new(mockLedger)
	eng := newTestEngine(new(mockCatalog), new(mockChecker), led)

	reqID := uuid.NewString()
	req := validRequest()
	req.ClientRequestID = reqID

	prior := &model.Booking{
		ID:              uuid.NewString(),
		RestaurantID:    req.RestaurantID,
		Date:            req.Date,
		SlotLabel:       req.SlotLabel,
		PartySize:       req.PartySize + 1, // different party
		Holder:          req.Holder,
		Status:          model.BookingConfirmed,
		ClientRequestID: reqID,
	}
	led.On("GetByClientRequestID", mock.Anything, reqID).Return(prior, nil)

	_, err := eng.Reserve(context.Background(), req)
	assert.ErrorIs(t, err, repository.ErrIdempotencyMismatch)
}

func TestCancelPassesThroughSentinels(t *testing.T) {
	led := new(mockLedger)
	eng := newTestEngine(new(mockCatalog), new(mockChecker), led)

	holder := model.AuthenticatedHolder(42)
	led.On("Cancel", mock.Anything, "b-1", holder).Return(repository.ErrForbidden)

	err := eng.Cancel(context.Background(), "b-1", holder)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestCancelRejectsIncompleteRequester(t *testing.T) {
	led := new(mockLedger)
	eng := newTestEngine(new(mockCatalog), new(mockChecker), led)

	err := eng.Cancel(context.Background(), "b-1", model.HolderIdentity{})
	assert.ErrorIs(t, err, model.ErrInvalidHolder)
	led.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetForHolderGuestPhoneMatch(t *testing.T) {
	led := new(mockLedger)
	eng := newTestEngine(new(mockCatalog), new(mockChecker), led)

	b := &model.Booking{
		ID:     "b-2",
		Holder: model.GuestHolder("Asha Nair", "+91-98450-12345"),
		Status: model.BookingConfirmed,
	}
	led.On("GetByID", mock.Anything, "b-2").Return(b, nil)

	got, err := eng.GetForHolder(context.Background(), "b-2", model.GuestHolder("", "+91-98450-12345"))
	assert.NoError(t, err)
	assert.Equal(t, "b-2", got.ID)

	_, err = eng.GetForHolder(context.Background(), "b-2", model.GuestHolder("", "+91-00000-00000"))
	assert.ErrorIs(t, err, repository.ErrForbidden)

	_, err = eng.GetForHolder(context.Background(), "b-2", model.AuthenticatedHolder(42))
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

// In-memory fakes used for end-to-end capacity semantics.

type fakeCatalog struct{}

func (fakeCatalog) GetByID(ctx context.Context, id uint64) (*model.Restaurant, error) {
	return &model.Restaurant{ID: id, Name: "Cafe Verde"}, nil
}

// fakeLedger enforces a fixed capacity per (restaurant, date, slot) under a
// mutex, mirroring the row lock the SQL ledger takes.
type fakeLedger struct {
	mu       sync.Mutex
	capacity int
	booked   map[string]int
	rows     map[string]*model.Booking
	byReq    map[string]*model.Booking
}

func newFakeLedger(capacity int) *fakeLedger {
	return &fakeLedger{
		capacity: capacity,
		booked:   make(map[string]int),
		rows:     make(map[string]*model.Booking),
		byReq:    make(map[string]*model.Booking),
	}
}

func slotKey(b *model.Booking) string {
	return b.Date + "/" + b.SlotLabel
}

func (f *fakeLedger) ConditionalAppend(ctx context.Context, cand *model.Booking) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.booked[slotKey(cand)]+cand.PartySize > f.capacity {
		return nil, repository.ErrCapacityExceeded
	}
	out := *cand
	out.ID = uuid.NewString()
	out.Status = model.BookingConfirmed
	out.CreatedAt = testNow
	f.booked[slotKey(cand)] += cand.PartySize
	f.rows[out.ID] = &out
	if out.ClientRequestID != "" {
		f.byReq[out.ClientRequestID] = &out
	}
	return &out, nil
}

func (f *fakeLedger) Cancel(ctx context.Context, id string, requester model.HolderIdentity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if b.Status == model.BookingCancelled {
		return repository.ErrAlreadyCancelled
	}
	b.Status = model.BookingCancelled
	f.booked[slotKey(b)] -= b.PartySize
	return nil
}

func (f *fakeLedger) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.rows[id]; ok {
		return b, nil
	}
	return nil, repository.ErrBookingNotFound
}

func (f *fakeLedger) GetByClientRequestID(ctx context.Context, reqID string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.byReq[reqID]; ok {
		return b, nil
	}
	return nil, repository.ErrBookingNotFound
}

// fakeChecker reports availability straight from the fake ledger's sums.
type fakeChecker struct {
	led *fakeLedger
}

func (f fakeChecker) Check(ctx context.Context, restaurantID uint64, date, slotLabel string, partySize int) (*availability.Availability, error) {
	f.led.mu.Lock()
	defer f.led.mu.Unlock()
	remaining := f.led.capacity - f.led.booked[date+"/"+slotLabel]
	if remaining < partySize {
		return nil, availability.ErrSlotFull
	}
	return &availability.Availability{RemainingAfterThis: remaining - partySize}, nil
}

// A slot with capacity 4: a party of 3 fits, a second party of 2 must be
// rejected, a party of 1 then fills the slot exactly.
func TestCapacityAccumulatesAcrossParties(t *testing.T) {
	led := newFakeLedger(4)
	eng := newTestEngine(fakeCatalog{}, fakeChecker{led}, led)

	book := func(size int) error {
		req := validRequest()
		req.PartySize = size
		_, err := eng.Reserve(context.Background(), req)
		return err
	}

	assert.NoError(t, book(3))
	assert.ErrorIs(t, book(2), repository.ErrCapacityExceeded)
	assert.NoError(t, book(1))
	assert.ErrorIs(t, book(1), repository.ErrCapacityExceeded)
}

func TestCancelReleasesCapacity(t *testing.T) {
	led := newFakeLedger(4)
	eng := newTestEngine(fakeCatalog{}, fakeChecker{led}, led)

	req := validRequest()
	req.PartySize = 4
	conf, err := eng.Reserve(context.Background(), req)
	assert.NoError(t, err)

	blocked := validRequest()
	blocked.PartySize = 1
	_, err = eng.Reserve(context.Background(), blocked)
	assert.ErrorIs(t, err, repository.ErrCapacityExceeded)

	assert.NoError(t, eng.Cancel(context.Background(), conf.Booking.ID, req.Holder))

	_, err = eng.Reserve(context.Background(), blocked)
	assert.NoError(t, err)
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	led := newFakeLedger(4)
	eng := newTestEngine(fakeCatalog{}, fakeChecker{led}, led)

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := validRequest()
			req.PartySize = 1
			_, err := eng.Reserve(context.Background(), req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, full := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case err == repository.ErrCapacityExceeded:
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 4, ok)
	assert.Equal(t, attempts-4, full)
	assert.Equal(t, 4, led.booked["2025-06-12/19:00"])
}

// A client request id routes the attempt through the idempotency
// lookup before the capacity check.  That path must uphold the same
// capacity bound as tokenless attempts: the lookup is a read, never a
// reservation of capacity.
func TestConcurrentTokenedReservesNeverOversell(t *testing.T) {
	led := newFakeLedger(4)
	eng := newTestEngine(fakeCatalog{}, fakeChecker{led}, led)

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := validRequest()
			req.PartySize = 1
			req.ClientRequestID = uuid.NewString()
			_, err := eng.Reserve(context.Background(), req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 4, ok)
	assert.Equal(t, 4, led.booked["2025-06-12/19:00"])
}

// A replay returns the booking as it is now.  A holder who cancelled
// after the original commit gets the tombstoned booking back, not a
// fresh reservation.
func TestReserveReplayOfCancelledBooking(t *testing.T) {
	led := newFakeLedger(4)
	eng := newTestEngine(fakeCatalog{}, fakeChecker{led}, led)

	req := validRequest()
	req.ClientRequestID = uuid.NewString()

	conf, err := eng.Reserve(context.Background(), req)
	assert.NoError(t, err)
	assert.NoError(t, eng.Cancel(context.Background(), conf.Booking.ID, req.Holder))

	replay, err := eng.Reserve(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, conf.Booking.ID, replay.Booking.ID)
	assert.Equal(t, model.BookingCancelled, replay.Booking.Status)
	// The replay must not have re-booked the released covers.
	assert.Equal(t, 0, led.booked["2025-06-12/19:00"])
}
