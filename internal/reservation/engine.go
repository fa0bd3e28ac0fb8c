// Package reservation implements the booking orchestration used by the
// reservation endpoints.  The engine validates a request locally,
// consults the availability index for an optimistic pre-check, and then
// hands the candidate to the booking ledger's conditional append, which
// is the only authority on capacity.  A slot that looked free at
// pre-check can still be rejected at commit time; callers receive a
// capacity error, never a fault.
package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/availability"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// Validation sentinels.  These are detected locally before any I/O and
// are never retried automatically.
var (
	ErrInvalidPartySize = errors.New("party size out of bounds")
	ErrInvalidDate      = errors.New("date in the past or beyond booking horizon")
	ErrInvalidRequestID = errors.New("client request id must be a UUID")
)

// ErrUnavailable wraps transient infrastructure failures: timeouts,
// lost connections, exhausted contention retries.  Callers may retry,
// but only with the same client request id – after a timeout the first
// attempt may in fact have committed.
var ErrUnavailable = errors.New("service unavailable")

// Catalog is the slice of the catalog store the engine needs: a fast
// existence check so an unknown restaurant fails before any ledger work.
type Catalog interface {
	GetByID(ctx context.Context, id uint64) (*model.Restaurant, error)
}

// Checker is the advisory availability pre-check.
type Checker interface {
	Check(ctx context.Context, restaurantID uint64, date, slotLabel string, partySize int) (*availability.Availability, error)
}

// Ledger is the authoritative commit side of the booking store.
type Ledger interface {
	ConditionalAppend(ctx context.Context, cand *model.Booking) (*model.Booking, error)
	Cancel(ctx context.Context, id string, requester model.HolderIdentity) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetByClientRequestID(ctx context.Context, reqID string) (*model.Booking, error)
}

// Config bounds what the engine accepts.  Values mirror the UI
// controls: a 1..MaxPartySize guest stepper and a date picker limited
// to today..today+HorizonDays.
type Config struct {
	MaxPartySize int
	HorizonDays  int
	Timeout      time.Duration // per-call bound on ledger/availability I/O
}

// Engine orchestrates booking attempts.  It holds no mutable state;
// concurrency safety is delegated entirely to the ledger.
type Engine struct {
	catalog Catalog
	checker Checker
	ledger  Ledger
	cfg     Config
	now     func() time.Time // injectable for tests
}

// NewEngine constructs an Engine.  Zero config fields fall back to the
// product defaults (8 covers, 7 days, 5s).
func NewEngine(catalog Catalog, checker Checker, ledger Ledger, cfg Config) *Engine {
	if cfg.MaxPartySize < 1 {
		cfg.MaxPartySize = 8
	}
	if cfg.HorizonDays < 0 {
		cfg.HorizonDays = 7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Engine{
		catalog: catalog,
		checker: checker,
		ledger:  ledger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.  Tests use this to pin "today".
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ReserveRequest is one booking attempt.
type ReserveRequest struct {
	RestaurantID    uint64
	Date            string // model.DateLayout
	SlotLabel       string
	PartySize       int
	Holder          model.HolderIdentity
	ClientRequestID string // optional idempotency token (UUID)
}

// Confirmation is the successful outcome of Reserve.  It carries the
// authoritative committed booking; no re-fetch is needed.  Replayed is
// set when the booking was committed by an earlier attempt with the
// same client request id.  A replayed booking carries its current
// status: a holder who cancelled after the original commit gets the
// booking back with Status CANCELLED, and the replay does not re-book
// the released covers.
type Confirmation struct {
	Booking  model.Booking
	Replayed bool
}

// validate runs the cheap, I/O-free checks.  These never reach the
// ledger: a request for yesterday is rejected right here.
func (e *Engine) validate(req ReserveRequest) error {
	if req.PartySize < 1 || req.PartySize > e.cfg.MaxPartySize {
		return ErrInvalidPartySize
	}
	d, err := model.ParseDate(req.Date)
	if err != nil {
		return ErrInvalidDate
	}
	today := e.now().Truncate(24 * time.Hour)
	if d.Before(today) || d.After(today.AddDate(0, 0, e.cfg.HorizonDays)) {
		return ErrInvalidDate
	}
	if err := req.Holder.Validate(); err != nil {
		return err
	}
	if req.ClientRequestID != "" {
		if err := uuid.Validate(req.ClientRequestID); err != nil {
			return ErrInvalidRequestID
		}
	}
	return nil
}

// Reserve attempts to commit a booking and returns a definitive
// outcome.  Expected rejections surface as sentinel errors
// (ErrInvalidDate, ErrInvalidPartySize, model.ErrInvalidHolder,
// repository.ErrRestaurantNotFound, repository.ErrSlotUnknown,
// repository.ErrCapacityExceeded, repository.ErrIdempotencyMismatch);
// anything unexpected is wrapped in ErrUnavailable.
//
// When the request carries a client request id that already committed
// with identical parameters, the original confirmation is returned and
// no second booking is created.  This lookup happens before the
// pre-check so a retry after a timed-out-but-committed attempt gets
// its confirmation even if the slot has since filled up.  The booking
// is returned as it is now: callers must check Booking.Status, since
// the original may have been cancelled in the meantime.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (*Confirmation, error) {
	if err := e.validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	if req.ClientRequestID != "" {
		prior, err := e.ledger.GetByClientRequestID(ctx, req.ClientRequestID)
		switch {
		case err == nil:
			if !matchesRequest(prior, req) {
				return nil, repository.ErrIdempotencyMismatch
			}
			return &Confirmation{Booking: *prior, Replayed: true}, nil
		case errors.Is(err, repository.ErrBookingNotFound):
			// first time we see this token
		default:
			return nil, wrapInfra(err)
		}
	}

	if _, err := e.catalog.GetByID(ctx, req.RestaurantID); err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			return nil, err
		}
		return nil, wrapInfra(err)
	}

	// Advisory pre-check: short-circuits obviously full slots without
	// touching the ledger.  Its answer is an optimization, not a promise.
	if _, err := e.checker.Check(ctx, req.RestaurantID, req.Date, req.SlotLabel, req.PartySize); err != nil {
		switch {
		case errors.Is(err, availability.ErrSlotUnknown):
			return nil, repository.ErrSlotUnknown
		case errors.Is(err, availability.ErrSlotFull):
			return nil, repository.ErrCapacityExceeded
		default:
			return nil, wrapInfra(err)
		}
	}

	cand := &model.Booking{
		RestaurantID:    req.RestaurantID,
		Date:            req.Date,
		SlotLabel:       req.SlotLabel,
		PartySize:       req.PartySize,
		Holder:          req.Holder,
		ClientRequestID: req.ClientRequestID,
	}
	committed, err := e.ledger.ConditionalAppend(ctx, cand)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityExceeded),
			errors.Is(err, repository.ErrSlotUnknown),
			errors.Is(err, repository.ErrIdempotencyMismatch):
			return nil, err
		default:
			return nil, wrapInfra(err)
		}
	}
	return &Confirmation{Booking: *committed}, nil
}

// matchesRequest reports whether a committed booking and a new request
// describe the same logical attempt.
func matchesRequest(prior *model.Booking, req ReserveRequest) bool {
	return prior.RestaurantID == req.RestaurantID &&
		prior.Date == req.Date &&
		prior.SlotLabel == req.SlotLabel &&
		prior.PartySize == req.PartySize &&
		prior.Holder.Owns(req.Holder)
}

// Cancel tombstones a booking on behalf of its holder.  Authorization
// lives in the ledger: repository.ErrForbidden is returned for
// non-holders, repository.ErrAlreadyCancelled for double cancels.
func (e *Engine) Cancel(ctx context.Context, bookingID string, requester model.HolderIdentity) error {
	if err := requester.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	err := e.ledger.Cancel(ctx, bookingID, requester)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrForbidden),
		errors.Is(err, repository.ErrAlreadyCancelled),
		errors.Is(err, repository.ErrCancelWindowClosed):
		return err
	default:
		return wrapInfra(err)
	}
}

// GetForHolder returns a booking only to its holder.
func (e *Engine) GetForHolder(ctx context.Context, bookingID string, requester model.HolderIdentity) (*model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	b, err := e.ledger.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, err
		}
		return nil, wrapInfra(err)
	}
	if !b.Holder.Owns(requester) {
		return nil, repository.ErrForbidden
	}
	return b, nil
}

// wrapInfra folds an unexpected error into ErrUnavailable while keeping
// the cause visible to errors.Is/As and logs.
func wrapInfra(err error) error {
	return errors.Join(ErrUnavailable, err)
}
