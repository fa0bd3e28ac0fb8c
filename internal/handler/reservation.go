package handler

import (
	"context"  // detached contexts for post-commit event publishing
	"errors"   // for errors.Is comparisons
	"net/http" // HTTP status codes
	"strconv"  // parsing context values
	"strings"  // trimming request fields
	"time"     // timestamp formatting for events

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/reservation"
	queue_publisher "github.com/iliyamo/restaurant-reservation/internal/service"
)

// BookingHandler groups the reservation engine and repositories needed to
// create, list, inspect and cancel bookings.  The create endpoint serves
// both authenticated users and guests: the identity middleware sets
// "user_id" in the context when a valid bearer token is present, and the
// handler falls back to guest contact details from the body otherwise.
type BookingHandler struct {
	Engine      *reservation.Engine
	Bookings    *repository.BookingRepo
	Restaurants *repository.RestaurantRepo
}

// NewBookingHandler constructs a BookingHandler.  All dependencies must be
// non-nil.
func NewBookingHandler(engine *reservation.Engine, bookings *repository.BookingRepo, restaurants *repository.RestaurantRepo) *BookingHandler {
	if engine == nil || bookings == nil || restaurants == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: engine, Bookings: bookings, Restaurants: restaurants}
}

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// ----- DTOs -----

type createBookingReq struct {
	RestaurantID    uint64 `json:"restaurant_id"`
	Date            string `json:"date"` // YYYY-MM-DD
	Slot            string `json:"slot"`
	PartySize       int    `json:"party_size"`
	GuestName       string `json:"guest_name,omitempty"`
	GuestPhone      string `json:"guest_phone,omitempty"`
	ClientRequestID string `json:"client_request_id,omitempty"`
}

type bookingResp struct {
	ID           string  `json:"id"`
	RestaurantID uint64  `json:"restaurant_id"`
	Date         string  `json:"date"`
	Slot         string  `json:"slot"`
	PartySize    int     `json:"party_size"`
	Status       string  `json:"status"`
	GuestName    string  `json:"guest_name,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CancelledAt  *string `json:"cancelled_at,omitempty"`
}

func toBookingResp(b *model.Booking) bookingResp {
	resp := bookingResp{
		ID:           b.ID,
		RestaurantID: b.RestaurantID,
		Date:         b.Date,
		Slot:         b.SlotLabel,
		PartySize:    b.PartySize,
		Status:       b.Status,
		CreatedAt:    b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.Holder.IsGuest() {
		resp.GuestName = b.Holder.GuestName
	}
	if b.CancelledAt != nil {
		s := b.CancelledAt.UTC().Format(time.RFC3339)
		resp.CancelledAt = &s
	}
	return resp
}

// requesterIdentity builds the holder for the current request: the
// authenticated user when the identity middleware stored one, otherwise a
// guest from the supplied contact details.
func requesterIdentity(c echo.Context, guestName, guestPhone string) model.HolderIdentity {
	if uid, err := getUserID(c); err == nil && uid != 0 {
		return model.AuthenticatedHolder(uid)
	}
	return model.GuestHolder(guestName, guestPhone)
}

// CreateBooking handles POST /v1/reservations.  On success it returns 201
// with the committed booking; a retry carrying the same client_request_id
// and identical parameters returns 200 with the original booking instead of
// creating a second one.  The replayed body reports the booking's current
// status, so a booking cancelled since the original commit comes back with
// status CANCELLED.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.RestaurantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "restaurant_id is required"})
	}

	holder := requesterIdentity(c, req.GuestName, req.GuestPhone)

	conf, err := h.Engine.Reserve(c.Request().Context(), reservation.ReserveRequest{
		RestaurantID:    req.RestaurantID,
		Date:            strings.TrimSpace(req.Date),
		SlotLabel:       strings.TrimSpace(req.Slot),
		PartySize:       req.PartySize,
		Holder:          holder,
		ClientRequestID: strings.TrimSpace(req.ClientRequestID),
	})
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrInvalidPartySize):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "party size out of range"})
		case errors.Is(err, reservation.ErrInvalidDate):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date invalid or outside booking horizon"})
		case errors.Is(err, reservation.ErrInvalidRequestID):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_request_id must be a UUID"})
		case errors.Is(err, model.ErrInvalidHolder):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_name and guest_phone are required for guest bookings"})
		case errors.Is(err, repository.ErrRestaurantNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
		case errors.Is(err, repository.ErrSlotUnknown):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown slot"})
		case errors.Is(err, repository.ErrCapacityExceeded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot is full"})
		case errors.Is(err, repository.ErrIdempotencyMismatch):
			return c.JSON(http.StatusConflict, echo.Map{"error": "client_request_id was already used with different parameters"})
		case errors.Is(err, reservation.ErrUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
		}
	}

	b := conf.Booking
	status := http.StatusCreated
	if conf.Replayed {
		// An idempotent replay returns the earlier booking, not a new row.
		status = http.StatusOK
	} else {
		go h.publishConfirmed(b)
	}

	return c.JSON(status, toBookingResp(&b))
}

// publishConfirmed emits the booking.confirmed event.  Publishing is best
// effort: the booking is already committed and a broker outage must not
// fail the request.
func (h *BookingHandler) publishConfirmed(b model.Booking) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := queue.BookingConfirmedEvent{
		BookingID:    b.ID,
		RestaurantID: b.RestaurantID,
		Date:         b.Date,
		Slot:         b.SlotLabel,
		PartySize:    b.PartySize,
		HolderKind:   "user",
		UserID:       b.Holder.UserID,
		ConfirmedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.Holder.IsGuest() {
		ev.HolderKind = "guest"
		ev.GuestName = b.Holder.GuestName
	}
	if r, err := h.Restaurants.GetByID(ctx, b.RestaurantID); err == nil {
		ev.RestaurantName = r.Name
	}
	_ = queue_publisher.PublishBookingConfirmed(ctx, ev)
}

// ListMyBookings handles GET /v1/my-reservations (protected).  It returns
// the caller's booking history, newest first, with restaurant names joined
// in.
func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetBooking handles GET /v1/reservations/:id.  Authenticated callers are
// matched by user ID; guests must supply the phone used at booking time as
// the "phone" query parameter.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	requester := requesterIdentity(c, c.QueryParam("name"), c.QueryParam("phone"))

	b, err := h.Engine.GetForHolder(c.Request().Context(), id, requester)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
		default:
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
		}
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

type cancelBookingReq struct {
	GuestName  string `json:"guest_name,omitempty"`
	GuestPhone string `json:"guest_phone,omitempty"`
}

// CancelBooking handles DELETE /v1/reservations/:id.  Cancelling releases
// the party's covers back to the slot.  Guests identify themselves with the
// contact details from the original booking in the request body.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req cancelBookingReq
	_ = c.Bind(&req) // body is optional for authenticated callers

	requester := requesterIdentity(c, req.GuestName, req.GuestPhone)

	if err := h.Engine.Cancel(c.Request().Context(), id, requester); err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidHolder):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_name and guest_phone are required for guest cancellations"})
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
		case errors.Is(err, repository.ErrAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
		case errors.Is(err, repository.ErrCancelWindowClosed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking date already passed"})
		default:
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
