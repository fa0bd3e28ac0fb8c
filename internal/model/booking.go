package model

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used everywhere a booking date
// crosses a boundary (API, database, cache keys).  Dates carry no
// time-of-day and no zone; they are anchored to the restaurant's local
// calendar.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date in DateLayout.  The returned time is
// midnight UTC of that date and is only used for ordering comparisons.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Booking statuses.  A booking is never deleted; cancellation tombstones
// the row so history and audit are preserved while its party size stops
// counting against the slot's capacity.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// HolderKind discriminates the two forms a booking holder can take.
type HolderKind string

const (
	HolderAuthenticated HolderKind = "AUTHENTICATED"
	HolderGuest         HolderKind = "GUEST"
)

// ErrInvalidHolder is returned by HolderIdentity.Validate when neither a
// user ID nor complete guest contact details are present.
var ErrInvalidHolder = errors.New("invalid holder identity")

// HolderIdentity identifies who owns a booking.  It is a tagged union:
// either an authenticated user ID issued by the auth subsystem, or guest
// contact details captured at booking time.  A zero HolderIdentity is
// invalid; every booking must be attributable.
type HolderIdentity struct {
	Kind       HolderKind // discriminator
	UserID     uint64     // set when Kind == HolderAuthenticated
	GuestName  string     // set when Kind == HolderGuest
	GuestPhone string     // set when Kind == HolderGuest
}

// AuthenticatedHolder builds a holder for a signed-in user.
func AuthenticatedHolder(userID uint64) HolderIdentity {
	return HolderIdentity{Kind: HolderAuthenticated, UserID: userID}
}

// GuestHolder builds a holder from guest contact details.  Name and
// phone are trimmed; validation happens in Validate.
func GuestHolder(name, phone string) HolderIdentity {
	return HolderIdentity{
		Kind:       HolderGuest,
		GuestName:  strings.TrimSpace(name),
		GuestPhone: strings.TrimSpace(phone),
	}
}

// Validate checks that the identity is complete for its kind.
func (h HolderIdentity) Validate() error {
	switch h.Kind {
	case HolderAuthenticated:
		if h.UserID == 0 {
			return ErrInvalidHolder
		}
	case HolderGuest:
		if h.GuestName == "" || h.GuestPhone == "" {
			return ErrInvalidHolder
		}
	default:
		return ErrInvalidHolder
	}
	return nil
}

// IsGuest reports whether the holder is an unauthenticated guest.
func (h HolderIdentity) IsGuest() bool { return h.Kind == HolderGuest }

// Owns reports whether the given holder is the same party as this one.
// Authenticated holders match by user ID; guests match by phone, which
// is the only stable identifier a guest supplies.
func (h HolderIdentity) Owns(other HolderIdentity) bool {
	if h.Kind != other.Kind {
		return false
	}
	if h.Kind == HolderAuthenticated {
		return h.UserID == other.UserID
	}
	return h.GuestPhone != "" && h.GuestPhone == other.GuestPhone
}

// Booking is one committed reservation in the ledger.  Rows are
// append-mostly: the only lifecycle transitions are creation and
// cancellation (tombstone).  The no-oversell invariant – for any
// (restaurant, date, slot) the sum of party sizes over CONFIRMED rows
// never exceeds the slot's capacity – is enforced inside the ledger's
// conditional append, not here.
//
// Fields:
//  ID              – UUID generated at commit.
//  RestaurantID    – restaurant being booked.
//  Date            – calendar date in DateLayout.
//  SlotLabel       – slot label from the restaurant's template.
//  PartySize       – number of covers, 1..MaxPartySize.
//  Holder          – who owns the booking.
//  Status          – CONFIRMED or CANCELLED.
//  ClientRequestID – optional caller-supplied idempotency token.
//  CreatedAt       – commit timestamp.
//  CancelledAt     – tombstone timestamp, nil while confirmed.
type Booking struct {
	ID              string         // bookings.id (UUID)
	RestaurantID    uint64         // bookings.restaurant_id
	Date            string         // bookings.booking_date
	SlotLabel       string         // bookings.slot_label
	PartySize       int            // bookings.party_size
	Holder          HolderIdentity // bookings.user_id / guest_name / guest_phone
	Status          string         // bookings.status
	ClientRequestID string         // bookings.client_request_id (empty when absent)
	CreatedAt       time.Time      // bookings.created_at
	CancelledAt     *time.Time     // bookings.cancelled_at (nullable)
}
