// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a table booking commits.
// It contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID      string `json:"booking_id"`
	RestaurantID   uint64 `json:"restaurant_id"`
	RestaurantName string `json:"restaurant_name"`
	Date           string `json:"date"`
	Slot           string `json:"slot"`
	PartySize      int    `json:"party_size"`
	HolderKind     string `json:"holder_kind"` // "user" or "guest"
	UserID         uint64 `json:"user_id,omitempty"`
	GuestName      string `json:"guest_name,omitempty"`
	ConfirmedAt    string `json:"confirmed_at"`
}
