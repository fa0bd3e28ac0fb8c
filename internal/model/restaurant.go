package model

import "time"

// Restaurant describes a bookable venue in the catalog.  Rows are
// loaded by the bulk seed process and treated as read-only by the
// booking core.  Opening and closing hold the venue's local
// time-of-day as "HH:MM" strings; slot labels always fall inside
// this window.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name, unique within the catalog.
//  Address   – street address shown to diners.
//  Opening   – opening time-of-day ("HH:MM").
//  Closing   – closing time-of-day ("HH:MM").
//  Images    – ordered carousel image URLs.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Restaurant struct {
	ID        uint64    // restaurants.id
	Name      string    // restaurants.name
	Address   string    // restaurants.address
	Opening   string    // restaurants.opening
	Closing   string    // restaurants.closing
	Images    []string  // restaurant_images.url ordered by position
	CreatedAt time.Time // restaurants.created_at
	UpdatedAt time.Time // restaurants.updated_at
}
