// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and services to distinguish between different failure
// scenarios. For example, ErrForbidden indicates that the current
// caller is not the holder of a booking they are trying to cancel,
// while ErrCapacityExceeded signals that a slot cannot accept the
// requested party size at commit time.
package repository

import "errors"

// ErrRestaurantNotFound is returned when a restaurant id does not
// exist in the catalog. Handlers should translate this into an
// HTTP 404 response.
var ErrRestaurantNotFound = errors.New("restaurant not found")

// ErrBookingNotFound is returned when a booking id does not exist
// in the ledger. Handlers should translate this into an HTTP 404
// response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSlotUnknown is returned when a slot label is not part of the
// restaurant's slot template. Handlers should translate this into
// an HTTP 400 response.
var ErrSlotUnknown = errors.New("slot unknown")

// ErrCapacityExceeded is returned by the conditional append when the
// committed sum of party sizes plus the candidate's party size would
// exceed the slot's capacity. This is an expected user-facing
// outcome, not a fault; handlers translate it into HTTP 409.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrForbidden is returned when the caller attempts an operation
// on a booking they do not hold. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyCancelled is returned when cancelling a booking that is
// already tombstoned. Handlers should translate this into an HTTP
// 409 response.
var ErrAlreadyCancelled = errors.New("booking already cancelled")

// ErrCancelWindowClosed is returned when cancelling a booking whose
// date has already passed. Past bookings stay in the history as they
// happened; handlers translate this into an HTTP 409 response.
var ErrCancelWindowClosed = errors.New("booking date already passed")

// ErrIdempotencyMismatch is returned when a client request id was
// seen before but the accompanying parameters differ from the
// original attempt. The retry is rejected rather than silently
// creating a second booking or returning a confirmation for
// different parameters.
var ErrIdempotencyMismatch = errors.New("client request id reused with different parameters")
