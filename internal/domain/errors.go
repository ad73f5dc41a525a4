package domain

import "errors"

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrTimeSlotNotFound = errors.New("time slot not found")
	ErrTicketNotFound   = errors.New("ticket not found")

	ErrEventNotBookable     = errors.New("event is not open for booking")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrSoldOut              = errors.New("sold out")
	ErrBusy                 = errors.New("resource busy, retry")
	ErrUnknownToken         = errors.New("unknown reservation token")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	ErrAlreadyCancelled = errors.New("ticket already cancelled")
	ErrAlreadyCheckedIn = errors.New("ticket already checked in")
	ErrNotCancellable   = errors.New("ticket cannot be cancelled")
	ErrNotCheckable     = errors.New("ticket cannot be checked in")

	ErrInvalidID              = errors.New("invalid id")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")

	ErrTitleRequired     = errors.New("event title required")
	ErrArtistRequired    = errors.New("artist id required")
	ErrInvalidCapacity   = errors.New("invalid capacity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidTimeRange  = errors.New("end must be after start")
	ErrSlotOutsideEvent  = errors.New("time slot outside event window")
	ErrInvalidStatus     = errors.New("invalid event status")
	ErrInvalidTransition = errors.New("invalid status transition")
)
