package domain

import "time"

type ReservationState string

const (
	ReservationStatePending   ReservationState = "pending"
	ReservationStateCommitted ReservationState = "committed"
	ReservationStateReleased  ReservationState = "released"
)

// Reservation binds a capacity debit to a pending purchase. Its ID is
// the opaque token callers redeem via commit or release. Capacity is
// debited when the reservation is created, so commit touches no
// counters; release restores them. Pending reservations expire so a
// crash between reserve and commit cannot strand capacity.
type Reservation struct {
	ID         string
	EventID    string
	TimeSlotID string
	Quantity   int
	State      ReservationState
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
