package domain

import "time"

type TicketStatus string

const (
	TicketStatusReserved  TicketStatus = "reserved"
	TicketStatusConfirmed TicketStatus = "confirmed"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusCheckedIn TicketStatus = "checked_in"
)

// Ticket is one admission unit. TimeSlotID is empty for general
// admission. Tickets are never deleted; cancellation and check-in are
// status transitions.
type Ticket struct {
	ID            string
	EventID       string
	TimeSlotID    string
	UserID        string
	Status        TicketStatus
	PurchasePrice float64
	CreatedAt     time.Time
}

// Confirm moves a reserved ticket to confirmed. Reserved is transient:
// it exists only between allocation and the purchase transaction commit,
// so external callers never observe it.
func (t *Ticket) Confirm() error {
	if t.Status != TicketStatusReserved {
		return ErrInvalidTransition
	}
	t.Status = TicketStatusConfirmed
	return nil
}

// Cancel moves a confirmed ticket to cancelled.
func (t *Ticket) Cancel() error {
	switch t.Status {
	case TicketStatusCancelled:
		return ErrAlreadyCancelled
	case TicketStatusCheckedIn:
		return ErrNotCancellable
	case TicketStatusConfirmed:
		t.Status = TicketStatusCancelled
		return nil
	default:
		return ErrNotCancellable
	}
}

// CheckIn moves a confirmed ticket to checked_in.
func (t *Ticket) CheckIn() error {
	switch t.Status {
	case TicketStatusCheckedIn:
		return ErrAlreadyCheckedIn
	case TicketStatusCancelled:
		return ErrNotCheckable
	case TicketStatusConfirmed:
		t.Status = TicketStatusCheckedIn
		return nil
	default:
		return ErrNotCheckable
	}
}
