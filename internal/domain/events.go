package domain

import "time"

// EventHeader is attached to every emitted message.
type EventHeader struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
}

// TicketPurchased is emitted after a purchase transaction commits.
type TicketPurchased struct {
	Header    EventHeader `json:"header"`
	EventID   string      `json:"event_id"`
	UserID    string      `json:"user_id"`
	TicketIDs []string    `json:"ticket_ids"`
	Quantity  int         `json:"quantity"`
}

// TicketPurchaseRejected is emitted when a purchase fails a business
// rule. Reason is a stable code such as "sold_out" or "not_bookable".
type TicketPurchaseRejected struct {
	Header  EventHeader `json:"header"`
	EventID string      `json:"event_id"`
	UserID  string      `json:"user_id"`
	Reason  string      `json:"reason"`
}

// TicketCancelled is emitted after a cancellation restores capacity.
type TicketCancelled struct {
	Header   EventHeader `json:"header"`
	EventID  string      `json:"event_id"`
	UserID   string      `json:"user_id"`
	TicketID string      `json:"ticket_id"`
}
