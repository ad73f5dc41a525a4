package domain

import "time"

// Purchase is one entry in the idempotency log, keyed by
// (UserID, IdempotencyKey). It is written in the same transaction as the
// tickets it records, so a retried request either finds the complete
// entry or nothing. Entries past ExpiresAt may be purged.
type Purchase struct {
	UserID         string
	IdempotencyKey string
	EventID        string
	Quantity       int
	TicketIDs      []string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}
