package domain

import "time"

type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusActive    EventStatus = "active"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Event is a meet & greet session with an overall attendance pool.
// AvailableSpots is the authoritative counter for the whole event; time
// slots carry their own secondary counters. Both are mutated only through
// the catalog's reserve/release/restore API.
type Event struct {
	ID             string
	Title          string
	Description    string
	StartsAt       time.Time
	EndsAt         time.Time
	Location       string
	Status         EventStatus
	ArtistID       string
	Capacity       int
	AvailableSpots int
	Price          float64
	IsVirtual      bool
	CreatedAt      time.Time
}

// Bookable reports whether tickets can still be purchased at the given
// instant: upcoming or active, and before the event ends.
func (e Event) Bookable(now time.Time) bool {
	if e.Status != EventStatusUpcoming && e.Status != EventStatusActive {
		return false
	}
	return now.Before(e.EndsAt)
}

// CanTransitionTo validates organizer status changes. Cancelled and
// completed are terminal.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case EventStatusUpcoming:
		return next == EventStatusActive || next == EventStatusCompleted || next == EventStatusCancelled
	case EventStatusActive:
		return next == EventStatusCompleted || next == EventStatusCancelled
	default:
		return false
	}
}

func ValidEventStatus(s string) bool {
	switch EventStatus(s) {
	case EventStatusUpcoming, EventStatusActive, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}
