package domain

import "time"

// TimeSlot subdivides an event's attendance window. Slot capacities need
// not sum to the event capacity; the event counter is checked first.
type TimeSlot struct {
	ID             string
	EventID        string
	StartsAt       time.Time
	EndsAt         time.Time
	Capacity       int
	AvailableSpots int
}

// WithinEvent reports whether the slot falls inside its parent window.
func (s TimeSlot) WithinEvent(e Event) bool {
	if s.EndsAt.Before(s.StartsAt) || s.EndsAt.Equal(s.StartsAt) {
		return false
	}
	return !s.StartsAt.Before(e.StartsAt) && !s.EndsAt.After(e.EndsAt)
}
