package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/clock"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

type EventRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateEvent(ctx context.Context, event domain.Event) error
	CreateTimeSlots(ctx context.Context, slots []domain.TimeSlot) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error)
	UpdateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context, filter EventFilter) ([]domain.Event, int, error)
	ListTimeSlotsByEvent(ctx context.Context, eventID string) ([]domain.TimeSlot, error)
}

// EventService covers organizer-side event management. Capacity counters
// are initialized here and never touched again outside the catalog.
type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{repo: repo, clock: clk}
}

type CreateTimeSlotInput struct {
	StartsAt time.Time
	EndsAt   time.Time
	Capacity int
}

type CreateEventInput struct {
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	Location    string
	ArtistID    string
	Capacity    int
	Price       float64
	IsVirtual   bool
	Slots       []CreateTimeSlotInput
}

type EventDetail struct {
	Event domain.Event
	Slots []domain.TimeSlot
}

func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (EventDetail, error) {
	if in.Title == "" {
		return EventDetail{}, domain.ErrTitleRequired
	}
	if in.ArtistID == "" {
		return EventDetail{}, domain.ErrArtistRequired
	}
	if !in.EndsAt.After(in.StartsAt) {
		return EventDetail{}, domain.ErrInvalidTimeRange
	}
	if in.Capacity <= 0 {
		return EventDetail{}, domain.ErrInvalidCapacity
	}
	if in.Price < 0 {
		return EventDetail{}, domain.ErrInvalidPrice
	}

	event := domain.Event{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Description:    in.Description,
		StartsAt:       in.StartsAt,
		EndsAt:         in.EndsAt,
		Location:       in.Location,
		Status:         domain.EventStatusUpcoming,
		ArtistID:       in.ArtistID,
		Capacity:       in.Capacity,
		AvailableSpots: in.Capacity,
		Price:          in.Price,
		IsVirtual:      in.IsVirtual,
		CreatedAt:      s.clock.Now(),
	}

	slots := make([]domain.TimeSlot, 0, len(in.Slots))
	for _, slotIn := range in.Slots {
		if slotIn.Capacity <= 0 {
			return EventDetail{}, domain.ErrInvalidCapacity
		}
		slot := domain.TimeSlot{
			ID:             uuid.NewString(),
			EventID:        event.ID,
			StartsAt:       slotIn.StartsAt,
			EndsAt:         slotIn.EndsAt,
			Capacity:       slotIn.Capacity,
			AvailableSpots: slotIn.Capacity,
		}
		if !slot.WithinEvent(event) {
			return EventDetail{}, domain.ErrSlotOutsideEvent
		}
		slots = append(slots, slot)
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateEvent(txCtx, event); err != nil {
			return err
		}
		if len(slots) == 0 {
			return nil
		}
		return s.repo.CreateTimeSlots(txCtx, slots)
	})
	if err != nil {
		return EventDetail{}, err
	}
	return EventDetail{Event: event, Slots: slots}, nil
}

type EventFilter struct {
	Page     int
	Limit    int
	Status   string
	ArtistID string
	From     *time.Time
	To       *time.Time
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Normalize clamps paging to sane bounds.
func (f EventFilter) Normalize() EventFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	return f
}

type EventPage struct {
	Events []domain.Event
	Total  int
	Page   int
	Limit  int
}

func (s *EventService) ListEvents(ctx context.Context, filter EventFilter) (EventPage, error) {
	filter = filter.Normalize()
	if filter.Status != "" && !domain.ValidEventStatus(filter.Status) {
		return EventPage{}, domain.ErrInvalidStatus
	}
	events, total, err := s.repo.ListEvents(ctx, filter)
	if err != nil {
		return EventPage{}, err
	}
	return EventPage{
		Events: events,
		Total:  total,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventID string) (EventDetail, error) {
	if eventID == "" {
		return EventDetail{}, domain.ErrInvalidID
	}
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return EventDetail{}, err
	}
	slots, err := s.repo.ListTimeSlotsByEvent(ctx, eventID)
	if err != nil {
		return EventDetail{}, err
	}
	return EventDetail{Event: event, Slots: slots}, nil
}

// UpdateEventInput patches mutable fields. Capacity is immutable after
// creation; nil fields are left unchanged.
type UpdateEventInput struct {
	Title       *string
	Description *string
	Location    *string
	Status      *string
	Price       *float64
}

func (s *EventService) UpdateEvent(ctx context.Context, eventID string, in UpdateEventInput) (domain.Event, error) {
	if eventID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}

	var updated domain.Event
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetEventForUpdate(txCtx, eventID)
		if err != nil {
			return err
		}
		if in.Title != nil {
			if *in.Title == "" {
				return domain.ErrTitleRequired
			}
			event.Title = *in.Title
		}
		if in.Description != nil {
			event.Description = *in.Description
		}
		if in.Location != nil {
			event.Location = *in.Location
		}
		if in.Price != nil {
			if *in.Price < 0 {
				return domain.ErrInvalidPrice
			}
			event.Price = *in.Price
		}
		if in.Status != nil {
			if !domain.ValidEventStatus(*in.Status) {
				return domain.ErrInvalidStatus
			}
			next := domain.EventStatus(*in.Status)
			if !event.Status.CanTransitionTo(next) {
				return domain.ErrInvalidTransition
			}
			event.Status = next
		}
		if err := s.repo.UpdateEvent(txCtx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return updated, nil
}
