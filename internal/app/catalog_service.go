package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/clock"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

type CatalogRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	GetTimeSlot(ctx context.Context, eventID, slotID string) (domain.TimeSlot, error)
	GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error)
	GetTimeSlotForUpdate(ctx context.Context, eventID, slotID string) (domain.TimeSlot, error)
	AdjustEventSpots(ctx context.Context, eventID string, delta int) error
	AdjustSlotSpots(ctx context.Context, slotID string, delta int) error
	CreateReservation(ctx context.Context, res domain.Reservation) error
	GetReservationForUpdate(ctx context.Context, token string) (domain.Reservation, error)
	UpdateReservationState(ctx context.Context, token string, state domain.ReservationState) error
	ListExpiredPendingForUpdate(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
}

// CatalogService owns event and time-slot capacity counters. All counter
// movement goes through Reserve, Release, Commit and Restore; nothing
// else in the codebase touches available_spots.
type CatalogService struct {
	repo            CatalogRepository
	clock           clock.Clock
	reservationTTL  time.Duration
	reserveAttempts int
}

const (
	defaultReservationTTL  = 15 * time.Minute
	defaultReserveAttempts = 3
	expiredSweepBatch      = 100
)

type CatalogServiceOption func(*CatalogService)

// WithReservationTTL overrides how long a pending reservation survives
// before the sweeper releases it.
func WithReservationTTL(d time.Duration) CatalogServiceOption {
	return func(s *CatalogService) {
		if d > 0 {
			s.reservationTTL = d
		}
	}
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock, opts ...CatalogServiceOption) *CatalogService {
	svc := &CatalogService{
		repo:            repo,
		clock:           clk,
		reservationTTL:  defaultReservationTTL,
		reserveAttempts: defaultReserveAttempts,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Availability is a read-only snapshot. SlotSpots is nil when no slot id
// is given. It runs without locks; callers tolerate staleness.
type Availability struct {
	EventSpots int
	SlotSpots  *int
}

func (s *CatalogService) Availability(ctx context.Context, eventID, slotID string) (Availability, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Availability{}, err
	}
	out := Availability{EventSpots: event.AvailableSpots}
	if slotID != "" {
		slot, err := s.repo.GetTimeSlot(ctx, eventID, slotID)
		if err != nil {
			return Availability{}, err
		}
		spots := slot.AvailableSpots
		out.SlotSpots = &spots
	}
	return out, nil
}

type ReserveInput struct {
	EventID    string
	TimeSlotID string
	Quantity   int
}

// Reserve atomically checks and debits the event counter (and the slot
// counter when a slot is given) and records a pending reservation. On
// contention the transaction is retried a bounded number of times before
// surfacing ErrBusy; ErrInsufficientCapacity never leaves a partial
// decrement behind.
func (s *CatalogService) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	if in.Quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}

	var lastErr error
	for attempt := 0; attempt < s.reserveAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Reservation{}, err
		}
		res, err := s.reserveOnce(ctx, in)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, domain.ErrBusy) {
			return domain.Reservation{}, err
		}
		lastErr = err
	}
	return domain.Reservation{}, lastErr
}

func (s *CatalogService) reserveOnce(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		// Lock order is always event row then slot row.
		event, err := s.repo.GetEventForUpdate(txCtx, in.EventID)
		if err != nil {
			return err
		}
		if event.AvailableSpots < in.Quantity {
			return domain.ErrInsufficientCapacity
		}

		if in.TimeSlotID != "" {
			slot, err := s.repo.GetTimeSlotForUpdate(txCtx, in.EventID, in.TimeSlotID)
			if err != nil {
				return err
			}
			if slot.AvailableSpots < in.Quantity {
				return domain.ErrInsufficientCapacity
			}
			if err := s.repo.AdjustSlotSpots(txCtx, in.TimeSlotID, -in.Quantity); err != nil {
				return err
			}
		}
		if err := s.repo.AdjustEventSpots(txCtx, in.EventID, -in.Quantity); err != nil {
			return err
		}

		res := domain.Reservation{
			ID:         uuid.NewString(),
			EventID:    in.EventID,
			TimeSlotID: in.TimeSlotID,
			Quantity:   in.Quantity,
			State:      domain.ReservationStatePending,
			ExpiresAt:  now.Add(s.reservationTTL),
			CreatedAt:  now,
		}
		if err := s.repo.CreateReservation(txCtx, res); err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

// Release restores the quantity debited by a pending reservation. It is
// idempotent for already-released tokens; committed or unknown tokens
// fail with ErrUnknownToken.
func (s *CatalogService) Release(ctx context.Context, token string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, token)
		if err != nil {
			return err
		}
		switch res.State {
		case domain.ReservationStateReleased:
			return nil
		case domain.ReservationStateCommitted:
			return domain.ErrUnknownToken
		}
		return s.releaseLocked(txCtx, res)
	})
}

func (s *CatalogService) releaseLocked(txCtx context.Context, res domain.Reservation) error {
	if res.TimeSlotID != "" {
		if err := s.repo.AdjustSlotSpots(txCtx, res.TimeSlotID, res.Quantity); err != nil {
			return err
		}
	}
	if err := s.repo.AdjustEventSpots(txCtx, res.EventID, res.Quantity); err != nil {
		return err
	}
	return s.repo.UpdateReservationState(txCtx, res.ID, domain.ReservationStateReleased)
}

// Commit retires a pending token so release can no longer apply. The
// counters were already debited at reserve time. Commit joins the
// caller's transaction when one is carried in ctx.
func (s *CatalogService) Commit(ctx context.Context, token string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, token)
		if err != nil {
			return err
		}
		if res.State != domain.ReservationStatePending {
			return domain.ErrUnknownToken
		}
		return s.repo.UpdateReservationState(txCtx, res.ID, domain.ReservationStateCommitted)
	})
}

// Restore adds capacity back after a ticket cancellation. The purchase
// token was retired at commit time, so this is a direct counter credit,
// clamped to capacity by the storage layer.
func (s *CatalogService) Restore(ctx context.Context, eventID, slotID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetEventForUpdate(txCtx, eventID); err != nil {
			return err
		}
		if slotID != "" {
			if err := s.repo.AdjustSlotSpots(txCtx, slotID, quantity); err != nil {
				return err
			}
		}
		return s.repo.AdjustEventSpots(txCtx, eventID, quantity)
	})
}

// ReleaseExpired sweeps pending reservations past their TTL, restoring
// their counters. It returns how many were released.
func (s *CatalogService) ReleaseExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	released := 0
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		expired, err := s.repo.ListExpiredPendingForUpdate(txCtx, now, expiredSweepBatch)
		if err != nil {
			return err
		}
		for _, res := range expired {
			if err := s.releaseLocked(txCtx, res); err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}
