package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/clock"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

func TestCatalogService_Reserve(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	ttl := 10 * time.Minute

	t.Run("debits event and slot counters", func(t *testing.T) {
		repo := newFakeCatalogRepo(
			[]domain.Event{{ID: "event-1", Capacity: 50, AvailableSpots: 20}},
			[]domain.TimeSlot{{ID: "slot-1", EventID: "event-1", Capacity: 10, AvailableSpots: 8}},
		)
		svc := NewCatalogService(repo, clock.NewFixed(now), WithReservationTTL(ttl))

		res, err := svc.Reserve(context.Background(), ReserveInput{
			EventID:    "event-1",
			TimeSlotID: "slot-1",
			Quantity:   3,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.ID == "" {
			t.Fatalf("expected reservation id to be set")
		}
		if res.State != domain.ReservationStatePending {
			t.Fatalf("expected pending state, got %s", res.State)
		}
		if res.ExpiresAt != now.Add(ttl) {
			t.Fatalf("expected expires_at %v, got %v", now.Add(ttl), res.ExpiresAt)
		}
		if got := repo.events["event-1"].AvailableSpots; got != 17 {
			t.Fatalf("expected event spots 17, got %d", got)
		}
		if got := repo.slots["slot-1"].AvailableSpots; got != 5 {
			t.Fatalf("expected slot spots 5, got %d", got)
		}
	})

	t.Run("general admission skips slot counter", func(t *testing.T) {
		repo := newFakeCatalogRepo(
			[]domain.Event{{ID: "event-1", Capacity: 50, AvailableSpots: 20}},
			nil,
		)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		if _, err := svc.Reserve(context.Background(), ReserveInput{EventID: "event-1", Quantity: 4}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := repo.events["event-1"].AvailableSpots; got != 16 {
			t.Fatalf("expected event spots 16, got %d", got)
		}
	})

	t.Run("no partial decrement when slot is short", func(t *testing.T) {
		repo := newFakeCatalogRepo(
			[]domain.Event{{ID: "event-1", Capacity: 50, AvailableSpots: 20}},
			[]domain.TimeSlot{{ID: "slot-1", EventID: "event-1", Capacity: 10, AvailableSpots: 2}},
		)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		_, err := svc.Reserve(context.Background(), ReserveInput{
			EventID:    "event-1",
			TimeSlotID: "slot-1",
			Quantity:   5,
		})
		if err != domain.ErrInsufficientCapacity {
			t.Fatalf("expected ErrInsufficientCapacity, got %v", err)
		}
		if got := repo.events["event-1"].AvailableSpots; got != 20 {
			t.Fatalf("expected event spots unchanged, got %d", got)
		}
		if got := repo.slots["slot-1"].AvailableSpots; got != 2 {
			t.Fatalf("expected slot spots unchanged, got %d", got)
		}
	})

	t.Run("insufficient event capacity", func(t *testing.T) {
		repo := newFakeCatalogRepo(
			[]domain.Event{{ID: "event-1", Capacity: 10, AvailableSpots: 3}},
			nil,
		)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		_, err := svc.Reserve(context.Background(), ReserveInput{EventID: "event-1", Quantity: 5})
		if err != domain.ErrInsufficientCapacity {
			t.Fatalf("expected ErrInsufficientCapacity, got %v", err)
		}
	})

	t.Run("retries past transient contention", func(t *testing.T) {
		repo := newFakeCatalogRepo(
			[]domain.Event{{ID: "event-1", Capacity: 10, AvailableSpots: 10}},
			nil,
		)
		repo.busyTx = 2
		svc := NewCatalogService(repo, clock.NewFixed(now))

		if _, err := svc.Reserve(context.Background(), ReserveInput{EventID: "event-1", Quantity: 1}); err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
	})

	t.Run("bounded retries surface Busy", func(t *testing.T) {
		repo := newFakeCatalogRepo(
			[]domain.Event{{ID: "event-1", Capacity: 10, AvailableSpots: 10}},
			nil,
		)
		repo.busyTx = 10
		svc := NewCatalogService(repo, clock.NewFixed(now))

		_, err := svc.Reserve(context.Background(), ReserveInput{EventID: "event-1", Quantity: 1})
		if err != domain.ErrBusy {
			t.Fatalf("expected ErrBusy, got %v", err)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		repo := newFakeCatalogRepo(nil, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		_, err := svc.Reserve(context.Background(), ReserveInput{EventID: "missing", Quantity: 1})
		if err != domain.ErrEventNotFound {
			t.Fatalf("expected ErrEventNotFound, got %v", err)
		}
	})

	t.Run("invalid quantity", func(t *testing.T) {
		repo := newFakeCatalogRepo(nil, nil)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		_, err := svc.Reserve(context.Background(), ReserveInput{EventID: "event-1", Quantity: 0})
		if err != domain.ErrInvalidQuantity {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

func TestCatalogService_ReleaseAndCommit(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*CatalogService, *fakeCatalogRepo, domain.Reservation) {
		t.Helper()
		repo := newFakeCatalogRepo(
			[]domain.Event{{ID: "event-1", Capacity: 50, AvailableSpots: 20}},
			[]domain.TimeSlot{{ID: "slot-1", EventID: "event-1", Capacity: 10, AvailableSpots: 8}},
		)
		svc := NewCatalogService(repo, clock.NewFixed(now))
		res, err := svc.Reserve(context.Background(), ReserveInput{
			EventID:    "event-1",
			TimeSlotID: "slot-1",
			Quantity:   3,
		})
		if err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		return svc, repo, res
	}

	t.Run("release restores both counters", func(t *testing.T) {
		svc, repo, res := setup(t)

		if err := svc.Release(context.Background(), res.ID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := repo.events["event-1"].AvailableSpots; got != 20 {
			t.Fatalf("expected event spots restored to 20, got %d", got)
		}
		if got := repo.slots["slot-1"].AvailableSpots; got != 8 {
			t.Fatalf("expected slot spots restored to 8, got %d", got)
		}
	})

	t.Run("release is idempotent", func(t *testing.T) {
		svc, repo, res := setup(t)

		if err := svc.Release(context.Background(), res.ID); err != nil {
			t.Fatalf("first release: %v", err)
		}
		if err := svc.Release(context.Background(), res.ID); err != nil {
			t.Fatalf("second release should be a no-op, got %v", err)
		}
		if got := repo.events["event-1"].AvailableSpots; got != 20 {
			t.Fatalf("expected event spots 20 after double release, got %d", got)
		}
	})

	t.Run("commit retires the token", func(t *testing.T) {
		svc, repo, res := setup(t)

		if err := svc.Commit(context.Background(), res.ID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := repo.events["event-1"].AvailableSpots; got != 17 {
			t.Fatalf("commit must not move counters, got %d", got)
		}
		if err := svc.Release(context.Background(), res.ID); err != domain.ErrUnknownToken {
			t.Fatalf("release after commit should fail with ErrUnknownToken, got %v", err)
		}
		if err := svc.Commit(context.Background(), res.ID); err != domain.ErrUnknownToken {
			t.Fatalf("double commit should fail with ErrUnknownToken, got %v", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		svc, _, _ := setup(t)

		if err := svc.Commit(context.Background(), "nope"); err != domain.ErrUnknownToken {
			t.Fatalf("expected ErrUnknownToken, got %v", err)
		}
		if err := svc.Release(context.Background(), "nope"); err != domain.ErrUnknownToken {
			t.Fatalf("expected ErrUnknownToken, got %v", err)
		}
	})
}

func TestCatalogService_Restore(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	t.Run("credits one unit back", func(t *testing.T) {
		repo := newFakeCatalogRepo(
			[]domain.Event{{ID: "event-1", Capacity: 50, AvailableSpots: 10}},
			[]domain.TimeSlot{{ID: "slot-1", EventID: "event-1", Capacity: 10, AvailableSpots: 4}},
		)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		if err := svc.Restore(context.Background(), "event-1", "slot-1", 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := repo.events["event-1"].AvailableSpots; got != 11 {
			t.Fatalf("expected event spots 11, got %d", got)
		}
		if got := repo.slots["slot-1"].AvailableSpots; got != 5 {
			t.Fatalf("expected slot spots 5, got %d", got)
		}
	})

	t.Run("clamps at capacity", func(t *testing.T) {
		repo := newFakeCatalogRepo(
			[]domain.Event{{ID: "event-1", Capacity: 50, AvailableSpots: 50}},
			nil,
		)
		svc := NewCatalogService(repo, clock.NewFixed(now))

		if err := svc.Restore(context.Background(), "event-1", "", 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := repo.events["event-1"].AvailableSpots; got != 50 {
			t.Fatalf("expected event spots clamped at 50, got %d", got)
		}
	})
}

func TestCatalogService_ReleaseExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeCatalogRepo(
		[]domain.Event{{ID: "event-1", Capacity: 50, AvailableSpots: 50}},
		nil,
	)
	svc := NewCatalogService(repo, clock.NewFixed(now.Add(-30*time.Minute)), WithReservationTTL(10*time.Minute))

	// Two reservations created 30 minutes ago with a 10 minute TTL.
	if _, err := svc.Reserve(context.Background(), ReserveInput{EventID: "event-1", Quantity: 3}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	res2, err := svc.Reserve(context.Background(), ReserveInput{EventID: "event-1", Quantity: 2})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	// The second one was committed; only the first should be swept.
	if err := svc.Commit(context.Background(), res2.ID); err != nil {
		t.Fatalf("commit: %v", err)
	}

	sweeper := NewCatalogService(repo, clock.NewFixed(now))
	released, err := sweeper.ReleaseExpired(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released reservation, got %d", released)
	}
	if got := repo.events["event-1"].AvailableSpots; got != 48 {
		t.Fatalf("expected event spots 48 (only pending restored), got %d", got)
	}
}

func TestCatalogService_Availability(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeCatalogRepo(
		[]domain.Event{{ID: "event-1", Capacity: 50, AvailableSpots: 12}},
		[]domain.TimeSlot{{ID: "slot-1", EventID: "event-1", Capacity: 10, AvailableSpots: 7}},
	)
	svc := NewCatalogService(repo, clock.NewFixed(now))

	t.Run("event only", func(t *testing.T) {
		got, err := svc.Availability(context.Background(), "event-1", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.EventSpots != 12 {
			t.Fatalf("expected 12 event spots, got %d", got.EventSpots)
		}
		if got.SlotSpots != nil {
			t.Fatalf("expected nil slot spots")
		}
	})

	t.Run("with slot", func(t *testing.T) {
		got, err := svc.Availability(context.Background(), "event-1", "slot-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.SlotSpots == nil || *got.SlotSpots != 7 {
			t.Fatalf("expected 7 slot spots, got %v", got.SlotSpots)
		}
	})

	t.Run("unknown slot", func(t *testing.T) {
		_, err := svc.Availability(context.Background(), "event-1", "missing")
		if err != domain.ErrTimeSlotNotFound {
			t.Fatalf("expected ErrTimeSlotNotFound, got %v", err)
		}
	})
}

// fakeCatalogRepo keeps counters in maps. WithTx serializes on a mutex,
// standing in for the row locks the Postgres repository takes.
type fakeCatalogRepo struct {
	mu           sync.Mutex
	events       map[string]*domain.Event
	slots        map[string]*domain.TimeSlot
	reservations map[string]*domain.Reservation

	// busyTx makes the next N transactions fail with ErrBusy.
	busyTx int
}

func newFakeCatalogRepo(events []domain.Event, slots []domain.TimeSlot) *fakeCatalogRepo {
	f := &fakeCatalogRepo{
		events:       make(map[string]*domain.Event),
		slots:        make(map[string]*domain.TimeSlot),
		reservations: make(map[string]*domain.Reservation),
	}
	for i := range events {
		e := events[i]
		f.events[e.ID] = &e
	}
	for i := range slots {
		s := slots[i]
		f.slots[s.ID] = &s
	}
	return f
}

func (f *fakeCatalogRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busyTx > 0 {
		f.busyTx--
		return domain.ErrBusy
	}
	return fn(ctx)
}

func (f *fakeCatalogRepo) GetEvent(_ context.Context, eventID string) (domain.Event, error) {
	e, ok := f.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return *e, nil
}

func (f *fakeCatalogRepo) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	return f.GetEvent(ctx, eventID)
}

func (f *fakeCatalogRepo) GetTimeSlot(_ context.Context, eventID, slotID string) (domain.TimeSlot, error) {
	s, ok := f.slots[slotID]
	if !ok || s.EventID != eventID {
		return domain.TimeSlot{}, domain.ErrTimeSlotNotFound
	}
	return *s, nil
}

func (f *fakeCatalogRepo) GetTimeSlotForUpdate(ctx context.Context, eventID, slotID string) (domain.TimeSlot, error) {
	return f.GetTimeSlot(ctx, eventID, slotID)
}

func (f *fakeCatalogRepo) AdjustEventSpots(_ context.Context, eventID string, delta int) error {
	e, ok := f.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	next := e.AvailableSpots + delta
	if next < 0 {
		return domain.ErrInsufficientCapacity
	}
	if next > e.Capacity {
		next = e.Capacity
	}
	e.AvailableSpots = next
	return nil
}

func (f *fakeCatalogRepo) AdjustSlotSpots(_ context.Context, slotID string, delta int) error {
	s, ok := f.slots[slotID]
	if !ok {
		return domain.ErrTimeSlotNotFound
	}
	next := s.AvailableSpots + delta
	if next < 0 {
		return domain.ErrInsufficientCapacity
	}
	if next > s.Capacity {
		next = s.Capacity
	}
	s.AvailableSpots = next
	return nil
}

func (f *fakeCatalogRepo) CreateReservation(_ context.Context, res domain.Reservation) error {
	f.reservations[res.ID] = &res
	return nil
}

func (f *fakeCatalogRepo) GetReservationForUpdate(_ context.Context, token string) (domain.Reservation, error) {
	res, ok := f.reservations[token]
	if !ok {
		return domain.Reservation{}, domain.ErrUnknownToken
	}
	return *res, nil
}

func (f *fakeCatalogRepo) UpdateReservationState(_ context.Context, token string, state domain.ReservationState) error {
	res, ok := f.reservations[token]
	if !ok {
		return domain.ErrUnknownToken
	}
	res.State = state
	return nil
}

func (f *fakeCatalogRepo) ListExpiredPendingForUpdate(_ context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.State != domain.ReservationStatePending {
			continue
		}
		if res.ExpiresAt.After(now) {
			continue
		}
		out = append(out, *res)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
