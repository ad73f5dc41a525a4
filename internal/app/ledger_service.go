package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/clock"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

type TicketRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	GetTimeSlot(ctx context.Context, eventID, slotID string) (domain.TimeSlot, error)
	FindPurchase(ctx context.Context, userID, key string) (*domain.Purchase, error)
	CreatePurchase(ctx context.Context, p domain.Purchase) error
	DeleteExpiredPurchases(ctx context.Context, now time.Time) (int, error)
	CreateTickets(ctx context.Context, tickets []domain.Ticket) error
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	GetTicketsByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error)
	GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error
	ListTicketsByUser(ctx context.Context, userID string) ([]domain.Ticket, error)
}

// Catalog is the capacity port the ledger books against. Commit and
// Restore join the ledger's transaction when called with a tx context.
type Catalog interface {
	Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error)
	Release(ctx context.Context, token string) error
	Commit(ctx context.Context, token string) error
	Restore(ctx context.Context, eventID, slotID string, quantity int) error
}

// Notifier is fire-and-forget: delivery failures are the port's problem,
// never the ledger's.
type Notifier interface {
	TicketPurchased(ctx context.Context, msg domain.TicketPurchased)
	PurchaseRejected(ctx context.Context, msg domain.TicketPurchaseRejected)
	TicketCancelled(ctx context.Context, msg domain.TicketCancelled)
}

// LedgerService implements the purchase and cancellation flows on top of
// the catalog's two-phase reserve/commit/release.
type LedgerService struct {
	repo      TicketRepository
	catalog   Catalog
	notifier  Notifier
	clock     clock.Clock
	logger    logrus.FieldLogger
	retention time.Duration
}

const defaultIdempotencyRetention = 24 * time.Hour

type LedgerServiceOption func(*LedgerService)

// WithIdempotencyRetention overrides how long idempotency-log entries
// are kept before the purge job may drop them.
func WithIdempotencyRetention(d time.Duration) LedgerServiceOption {
	return func(s *LedgerService) {
		if d > 0 {
			s.retention = d
		}
	}
}

func NewLedgerService(repo TicketRepository, catalog Catalog, notifier Notifier, clk clock.Clock, logger logrus.FieldLogger, opts ...LedgerServiceOption) *LedgerService {
	svc := &LedgerService{
		repo:      repo,
		catalog:   catalog,
		notifier:  notifier,
		clock:     clk,
		logger:    logger,
		retention: defaultIdempotencyRetention,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PurchaseInput struct {
	EventID        string
	TimeSlotID     string
	UserID         string
	Quantity       int
	IdempotencyKey string
}

// Purchase allocates Quantity tickets all-or-nothing. Capacity is
// debited by Reserve before any ticket exists; ticket creation, the
// idempotency-log write and the token commit share one transaction, and
// any failure in between releases the reservation before the error
// surfaces. A retry with the same (user, key) returns the original
// ticket set without touching counters.
func (s *LedgerService) Purchase(ctx context.Context, in PurchaseInput) ([]domain.Ticket, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.IdempotencyKey == "" {
		return nil, domain.ErrIdempotencyKeyRequired
	}
	if in.EventID == "" || in.UserID == "" {
		return nil, domain.ErrInvalidID
	}

	if tickets, done, err := s.replayPurchase(ctx, in); done || err != nil {
		return tickets, err
	}

	now := s.clock.Now()
	event, err := s.repo.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if !event.Bookable(now) {
		s.notifier.PurchaseRejected(ctx, s.rejected(in, "not_bookable"))
		return nil, domain.ErrEventNotBookable
	}
	if in.TimeSlotID != "" {
		if _, err := s.repo.GetTimeSlot(ctx, in.EventID, in.TimeSlotID); err != nil {
			return nil, err
		}
	}

	res, err := s.catalog.Reserve(ctx, ReserveInput{
		EventID:    in.EventID,
		TimeSlotID: in.TimeSlotID,
		Quantity:   in.Quantity,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCapacity) {
			s.notifier.PurchaseRejected(ctx, s.rejected(in, "sold_out"))
			return nil, domain.ErrSoldOut
		}
		return nil, err
	}

	tickets := make([]domain.Ticket, 0, in.Quantity)
	ids := make([]string, 0, in.Quantity)
	for i := 0; i < in.Quantity; i++ {
		t := domain.Ticket{
			ID:            uuid.NewString(),
			EventID:       in.EventID,
			TimeSlotID:    in.TimeSlotID,
			UserID:        in.UserID,
			Status:        domain.TicketStatusReserved,
			PurchasePrice: event.Price,
			CreatedAt:     now,
		}
		if err := t.Confirm(); err != nil {
			s.release(ctx, res.ID)
			return nil, err
		}
		tickets = append(tickets, t)
		ids = append(ids, t.ID)
	}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateTickets(txCtx, tickets); err != nil {
			return err
		}
		if err := s.repo.CreatePurchase(txCtx, domain.Purchase{
			UserID:         in.UserID,
			IdempotencyKey: in.IdempotencyKey,
			EventID:        in.EventID,
			Quantity:       in.Quantity,
			TicketIDs:      ids,
			ExpiresAt:      now.Add(s.retention),
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		return s.catalog.Commit(txCtx, res.ID)
	})
	if err != nil {
		s.release(ctx, res.ID)
		if errors.Is(err, domain.ErrIdempotencyConflict) {
			// A concurrent retry with the same key won the race; hand
			// back its tickets instead of failing the caller.
			if tickets, done, rerr := s.replayPurchase(ctx, in); done {
				return tickets, rerr
			}
		}
		return nil, err
	}

	s.notifier.TicketPurchased(ctx, domain.TicketPurchased{
		Header:    s.newHeader(),
		EventID:   in.EventID,
		UserID:    in.UserID,
		TicketIDs: ids,
		Quantity:  in.Quantity,
	})
	return tickets, nil
}

// replayPurchase serves a retried request from the idempotency log.
// done is false when no entry exists and the purchase should proceed.
func (s *LedgerService) replayPurchase(ctx context.Context, in PurchaseInput) (tickets []domain.Ticket, done bool, err error) {
	existing, err := s.repo.FindPurchase(ctx, in.UserID, in.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, nil
	}
	if existing.EventID != in.EventID || existing.Quantity != in.Quantity {
		return nil, true, domain.ErrIdempotencyConflict
	}
	tickets, err = s.repo.GetTicketsByIDs(ctx, existing.TicketIDs)
	if err != nil {
		return nil, true, err
	}
	return tickets, true, nil
}

// release is the compensating action after a failed purchase step. The
// counter credit must not be lost, so failures here are logged loudly;
// the expiry sweeper will reclaim the reservation regardless.
func (s *LedgerService) release(ctx context.Context, token string) {
	if err := s.catalog.Release(ctx, token); err != nil {
		s.logger.WithError(err).WithField("token", token).Error("compensating release failed")
	}
}

// Cancel sets a ticket to cancelled and restores one unit of capacity in
// the same transaction. Only the owner or an elevated role may cancel.
func (s *LedgerService) Cancel(ctx context.Context, ticketID, byUserID string, role domain.Role) (domain.Ticket, error) {
	var cancelled domain.Ticket
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.repo.GetTicketForUpdate(txCtx, ticketID)
		if err != nil {
			return err
		}
		if ticket.UserID != byUserID && !role.Elevated() {
			return domain.ErrForbidden
		}
		if err := ticket.Cancel(); err != nil {
			return err
		}
		if err := s.repo.UpdateTicketStatus(txCtx, ticket.ID, ticket.Status); err != nil {
			return err
		}
		if err := s.catalog.Restore(txCtx, ticket.EventID, ticket.TimeSlotID, 1); err != nil {
			return err
		}
		cancelled = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	s.notifier.TicketCancelled(ctx, domain.TicketCancelled{
		Header:   s.newHeader(),
		EventID:  cancelled.EventID,
		UserID:   cancelled.UserID,
		TicketID: cancelled.ID,
	})
	return cancelled, nil
}

// CheckIn marks a confirmed ticket as used. Elevated roles only; fans do
// not check themselves in.
func (s *LedgerService) CheckIn(ctx context.Context, ticketID string, role domain.Role) (domain.Ticket, error) {
	if !role.Elevated() {
		return domain.Ticket{}, domain.ErrForbidden
	}
	var checked domain.Ticket
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.repo.GetTicketForUpdate(txCtx, ticketID)
		if err != nil {
			return err
		}
		if err := ticket.CheckIn(); err != nil {
			return err
		}
		if err := s.repo.UpdateTicketStatus(txCtx, ticket.ID, ticket.Status); err != nil {
			return err
		}
		checked = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return checked, nil
}

// Ticket returns one ticket, visible to its owner or an elevated role.
func (s *LedgerService) Ticket(ctx context.Context, ticketID, byUserID string, role domain.Role) (domain.Ticket, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket.UserID != byUserID && !role.Elevated() {
		return domain.Ticket{}, domain.ErrForbidden
	}
	return ticket, nil
}

func (s *LedgerService) TicketsByUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	if userID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListTicketsByUser(ctx, userID)
}

// PurgeIdempotencyLog drops purchase entries past the retention window.
func (s *LedgerService) PurgeIdempotencyLog(ctx context.Context) (int, error) {
	return s.repo.DeleteExpiredPurchases(ctx, s.clock.Now())
}

func (s *LedgerService) newHeader() domain.EventHeader {
	return domain.EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: s.clock.Now(),
	}
}

func (s *LedgerService) rejected(in PurchaseInput, reason string) domain.TicketPurchaseRejected {
	return domain.TicketPurchaseRejected{
		Header:  s.newHeader(),
		EventID: in.EventID,
		UserID:  in.UserID,
		Reason:  reason,
	}
}
