package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

// TicketRepository persists tickets and the purchase idempotency log.
// Tickets are insert-only; lifecycle changes go through
// UpdateTicketStatus so the audit trail survives.
type TicketRepository struct {
	q querier
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{q: querier{pool: pool}}
}

func (r *TicketRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

func (r *TicketRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.q.queryRow(ctx, query, eventID))
	if err != nil {
		return domain.Event{}, mapEventErr(err)
	}
	return e, nil
}

func (r *TicketRepository) GetTimeSlot(ctx context.Context, eventID, slotID string) (domain.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1 AND event_id = $2`
	s, err := scanSlot(r.q.queryRow(ctx, query, slotID, eventID))
	if err != nil {
		return domain.TimeSlot{}, mapSlotErr(err)
	}
	return s, nil
}

func (r *TicketRepository) FindPurchase(ctx context.Context, userID, key string) (*domain.Purchase, error) {
	const query = `
SELECT user_id, idempotency_key, event_id, quantity, ticket_ids, expires_at, created_at
FROM purchases
WHERE user_id = $1 AND idempotency_key = $2`

	var p domain.Purchase
	err := r.q.queryRow(ctx, query, userID, key).
		Scan(&p.UserID, &p.IdempotencyKey, &p.EventID, &p.Quantity, &p.TicketIDs, &p.ExpiresAt, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	return &p, nil
}

func (r *TicketRepository) CreatePurchase(ctx context.Context, p domain.Purchase) error {
	const stmt = `
INSERT INTO purchases (user_id, idempotency_key, event_id, quantity, ticket_ids, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.q.exec(ctx, stmt,
		p.UserID, p.IdempotencyKey, p.EventID, p.Quantity, p.TicketIDs, p.ExpiresAt, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

func (r *TicketRepository) DeleteExpiredPurchases(ctx context.Context, now time.Time) (int, error) {
	const stmt = `DELETE FROM purchases WHERE expires_at <= $1`
	tag, err := r.q.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired purchases: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *TicketRepository) CreateTickets(ctx context.Context, tickets []domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, event_id, time_slot_id, user_id, status, purchase_price, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`

	for _, t := range tickets {
		_, err := r.q.exec(ctx, stmt,
			t.ID, t.EventID, t.TimeSlotID, t.UserID, t.Status, t.PurchasePrice, t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
	}
	return nil
}

const ticketColumns = `id, event_id, COALESCE(time_slot_id::text, ''), user_id, status, purchase_price, created_at`

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	var status string
	err := row.Scan(&t.ID, &t.EventID, &t.TimeSlotID, &t.UserID, &status, &t.PurchasePrice, &t.CreatedAt)
	if err != nil {
		return domain.Ticket{}, err
	}
	t.Status = domain.TicketStatus(status)
	return t, nil
}

func mapTicketErr(err error) error {
	switch {
	case err == pgx.ErrNoRows:
		return domain.ErrTicketNotFound
	case isInvalidUUID(err):
		return domain.ErrInvalidID
	case isLockContention(err):
		return domain.ErrBusy
	}
	return fmt.Errorf("ticket row: %w", err)
}

func (r *TicketRepository) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	t, err := scanTicket(r.q.queryRow(ctx, query, ticketID))
	if err != nil {
		return domain.Ticket{}, mapTicketErr(err)
	}
	return t, nil
}

func (r *TicketRepository) GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 FOR UPDATE`
	t, err := scanTicket(r.q.queryRow(ctx, query, ticketID))
	if err != nil {
		return domain.Ticket{}, mapTicketErr(err)
	}
	return t, nil
}

func (r *TicketRepository) GetTicketsByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ANY($1) ORDER BY created_at, id`
	rows, err := r.q.query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get tickets by ids: %w", err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

func (r *TicketRepository) ListTicketsByUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id = $1 ORDER BY created_at DESC, id`
	rows, err := r.q.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tickets by user: %w", err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TicketRepository) UpdateTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	const stmt = `UPDATE tickets SET status = $2 WHERE id = $1`
	tag, err := r.q.exec(ctx, stmt, ticketID, status)
	if err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}
