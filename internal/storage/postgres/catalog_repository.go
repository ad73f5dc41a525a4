package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

// CatalogRepository persists capacity counters and reservation tokens.
// Counter movement happens under FOR UPDATE row locks taken by the
// catalog service inside WithTx, always event row before slot row.
type CatalogRepository struct {
	q querier
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{q: querier{pool: pool}}
}

func (r *CatalogRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

const eventColumns = `id, title, description, starts_at, ends_at, location, status, artist_id, capacity, available_spots, price, is_virtual, created_at`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	var status string
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.Location,
		&status, &e.ArtistID, &e.Capacity, &e.AvailableSpots, &e.Price,
		&e.IsVirtual, &e.CreatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}
	e.Status = domain.EventStatus(status)
	return e, nil
}

func mapEventErr(err error) error {
	switch {
	case err == pgx.ErrNoRows:
		return domain.ErrEventNotFound
	case isInvalidUUID(err):
		return domain.ErrInvalidID
	case isLockContention(err):
		return domain.ErrBusy
	}
	return fmt.Errorf("event row: %w", err)
}

func (r *CatalogRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.q.queryRow(ctx, query, eventID))
	if err != nil {
		return domain.Event{}, mapEventErr(err)
	}
	return e, nil
}

func (r *CatalogRepository) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	e, err := scanEvent(r.q.queryRow(ctx, query, eventID))
	if err != nil {
		return domain.Event{}, mapEventErr(err)
	}
	return e, nil
}

const slotColumns = `id, event_id, starts_at, ends_at, capacity, available_spots`

func scanSlot(row pgx.Row) (domain.TimeSlot, error) {
	var s domain.TimeSlot
	err := row.Scan(&s.ID, &s.EventID, &s.StartsAt, &s.EndsAt, &s.Capacity, &s.AvailableSpots)
	return s, err
}

func mapSlotErr(err error) error {
	switch {
	case err == pgx.ErrNoRows:
		return domain.ErrTimeSlotNotFound
	case isInvalidUUID(err):
		return domain.ErrInvalidID
	case isLockContention(err):
		return domain.ErrBusy
	}
	return fmt.Errorf("time slot row: %w", err)
}

func (r *CatalogRepository) GetTimeSlot(ctx context.Context, eventID, slotID string) (domain.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1 AND event_id = $2`
	s, err := scanSlot(r.q.queryRow(ctx, query, slotID, eventID))
	if err != nil {
		return domain.TimeSlot{}, mapSlotErr(err)
	}
	return s, nil
}

func (r *CatalogRepository) GetTimeSlotForUpdate(ctx context.Context, eventID, slotID string) (domain.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = $1 AND event_id = $2 FOR UPDATE`
	s, err := scanSlot(r.q.queryRow(ctx, query, slotID, eventID))
	if err != nil {
		return domain.TimeSlot{}, mapSlotErr(err)
	}
	return s, nil
}

// AdjustEventSpots moves the authoritative counter by delta. Debits are
// guarded so the counter can never go negative; credits clamp at
// capacity, covering a cancellation that races a capacity-reducing
// sweep.
func (r *CatalogRepository) AdjustEventSpots(ctx context.Context, eventID string, delta int) error {
	if delta >= 0 {
		const stmt = `UPDATE events SET available_spots = LEAST(capacity, available_spots + $2) WHERE id = $1`
		tag, err := r.q.exec(ctx, stmt, eventID, delta)
		if err != nil {
			return mapEventErr(err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrEventNotFound
		}
		return nil
	}

	const stmt = `UPDATE events SET available_spots = available_spots + $2 WHERE id = $1 AND available_spots + $2 >= 0`
	tag, err := r.q.exec(ctx, stmt, eventID, delta)
	if err != nil {
		return mapEventErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientCapacity
	}
	return nil
}

func (r *CatalogRepository) AdjustSlotSpots(ctx context.Context, slotID string, delta int) error {
	if delta >= 0 {
		const stmt = `UPDATE time_slots SET available_spots = LEAST(capacity, available_spots + $2) WHERE id = $1`
		tag, err := r.q.exec(ctx, stmt, slotID, delta)
		if err != nil {
			return mapSlotErr(err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrTimeSlotNotFound
		}
		return nil
	}

	const stmt = `UPDATE time_slots SET available_spots = available_spots + $2 WHERE id = $1 AND available_spots + $2 >= 0`
	tag, err := r.q.exec(ctx, stmt, slotID, delta)
	if err != nil {
		return mapSlotErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientCapacity
	}
	return nil
}

func (r *CatalogRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, event_id, time_slot_id, quantity, state, expires_at, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`

	_, err := r.q.exec(ctx, stmt,
		res.ID, res.EventID, res.TimeSlotID, res.Quantity, res.State, res.ExpiresAt, res.CreatedAt,
	)
	if err != nil {
		if isLockContention(err) {
			return domain.ErrBusy
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

const reservationColumns = `id, event_id, COALESCE(time_slot_id::text, ''), quantity, state, expires_at, created_at`

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var res domain.Reservation
	var state string
	err := row.Scan(&res.ID, &res.EventID, &res.TimeSlotID, &res.Quantity, &state, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.State = domain.ReservationState(state)
	return res, nil
}

func (r *CatalogRepository) GetReservationForUpdate(ctx context.Context, token string) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	res, err := scanReservation(r.q.queryRow(ctx, query, token))
	if err != nil {
		if err == pgx.ErrNoRows || isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrUnknownToken
		}
		if isLockContention(err) {
			return domain.Reservation{}, domain.ErrBusy
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *CatalogRepository) UpdateReservationState(ctx context.Context, token string, state domain.ReservationState) error {
	const stmt = `UPDATE reservations SET state = $2 WHERE id = $1`
	tag, err := r.q.exec(ctx, stmt, token, state)
	if err != nil {
		return fmt.Errorf("update reservation state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownToken
	}
	return nil
}

// ListExpiredPendingForUpdate returns pending reservations past their
// TTL. SKIP LOCKED lets concurrent sweepers divide the backlog instead
// of queueing on each other.
func (r *CatalogRepository) ListExpiredPendingForUpdate(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	query := `
SELECT ` + reservationColumns + `
FROM reservations
WHERE state = 'pending' AND expires_at <= $1
ORDER BY expires_at
LIMIT $2
FOR UPDATE SKIP LOCKED`

	rows, err := r.q.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
