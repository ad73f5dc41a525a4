package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/app"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

// EventRepository backs the organizer-side event management service.
type EventRepository struct {
	q querier
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{q: querier{pool: pool}}
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, title, description, starts_at, ends_at, location, status, artist_id, capacity, available_spots, price, is_virtual, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.q.exec(ctx, stmt,
		event.ID, event.Title, event.Description, event.StartsAt, event.EndsAt,
		event.Location, event.Status, event.ArtistID, event.Capacity,
		event.AvailableSpots, event.Price, event.IsVirtual, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *EventRepository) CreateTimeSlots(ctx context.Context, slots []domain.TimeSlot) error {
	const stmt = `
INSERT INTO time_slots (id, event_id, starts_at, ends_at, capacity, available_spots)
VALUES ($1, $2, $3, $4, $5, $6)`

	for _, s := range slots {
		_, err := r.q.exec(ctx, stmt, s.ID, s.EventID, s.StartsAt, s.EndsAt, s.Capacity, s.AvailableSpots)
		if err != nil {
			return fmt.Errorf("create time slot: %w", err)
		}
	}
	return nil
}

func (r *EventRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.q.queryRow(ctx, query, eventID))
	if err != nil {
		return domain.Event{}, mapEventErr(err)
	}
	return e, nil
}

func (r *EventRepository) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	e, err := scanEvent(r.q.queryRow(ctx, query, eventID))
	if err != nil {
		return domain.Event{}, mapEventErr(err)
	}
	return e, nil
}

// UpdateEvent writes the mutable columns. Capacity and counters are not
// touched here; those belong to the catalog.
func (r *EventRepository) UpdateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
UPDATE events
SET title = $2, description = $3, location = $4, status = $5, price = $6
WHERE id = $1`

	tag, err := r.q.exec(ctx, stmt,
		event.ID, event.Title, event.Description, event.Location, event.Status, event.Price,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) ListEvents(ctx context.Context, filter app.EventFilter) ([]domain.Event, int, error) {
	var conditions []string
	var args []any

	addArg := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if filter.Status != "" {
		addArg("status = ?", filter.Status)
	}
	if filter.ArtistID != "" {
		addArg("artist_id = ?", filter.ArtistID)
	}
	if filter.From != nil {
		addArg("starts_at >= ?", *filter.From)
	}
	if filter.To != nil {
		addArg("ends_at <= ?", *filter.To)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.q.queryRow(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	args = append(args, filter.Limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM events%s ORDER BY starts_at, id LIMIT $%d OFFSET $%d`,
		eventColumns, where, len(args)-1, len(args),
	)

	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *EventRepository) ListTimeSlotsByEvent(ctx context.Context, eventID string) ([]domain.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE event_id = $1 ORDER BY starts_at, id`
	rows, err := r.q.query(ctx, query, eventID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	defer rows.Close()

	var out []domain.TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time slot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
