package postgres

import (
	"context"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/evently/evently/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *EventRepo) With(db DB) *EventRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EventRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const eventColumns = `id, title, description, category_id, venue_id,
		starts_at, ends_at, total_capacity, remaining_capacity,
		price_cents, is_active, created_at, updated_at`

// Create inserts an event with remaining capacity seeded to total capacity.
func (r *EventRepo) Create(ctx context.Context, e *domain.Event) error {
	const op = "postgres.EventRepo.Create"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO events (id, title, description, category_id, venue_id,
		        starts_at, ends_at, total_capacity, remaining_capacity,
		        price_cents, is_active, created_at, updated_at)
	 	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $9, TRUE, $10, $10)`,
		e.ID, e.Title, e.Description, e.CategoryID, e.VenueID,
		e.StartsAt, e.EndsAt, e.TotalCapacity,
		e.PriceCents, e.CreatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *EventRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	const op = "postgres.EventRepo.Get"

	var e domain.Event
	err := r.handle().QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		id,
	).Scan(
		&e.ID, &e.Title, &e.Description, &e.CategoryID, &e.VenueID,
		&e.StartsAt, &e.EndsAt, &e.TotalCapacity, &e.RemainingCapacity,
		&e.PriceCents, &e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

// List returns events filtered by category and derived status, soonest
// first. The status predicate runs in SQL so LIMIT/OFFSET paginate over the
// filtered set, not over everything.
func (r *EventRepo) List(
	ctx context.Context,
	categoryID *uuid.UUID,
	status domain.EventStatus,
	limit, offset int,
) ([]domain.Event, error) {
	const op = "postgres.EventRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+eventColumns+`
	 	 FROM events
	 	 WHERE ($1::uuid IS NULL OR category_id = $1)
	 	   AND CASE $2::text
	 	         WHEN 'upcoming'  THEN is_active AND starts_at > now()
	 	         WHEN 'ongoing'   THEN is_active AND starts_at <= now() AND ends_at > now()
	 	         WHEN 'completed' THEN is_active AND ends_at <= now()
	 	         WHEN 'cancelled' THEN NOT is_active
	 	         ELSE is_active
	 	       END
	 	 ORDER BY starts_at ASC
	 	 LIMIT $3 OFFSET $4`,
		categoryID, string(status), limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.CategoryID, &e.VenueID,
			&e.StartsAt, &e.EndsAt, &e.TotalCapacity, &e.RemainingCapacity,
			&e.PriceCents, &e.Active, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return events, nil
}

// Update mutates the editable fields. Capacity columns are never touched
// here; the reservation path owns them.
func (r *EventRepo) Update(ctx context.Context, e *domain.Event) error {
	const op = "postgres.EventRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE events
	 	 SET title = $2, description = $3, starts_at = $4, ends_at = $5,
	 	     price_cents = $6, updated_at = $7
	 	 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.StartsAt, e.EndsAt,
		e.PriceCents, time.Now(),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// Deactivate cancels an event. Existing bookings keep their state.
func (r *EventRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.EventRepo.Deactivate"

	tag, err := r.handle().Exec(ctx,
		`UPDATE events SET is_active = FALSE, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// Counts returns the availability snapshot for an event.
func (r *EventRepo) Counts(ctx context.Context, id uuid.UUID) (*domain.EventCounts, error) {
	const op = "postgres.EventRepo.Counts"

	var c domain.EventCounts
	err := r.handle().QueryRow(ctx,
		`SELECT total_capacity, remaining_capacity,
		        total_capacity - remaining_capacity
	 	 FROM events WHERE id = $1`,
		id,
	).Scan(&c.TotalCapacity, &c.RemainingCapacity, &c.Sold)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

// reserveCapacity is the ledger debit: a single conditional decrement that
// fails when the requested quantity exceeds what remains. The WHERE clause
// is the capacity re-check at the moment of deduction.
func reserveCapacity(ctx context.Context, db DB, eventID uuid.UUID, quantity int) error {
	tag, err := db.Exec(ctx,
		`UPDATE events
	 	 SET remaining_capacity = remaining_capacity - $2, updated_at = now()
	 	 WHERE id = $1
	 	   AND is_active
	 	   AND remaining_capacity >= $2`,
		eventID, quantity,
	)
	if err != nil {
		return translateDBErr(err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish a missing/inactive event from an exhausted one.
		var active bool
		err := db.QueryRow(ctx,
			`SELECT is_active FROM events WHERE id = $1`, eventID,
		).Scan(&active)
		if err != nil {
			return translateDBErr(err)
		}
		if !active {
			return repository.ErrEventInactive
		}
		return repository.ErrInsufficientCapacity
	}

	return nil
}

// releaseCapacity is the ledger credit, clamped at total capacity so a
// double release can never overfill the event.
func releaseCapacity(ctx context.Context, db DB, eventID uuid.UUID, quantity int) error {
	tag, err := db.Exec(ctx,
		`UPDATE events
	 	 SET remaining_capacity = LEAST(total_capacity, remaining_capacity + $2),
	 	     updated_at = now()
	 	 WHERE id = $1`,
		eventID, quantity,
	)
	if err != nil {
		return translateDBErr(err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
