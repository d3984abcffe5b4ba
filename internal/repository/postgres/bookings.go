package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/evently/evently/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepo struct {
	pool  *pgxpool.Pool
	store *Store
	db    DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `id, user_id, event_id, quantity, total_price_cents,
		status, payment_status, booking_reference, check_in_token,
		checked_in, checked_in_at, checked_in_by, created_at`

// Create persists a booking together with its capacity debit as one
// serializable transaction. A rollback undoes the ledger decrement, so a
// failed insert can never leak capacity.
//
// Returns:
//   - repository.ErrNotFound / ErrEventInactive when the event cannot be booked.
//   - repository.ErrInsufficientCapacity when the ledger rejects the debit.
//   - repository.ErrConflict on a booking-reference collision.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Create"

	if r.db != nil {
		if err := r.createCore(ctx, r.db, b); err != nil {
			return wrapDBErr(op, err)
		}
		return nil
	}

	// Read committed is enough here: correctness comes from the
	// conditional decrement itself, and it avoids serialization aborts
	// under booking contention.
	err := r.store.RunTx(ctx, readCommitted(), func(ctx context.Context, tx DB) error {
		return r.createCore(ctx, tx, b)
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) createCore(ctx context.Context, db DB, b *domain.Booking) error {
	if err := reserveCapacity(ctx, db, b.EventID, b.Quantity); err != nil {
		return err
	}

	_, err := db.Exec(ctx,
		`INSERT INTO bookings (id, user_id, event_id, quantity,
		        total_price_cents, status, payment_status,
		        booking_reference, check_in_token, checked_in, created_at)
	 	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10)`,
		b.ID, b.UserID, b.EventID, b.Quantity,
		b.TotalPriceCents, b.Status, b.PaymentStatus,
		b.Reference, b.CheckInToken, b.CreatedAt,
	)

	return translateDBErr(err)
}

// Cancel flips a booking to cancelled and credits the event ledger with the
// booking's original quantity, as one transaction. The status flip is
// conditional on the current status, which makes a second cancel observable
// as ErrAlreadyCancelled instead of a double credit.
func (r *BookingRepo) Cancel(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Cancel"

	var b *domain.Booking

	if r.db != nil {
		cb, err := r.cancelCore(ctx, r.db, id)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		return cb, nil
	}

	err := r.store.RunTx(ctx, readCommitted(), func(ctx context.Context, tx DB) error {
		cb, err := r.cancelCore(ctx, tx, id)
		if err != nil {
			return err
		}
		b = cb
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

func (r *BookingRepo) cancelCore(ctx context.Context, db DB, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	err := db.QueryRow(ctx,
		`UPDATE bookings
	 	 SET status = $2
	 	 WHERE id = $1 AND status <> $2
	 	 RETURNING `+bookingColumns,
		id, domain.BookingCancelled,
	).Scan(
		&b.ID, &b.UserID, &b.EventID, &b.Quantity, &b.TotalPriceCents,
		&b.Status, &b.PaymentStatus, &b.Reference, &b.CheckInToken,
		&b.CheckedIn, &b.CheckedInAt, &b.CheckedInBy, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return nil, translateDBErr(err)
		}
		if exists {
			return nil, repository.ErrAlreadyCancelled
		}
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, translateDBErr(err)
	}

	if err := releaseCapacity(ctx, db, b.EventID, b.Quantity); err != nil {
		return nil, err
	}

	return &b, nil
}

// CheckIn consumes a booking reference exactly once. The check-and-set is a
// single conditional update keyed on checked_in = FALSE, so concurrent
// submissions of the same reference have exactly one winner. Capacity is
// never touched here.
func (r *BookingRepo) CheckIn(
	ctx context.Context,
	bookingReference string,
	operatorID uuid.UUID,
	at time.Time,
) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.CheckIn"

	db := r.handle()

	var b domain.Booking
	err := db.QueryRow(ctx,
		`UPDATE bookings
	 	 SET checked_in = TRUE, checked_in_at = $2, checked_in_by = $3
	 	 WHERE booking_reference = $1 AND checked_in = FALSE
	 	 RETURNING `+bookingColumns,
		bookingReference, at, operatorID,
	).Scan(
		&b.ID, &b.UserID, &b.EventID, &b.Quantity, &b.TotalPriceCents,
		&b.Status, &b.PaymentStatus, &b.Reference, &b.CheckInToken,
		&b.CheckedIn, &b.CheckedInAt, &b.CheckedInBy, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM bookings WHERE booking_reference = $1)`,
			bookingReference,
		).Scan(&exists); err != nil {
			return nil, wrapDBErr(op, err)
		}
		if exists {
			return nil, wrapDBErr(op, repository.ErrAlreadyCheckedIn)
		}
		return nil, wrapDBErr(op, repository.ErrNotFound)
	}
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	var b domain.Booking
	err := r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	).Scan(
		&b.ID, &b.UserID, &b.EventID, &b.Quantity, &b.TotalPriceCents,
		&b.Status, &b.PaymentStatus, &b.Reference, &b.CheckInToken,
		&b.CheckedIn, &b.CheckedInAt, &b.CheckedInBy, &b.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

func (r *BookingRepo) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByUser"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+`
	 	 FROM bookings WHERE user_id = $1
	 	 ORDER BY created_at DESC
	 	 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
}

func (r *BookingRepo) ListByEvent(
	ctx context.Context,
	eventID uuid.UUID,
	limit, offset int,
) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByEvent"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+`
	 	 FROM bookings WHERE event_id = $1
	 	 ORDER BY created_at DESC
	 	 LIMIT $2 OFFSET $3`,
		eventID, limit, offset,
	)
}

func (r *BookingRepo) list(
	ctx context.Context,
	op, sql string,
	args ...any,
) ([]domain.Booking, error) {
	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.EventID, &b.Quantity, &b.TotalPriceCents,
			&b.Status, &b.PaymentStatus, &b.Reference, &b.CheckInToken,
			&b.CheckedIn, &b.CheckedInAt, &b.CheckedInBy, &b.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return bookings, nil
}

// CheckinStats aggregates attendance for an event.
func (r *BookingRepo) CheckinStats(ctx context.Context, eventID uuid.UUID) (*domain.CheckinStats, error) {
	const op = "postgres.BookingRepo.CheckinStats"

	var s domain.CheckinStats
	err := r.handle().QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE checked_in)
	 	 FROM bookings
	 	 WHERE event_id = $1 AND status <> $2`,
		eventID, domain.BookingCancelled,
	).Scan(&s.TotalBookings, &s.CheckedIn)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	s.Pending = s.TotalBookings - s.CheckedIn
	if s.TotalBookings > 0 {
		s.Percentage = float64(s.CheckedIn) / float64(s.TotalBookings) * 100
	}

	return &s, nil
}
