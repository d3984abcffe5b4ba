package postgres

import (
	"context"

	"github.com/evently/evently/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *StatsRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Dashboard assembles the admin overview: platform-wide counters plus the
// next upcoming events and the latest bookings.
func (r *StatsRepo) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	const op = "postgres.StatsRepo.Dashboard"

	db := r.handle()

	var s domain.DashboardStats
	err := db.QueryRow(ctx,
		`SELECT count(*),
		        COALESCE(sum(total_capacity), 0),
		        COALESCE(sum(remaining_capacity), 0)
	 	 FROM events WHERE is_active`,
	).Scan(&s.TotalEvents, &s.TotalCapacity, &s.RemainingCapacity)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	err = db.QueryRow(ctx,
		`SELECT COALESCE(sum(quantity), 0), COALESCE(sum(total_price_cents), 0)
	 	 FROM bookings WHERE status = $1`,
		domain.BookingConfirmed,
	).Scan(&s.TicketsSold, &s.RevenueCents)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := db.Query(ctx,
		`SELECT `+eventColumns+`
	 	 FROM events
	 	 WHERE is_active AND starts_at >= now()
	 	 ORDER BY starts_at ASC
	 	 LIMIT 5`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.CategoryID, &e.VenueID,
			&e.StartsAt, &e.EndsAt, &e.TotalCapacity, &e.RemainingCapacity,
			&e.PriceCents, &e.Active, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		s.UpcomingEvents = append(s.UpcomingEvents, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	brows, err := db.Query(ctx,
		`SELECT `+bookingColumns+`
	 	 FROM bookings
	 	 ORDER BY created_at DESC
	 	 LIMIT 10`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer brows.Close()

	for brows.Next() {
		var b domain.Booking
		if err := brows.Scan(
			&b.ID, &b.UserID, &b.EventID, &b.Quantity, &b.TotalPriceCents,
			&b.Status, &b.PaymentStatus, &b.Reference, &b.CheckInToken,
			&b.CheckedIn, &b.CheckedInAt, &b.CheckedInBy, &b.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		s.RecentBookings = append(s.RecentBookings, b)
	}
	if err := brows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}
