package postgres

import (
	"context"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/google/uuid"
)

// Flat delegating methods so a single *Store satisfies the narrow
// persistence interfaces the services declare.

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	return s.Events().Get(ctx, id)
}

func (s *Store) ListEvents(
	ctx context.Context,
	categoryID *uuid.UUID,
	status domain.EventStatus,
	limit, offset int,
) ([]domain.Event, error) {
	return s.Events().List(ctx, categoryID, status, limit, offset)
}

func (s *Store) EventCounts(ctx context.Context, id uuid.UUID) (*domain.EventCounts, error) {
	return s.Events().Counts(ctx, id)
}

func (s *Store) CreateEvent(ctx context.Context, e *domain.Event) error {
	return s.Events().Create(ctx, e)
}

func (s *Store) UpdateEvent(ctx context.Context, e *domain.Event) error {
	return s.Events().Update(ctx, e)
}

func (s *Store) DeactivateEvent(ctx context.Context, id uuid.UUID) error {
	return s.Events().Deactivate(ctx, id)
}

func (s *Store) CreateBooking(ctx context.Context, b *domain.Booking) error {
	return s.Bookings().Create(ctx, b)
}

func (s *Store) CancelBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.Bookings().Cancel(ctx, id)
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.Bookings().Get(ctx, id)
}

func (s *Store) ListBookingsByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]domain.Booking, error) {
	return s.Bookings().ListByUser(ctx, userID, limit, offset)
}

func (s *Store) ListBookingsByEvent(
	ctx context.Context,
	eventID uuid.UUID,
	limit, offset int,
) ([]domain.Booking, error) {
	return s.Bookings().ListByEvent(ctx, eventID, limit, offset)
}

func (s *Store) CheckIn(
	ctx context.Context,
	bookingReference string,
	operatorID uuid.UUID,
	at time.Time,
) (*domain.Booking, error) {
	return s.Bookings().CheckIn(ctx, bookingReference, operatorID, at)
}

// CheckinStats verifies the event exists before aggregating, so a missing
// event surfaces as repository.ErrNotFound instead of an all-zero report.
func (s *Store) CheckinStats(ctx context.Context, eventID uuid.UUID) (*domain.CheckinStats, error) {
	if _, err := s.Events().Get(ctx, eventID); err != nil {
		return nil, err
	}
	return s.Bookings().CheckinStats(ctx, eventID)
}

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	return s.Categories().Create(ctx, c)
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.Categories().Get(ctx, id)
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.Categories().List(ctx)
}

func (s *Store) CreateVenue(ctx context.Context, v *domain.Venue) error {
	return s.Venues().Create(ctx, v)
}

func (s *Store) GetVenue(ctx context.Context, id uuid.UUID) (*domain.Venue, error) {
	return s.Venues().Get(ctx, id)
}

func (s *Store) ListVenues(ctx context.Context) ([]domain.Venue, error) {
	return s.Venues().List(ctx)
}

func (s *Store) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	return s.Stats().Dashboard(ctx)
}
