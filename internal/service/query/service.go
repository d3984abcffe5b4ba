// Package query serves the read side: event catalog, availability,
// booking lookups and dashboard aggregates. Event views are cached in
// Redis with short TTLs and invalidated by the write paths.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/evently/evently/internal/repository"
	postgresrepo "github.com/evently/evently/internal/repository/postgres"
	redisrepo "github.com/evently/evently/internal/repository/redis"
	"github.com/google/uuid"
)

type Config struct {
	EventSummaryTTL time.Duration
	AvailabilityTTL time.Duration
	EventListTTL    time.Duration
	DefaultPage     int
	MaxPage         int
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.EventSummaryTTL <= 0 {
		cfg.EventSummaryTTL = 60 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 5 * time.Second
	}

	if cfg.EventListTTL <= 0 {
		cfg.EventListTTL = 30 * time.Second
	}

	if cfg.DefaultPage <= 0 {
		cfg.DefaultPage = 50
	}

	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 200
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// GetEvent retrieves an event by ID through the summary cache.
//
// Returns:
//   - query.ErrEventNotFound if the event does not exist.
func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	const op = "service.query.GetEvent"

	key := redisrepo.KeyEventSummary(id)

	event, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.EventSummaryTTL,
		func(ctx context.Context) (domain.Event, error) {
			e, err := s.store.Events().Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Event{}, ErrEventNotFound
				}

				return domain.Event{}, err
			}

			return *e, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &event, nil
}

// Availability returns the capacity snapshot for an event. The snapshot is
// an advisory read; the reservation path re-checks atomically at booking
// time, so a cached value can only over-promise briefly, never oversell.
//
// Returns:
//   - query.ErrEventNotFound if the event does not exist.
func (s *Service) Availability(ctx context.Context, eventID uuid.UUID) (*domain.EventCounts, error) {
	const op = "service.query.Availability"

	key := redisrepo.KeyEventAvailability(eventID)

	counts, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.EventCounts, error) {
			ec, err := s.store.Events().Counts(ctx, eventID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.EventCounts{}, ErrEventNotFound
				}

				return domain.EventCounts{}, err
			}

			return *ec, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &counts, nil
}

// ListEvents returns active events, optionally filtered by category and
// derived status. Only the unfiltered first page goes through the cache;
// filtered and paginated reads hit the store directly.
func (s *Service) ListEvents(
	ctx context.Context,
	categoryID *uuid.UUID,
	status domain.EventStatus,
	limit, offset int,
) ([]domain.Event, error) {
	const op = "service.query.ListEvents"

	limit = s.clampPage(limit)

	if categoryID == nil && status == "" && offset == 0 && limit == s.cfg.DefaultPage {
		events, err := redisrepo.GetOrSetJSON(
			ctx,
			s.cache,
			redisrepo.KeyEventList(),
			s.cfg.EventListTTL,
			func(ctx context.Context) ([]domain.Event, error) {
				return s.store.Events().List(ctx, nil, "", limit, 0)
			},
		)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		return events, nil
	}

	events, err := s.store.Events().List(ctx, categoryID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return events, nil
}

// GetBooking retrieves a booking by ID.
//
// Returns:
//   - query.ErrBookingNotFound if the booking does not exist.
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.query.GetBooking"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}

// UserBookings returns a user's bookings, newest first.
func (s *Service) UserBookings(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]domain.Booking, error) {
	const op = "service.query.UserBookings"

	bookings, err := s.store.Bookings().ListByUser(ctx, userID, s.clampPage(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return bookings, nil
}

// EventBookings returns an event's bookings, newest first.
//
// Returns:
//   - query.ErrEventNotFound if the event does not exist.
func (s *Service) EventBookings(
	ctx context.Context,
	eventID uuid.UUID,
	limit, offset int,
) ([]domain.Booking, error) {
	const op = "service.query.EventBookings"

	if _, err := s.store.Events().Get(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	bookings, err := s.store.Bookings().ListByEvent(ctx, eventID, s.clampPage(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return bookings, nil
}

// Dashboard returns the operator overview aggregates. Never cached; this
// is an admin-only endpoint with negligible read volume.
func (s *Service) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	const op = "service.query.Dashboard"

	stats, err := s.store.Stats().Dashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return stats, nil
}

func (s *Service) clampPage(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultPage
	}

	if limit > s.cfg.MaxPage {
		return s.cfg.MaxPage
	}

	return limit
}
