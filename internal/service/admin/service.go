// Package admin manages the catalog: categories, venues and event
// definitions. It owns total capacity at creation time but never mutates
// the remaining counter afterwards.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/evently/evently/internal/repository"
	"github.com/google/uuid"
)

// Store is the persistence surface for catalog management.
type Store interface {
	CreateCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)

	CreateVenue(ctx context.Context, v *domain.Venue) error
	GetVenue(ctx context.Context, id uuid.UUID) (*domain.Venue, error)
	ListVenues(ctx context.Context) ([]domain.Venue, error)

	GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	CreateEvent(ctx context.Context, e *domain.Event) error
	UpdateEvent(ctx context.Context, e *domain.Event) error
	DeactivateEvent(ctx context.Context, id uuid.UUID) error
}

// Invalidator drops cached event views after a catalog mutation.
type Invalidator interface {
	InvalidateEvent(ctx context.Context, eventID uuid.UUID) error
}

type Service struct {
	store  Store
	cache  Invalidator
	logger *slog.Logger
}

func New(store Store, cache Invalidator, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// CreateCategory creates a category. Returns ErrCategoryConflict when the
// name is already taken.
func (s *Service) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	const op = "service.admin.CreateCategory"

	c := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Active:      true,
		CreatedAt:   time.Now(),
	}

	if err := s.store.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrCategoryConflict)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return c, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const op = "service.admin.ListCategories"

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return categories, nil
}

// CreateVenue creates a venue record.
func (s *Service) CreateVenue(ctx context.Context, name, address, city string, capacity int) (*domain.Venue, error) {
	const op = "service.admin.CreateVenue"

	v := &domain.Venue{
		ID:        uuid.New(),
		Name:      name,
		Address:   address,
		City:      city,
		Capacity:  capacity,
		Active:    true,
		CreatedAt: time.Now(),
	}

	if err := s.store.CreateVenue(ctx, v); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return v, nil
}

func (s *Service) ListVenues(ctx context.Context) ([]domain.Venue, error) {
	const op = "service.admin.ListVenues"

	venues, err := s.store.ListVenues(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return venues, nil
}

// EventInput carries the fields an operator supplies for an event.
type EventInput struct {
	Title         string
	Description   string
	CategoryID    uuid.UUID
	VenueID       uuid.UUID
	StartsAt      time.Time
	EndsAt        time.Time
	TotalCapacity int
	PriceCents    int64
}

func (in *EventInput) validate() error {
	switch {
	case in.Title == "":
		return fmt.Errorf("%w: empty title", ErrInvalidEvent)
	case in.TotalCapacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidEvent)
	case in.PriceCents < 0:
		return fmt.Errorf("%w: negative price", ErrInvalidEvent)
	case !in.EndsAt.After(in.StartsAt):
		return fmt.Errorf("%w: ends_at must be after starts_at", ErrInvalidEvent)
	}
	return nil
}

// CreateEvent creates an event with its capacity ledger seeded to the full
// total. Category and venue must exist.
//
// Returns:
//   - ErrInvalidEvent when the input fails validation.
//   - ErrCategoryNotFound / ErrVenueNotFound for dangling references.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*domain.Event, error) {
	const op = "service.admin.CreateEvent"

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if _, err := s.store.GetCategory(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrCategoryNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	venue, err := s.store.GetVenue(ctx, in.VenueID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrVenueNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if venue.Capacity > 0 && in.TotalCapacity > venue.Capacity {
		return nil, fmt.Errorf("%s:%w: capacity exceeds venue capacity %d",
			op, ErrInvalidEvent, venue.Capacity)
	}

	now := time.Now()
	e := &domain.Event{
		ID:                uuid.New(),
		Title:             in.Title,
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		VenueID:           in.VenueID,
		StartsAt:          in.StartsAt,
		EndsAt:            in.EndsAt,
		TotalCapacity:     in.TotalCapacity,
		RemainingCapacity: in.TotalCapacity,
		PriceCents:        in.PriceCents,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, e.ID)

	return e, nil
}

// UpdateEvent mutates the editable fields of an event. Capacity columns
// stay untouched; bookings made at the old price keep their total.
func (s *Service) UpdateEvent(ctx context.Context, id uuid.UUID, in EventInput) (*domain.Event, error) {
	const op = "service.admin.UpdateEvent"

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	e.Title = in.Title
	e.Description = in.Description
	e.StartsAt = in.StartsAt
	e.EndsAt = in.EndsAt
	e.PriceCents = in.PriceCents
	e.UpdatedAt = time.Now()

	if err := s.store.UpdateEvent(ctx, e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, e.ID)

	return e, nil
}

// CancelEvent deactivates an event. Existing bookings keep their state and
// may still be cancelled individually for refunds.
func (s *Service) CancelEvent(ctx context.Context, id uuid.UUID) error {
	const op = "service.admin.CancelEvent"

	if err := s.store.DeactivateEvent(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, id)

	return nil
}

func (s *Service) invalidate(ctx context.Context, eventID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateEvent(ctx, eventID); err != nil {
		s.logger.Warn("failed to invalidate event cache",
			slog.String("event_id", eventID.String()),
			slog.Any("error", err),
		)
	}
}
