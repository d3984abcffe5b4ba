// Package memory is a mutex-guarded store used by service tests. It keeps
// the same conditional semantics as the postgres repositories: capacity
// debits, cancellation and check-in are each a single guarded
// check-and-set under the store lock.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/evently/evently/internal/repository"
	"github.com/google/uuid"
)

type Store struct {
	mu         sync.Mutex
	events     map[uuid.UUID]*domain.Event
	bookings   map[uuid.UUID]*domain.Booking
	byRef      map[string]uuid.UUID
	categories map[uuid.UUID]*domain.Category
	venues     map[uuid.UUID]*domain.Venue
}

func NewStore() *Store {
	return &Store{
		events:     make(map[uuid.UUID]*domain.Event),
		bookings:   make(map[uuid.UUID]*domain.Booking),
		byRef:      make(map[string]uuid.UUID),
		categories: make(map[uuid.UUID]*domain.Category),
		venues:     make(map[uuid.UUID]*domain.Venue),
	}
}

// SeedEvent installs an event, replacing any previous version.
func (s *Store) SeedEvent(e *domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.events[e.ID] = &cp
}

func (s *Store) GetEvent(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	cp := *e
	return &cp, nil
}

func (s *Store) CreateEvent(_ context.Context, e *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, e *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.events[e.ID]
	if !ok {
		return repository.ErrNotFound
	}

	cur.Title = e.Title
	cur.Description = e.Description
	cur.StartsAt = e.StartsAt
	cur.EndsAt = e.EndsAt
	cur.PriceCents = e.PriceCents
	cur.UpdatedAt = e.UpdatedAt
	return nil
}

func (s *Store) DeactivateEvent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return repository.ErrNotFound
	}

	e.Active = false
	return nil
}

// CreateBooking applies the capacity debit and the booking insert as one
// atomic step under the store lock.
func (s *Store) CreateBooking(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[b.EventID]
	if !ok {
		return repository.ErrNotFound
	}

	if !e.Active {
		return repository.ErrEventInactive
	}

	if e.RemainingCapacity < b.Quantity {
		return repository.ErrInsufficientCapacity
	}

	if _, taken := s.byRef[b.Reference]; taken {
		return repository.ErrConflict
	}

	e.RemainingCapacity -= b.Quantity

	cp := *b
	s.bookings[b.ID] = &cp
	s.byRef[b.Reference] = b.ID
	return nil
}

func (s *Store) CancelBooking(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if b.Status == domain.BookingCancelled {
		return nil, repository.ErrAlreadyCancelled
	}

	b.Status = domain.BookingCancelled

	if e, ok := s.events[b.EventID]; ok {
		e.RemainingCapacity += b.Quantity
		if e.RemainingCapacity > e.TotalCapacity {
			e.RemainingCapacity = e.TotalCapacity
		}
	}

	cp := *b
	return &cp, nil
}

func (s *Store) GetBooking(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	cp := *b
	return &cp, nil
}

func (s *Store) CheckIn(
	_ context.Context,
	bookingReference string,
	operatorID uuid.UUID,
	at time.Time,
) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byRef[bookingReference]
	if !ok {
		return nil, repository.ErrNotFound
	}

	b := s.bookings[id]
	if b.CheckedIn {
		return nil, repository.ErrAlreadyCheckedIn
	}

	b.CheckedIn = true
	checkedAt := at
	b.CheckedInAt = &checkedAt
	operator := operatorID
	b.CheckedInBy = &operator

	cp := *b
	return &cp, nil
}

func (s *Store) CheckinStats(_ context.Context, eventID uuid.UUID) (*domain.CheckinStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return nil, repository.ErrNotFound
	}

	var stats domain.CheckinStats
	for _, b := range s.bookings {
		if b.EventID != eventID || b.Status == domain.BookingCancelled {
			continue
		}
		stats.TotalBookings++
		if b.CheckedIn {
			stats.CheckedIn++
		}
	}

	stats.Pending = stats.TotalBookings - stats.CheckedIn
	if stats.TotalBookings > 0 {
		stats.Percentage = float64(stats.CheckedIn) / float64(stats.TotalBookings) * 100
	}

	return &stats, nil
}

func (s *Store) CreateCategory(_ context.Context, c *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cur := range s.categories {
		if cur.Name == c.Name {
			return repository.ErrConflict
		}
	}

	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *Store) GetCategory(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	cp := *c
	return &cp, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (s *Store) CreateVenue(_ context.Context, v *domain.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *v
	s.venues[v.ID] = &cp
	return nil
}

func (s *Store) GetVenue(_ context.Context, id uuid.UUID) (*domain.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.venues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	cp := *v
	return &cp, nil
}

func (s *Store) ListVenues(_ context.Context) ([]domain.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Venue, 0, len(s.venues))
	for _, v := range s.venues {
		out = append(out, *v)
	}
	return out, nil
}
