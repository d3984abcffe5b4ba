// Package checkin consumes booking references at the venue door. A
// reference is consumed at most once; capacity and prices are never touched
// here.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/evently/evently/internal/metrics"
	"github.com/evently/evently/internal/repository"
	"github.com/google/uuid"
)

// Store is the persistence surface for check-ins. CheckIn must be a single
// conditional check-and-set keyed on the unconsumed state: under concurrent
// submission of one reference exactly one call wins.
type Store interface {
	CheckIn(ctx context.Context, bookingReference string, operatorID uuid.UUID, at time.Time) (*domain.Booking, error)
	CheckinStats(ctx context.Context, eventID uuid.UUID) (*domain.CheckinStats, error)
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// CheckIn transitions a booking from NotCheckedIn to CheckedIn, recording
// the operator and the time.
//
// Returns:
//   - ErrBookingNotFound if no booking matches the reference.
//   - ErrAlreadyCheckedIn if the reference was already consumed.
func (s *Service) CheckIn(ctx context.Context, bookingReference string, operatorID uuid.UUID) (*domain.CheckinResult, error) {
	const op = "service.checkin.CheckIn"

	if bookingReference == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
	}

	now := time.Now()

	booking, err := s.store.CheckIn(ctx, bookingReference, operatorID, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}

		if errors.Is(err, repository.ErrAlreadyCheckedIn) {
			metrics.CheckinsDuplicate.Inc()
			return nil, fmt.Errorf("%s:%w", op, ErrAlreadyCheckedIn)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	metrics.CheckinsAccepted.Inc()

	return &domain.CheckinResult{
		Booking:   booking,
		EventID:   booking.EventID,
		CheckedAt: now,
	}, nil
}

// Stats reports attendance for an event.
func (s *Service) Stats(ctx context.Context, eventID uuid.UUID) (*domain.CheckinStats, error) {
	const op = "service.checkin.Stats"

	stats, err := s.store.CheckinStats(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return stats, nil
}
