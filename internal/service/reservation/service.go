// Package reservation is the only entry point allowed to create or cancel a
// booking together with its capacity effect.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/evently/evently/internal/metrics"
	"github.com/evently/evently/internal/reference"
	"github.com/evently/evently/internal/repository"
	"github.com/google/uuid"
)

// Store is the persistence surface the engine needs. The postgres
// implementation applies each composite operation as one serializable
// transaction, so the capacity debit and the booking row commit or roll
// back together.
type Store interface {
	// GetEvent returns the event regardless of its active flag;
	// repository.ErrNotFound when missing.
	GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error)

	// CreateBooking atomically re-checks and debits remaining capacity and
	// persists the booking. Returns repository.ErrInsufficientCapacity,
	// repository.ErrEventInactive, repository.ErrNotFound, or
	// repository.ErrConflict on a reference collision.
	CreateBooking(ctx context.Context, b *domain.Booking) error

	// CancelBooking flips the booking to cancelled and credits the ledger
	// with the booking's original quantity, once. Returns
	// repository.ErrNotFound or repository.ErrAlreadyCancelled.
	CancelBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
}

// Notifier delivers the booking confirmation. Failures are logged and
// swallowed; they never fail the booking.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *domain.Booking, e *domain.Event) error
}

// Limiter throttles booking attempts per caller key.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

// Invalidator drops cached event views after a capacity mutation.
type Invalidator interface {
	InvalidateEvent(ctx context.Context, eventID uuid.UUID) error
}

// Publisher announces a capacity change to subscribers.
type Publisher interface {
	PublishCapacityChanged(ctx context.Context, eventID uuid.UUID) error
}

type Config struct {
	// MaxQuantity caps tickets per booking. Zero means the default.
	MaxQuantity int
	// ReferenceAttempts bounds retries on a detected reference collision.
	ReferenceAttempts int
	// NotifyTimeout bounds the fire-and-forget notification publish.
	NotifyTimeout time.Duration
}

type Service struct {
	store    Store
	notifier Notifier
	limiter  Limiter
	cache    Invalidator
	pubsub   Publisher
	logger   *slog.Logger
	cfg      Config
}

func New(
	store Store,
	notifier Notifier,
	limiter Limiter,
	cache Invalidator,
	pubsub Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = 10
	}

	if cfg.ReferenceAttempts <= 0 {
		cfg.ReferenceAttempts = 3
	}

	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}

	return &Service{
		store:    store,
		notifier: notifier,
		limiter:  limiter,
		cache:    cache,
		pubsub:   pubsub,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateBooking converts a purchase request into a confirmed booking.
//
// The capacity check happens inside the store's conditional debit, at the
// moment of deduction; the event snapshot read here is used only for
// validation and price calculation, never as the capacity source of truth.
//
// Returns:
//   - ErrEventNotFound if the event is missing or inactive.
//   - ErrInvalidQuantity if quantity is outside [1, MaxQuantity].
//   - ErrCapacityExceeded if the ledger rejects the debit.
//   - ErrRateLimited when the caller key exceeds its window.
func (s *Service) CreateBooking(
	ctx context.Context,
	userID, eventID uuid.UUID,
	quantity int,
	rlKey string,
) (*domain.Booking, error) {
	const op = "service.reservation.CreateBooking"

	if quantity < 1 || quantity > s.cfg.MaxQuantity {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidQuantity)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w (retry in %s)", op, ErrRateLimited, retry)
		}
	}

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !event.Active {
		return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
	}

	now := time.Now()
	booking := &domain.Booking{
		ID:              uuid.New(),
		UserID:          userID,
		EventID:         eventID,
		Quantity:        quantity,
		TotalPriceCents: event.PriceCents * int64(quantity),
		Status:          domain.BookingConfirmed,
		PaymentStatus:   domain.PaymentPaid,
		CreatedAt:       now,
	}
	booking.CheckInToken = reference.NewCheckInToken(booking.ID, eventID, now)

	// Retry only on a detected reference collision; everything else is
	// final. The store's unique constraint is the backstop the generator
	// relies on.
	for attempt := 0; ; attempt++ {
		booking.Reference = reference.NewBookingReference()

		err = s.store.CreateBooking(ctx, booking)
		if err == nil {
			break
		}

		if errors.Is(err, repository.ErrConflict) && attempt+1 < s.cfg.ReferenceAttempts {
			continue
		}

		switch {
		case errors.Is(err, repository.ErrInsufficientCapacity):
			metrics.CapacityRejections.Inc()
			return nil, fmt.Errorf("%s:%w", op, ErrCapacityExceeded)
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrEventInactive):
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		default:
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	metrics.BookingsCreated.Inc()
	s.afterCapacityChange(ctx, eventID)
	s.notify(booking, event)

	return booking, nil
}

// CancelBooking is idempotent in effect: the first call transitions the
// booking and credits the ledger once, a second call reports
// ErrAlreadyCancelled and changes nothing.
func (s *Service) CancelBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	const op = "service.reservation.CancelBooking"

	booking, err := s.store.CancelBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}

		if errors.Is(err, repository.ErrAlreadyCancelled) {
			return nil, fmt.Errorf("%s:%w", op, ErrAlreadyCancelled)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	metrics.BookingsCancelled.Inc()
	s.afterCapacityChange(ctx, booking.EventID)

	return booking, nil
}

func (s *Service) afterCapacityChange(ctx context.Context, eventID uuid.UUID) {
	if s.cache != nil {
		if err := s.cache.InvalidateEvent(ctx, eventID); err != nil {
			s.logger.Warn("cache invalidation failed", "event_id", eventID, "error", err)
		}
	}

	if s.pubsub != nil {
		if err := s.pubsub.PublishCapacityChanged(ctx, eventID); err != nil {
			s.logger.Warn("capacity publish failed", "event_id", eventID, "error", err)
		}
	}
}

func (s *Service) notify(booking *domain.Booking, event *domain.Event) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
		defer cancel()

		if err := s.notifier.BookingConfirmed(ctx, booking, event); err != nil {
			s.logger.Warn("booking confirmation notify failed",
				"booking_id", booking.ID,
				"reference", booking.Reference,
				"error", err,
			)
		}
	}()
}
