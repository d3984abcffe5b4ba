package reservation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/evently/evently/internal/repository"
	"github.com/evently/evently/internal/repository/memory"
	"github.com/evently/evently/internal/service/reservation"
	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedEvent(store *memory.Store, capacity int, priceCents int64, active bool) *domain.Event {
	e := &domain.Event{
		ID:                uuid.New(),
		Title:             "Test Event",
		CategoryID:        uuid.New(),
		VenueID:           uuid.New(),
		StartsAt:          time.Now().Add(24 * time.Hour),
		EndsAt:            time.Now().Add(26 * time.Hour),
		TotalCapacity:     capacity,
		RemainingCapacity: capacity,
		PriceCents:        priceCents,
		Active:            active,
	}
	store.SeedEvent(e)
	return e
}

func TestCreateBooking(t *testing.T) {
	store := memory.NewStore()
	event := seedEvent(store, 10, 2500, true)
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{})

	userID := uuid.New()
	b, err := svc.CreateBooking(context.Background(), userID, event.ID, 2, "")
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if b.Status != domain.BookingConfirmed || b.PaymentStatus != domain.PaymentPaid {
		t.Errorf("status = %s/%s, want confirmed/paid", b.Status, b.PaymentStatus)
	}

	if b.TotalPriceCents != 5000 {
		t.Errorf("total = %d, want 5000", b.TotalPriceCents)
	}

	if !strings.HasPrefix(b.Reference, "BK") {
		t.Errorf("reference %q missing BK prefix", b.Reference)
	}

	if len(b.CheckInToken) != 64 {
		t.Errorf("check-in token length = %d, want 64", len(b.CheckInToken))
	}

	after, err := store.GetEvent(context.Background(), event.ID)
	if err != nil {
		t.Fatal(err)
	}

	if after.RemainingCapacity != 8 {
		t.Errorf("remaining = %d, want 8", after.RemainingCapacity)
	}
}

func TestCreateBookingInvalidQuantity(t *testing.T) {
	store := memory.NewStore()
	event := seedEvent(store, 10, 2500, true)
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{MaxQuantity: 4})

	for _, qty := range []int{0, -1, 5} {
		_, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, qty, "")
		if !errors.Is(err, reservation.ErrInvalidQuantity) {
			t.Errorf("quantity %d: got %v, want ErrInvalidQuantity", qty, err)
		}
	}
}

func TestCreateBookingEventNotFound(t *testing.T) {
	store := memory.NewStore()
	inactive := seedEvent(store, 10, 2500, false)
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{})

	_, err := svc.CreateBooking(context.Background(), uuid.New(), uuid.New(), 1, "")
	if !errors.Is(err, reservation.ErrEventNotFound) {
		t.Errorf("missing event: got %v, want ErrEventNotFound", err)
	}

	_, err = svc.CreateBooking(context.Background(), uuid.New(), inactive.ID, 1, "")
	if !errors.Is(err, reservation.ErrEventNotFound) {
		t.Errorf("inactive event: got %v, want ErrEventNotFound", err)
	}
}

func TestCreateBookingCapacityExceeded(t *testing.T) {
	store := memory.NewStore()
	event := seedEvent(store, 1, 2500, true)
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{})

	_, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 2, "")
	if !errors.Is(err, reservation.ErrCapacityExceeded) {
		t.Errorf("got %v, want ErrCapacityExceeded", err)
	}

	after, _ := store.GetEvent(context.Background(), event.ID)
	if after.RemainingCapacity != 1 {
		t.Errorf("remaining = %d, want 1 (failed booking must not leak capacity)", after.RemainingCapacity)
	}
}

// Sixty concurrent single-ticket requests against fifty seats: exactly
// fifty must win and the counter must land on zero.
func TestCreateBookingNoOversell(t *testing.T) {
	const capacity, attempts = 50, 60

	store := memory.NewStore()
	event := seedEvent(store, capacity, 1000, true)
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{})

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(context.Background(), uuid.New(), event.ID, 1, "")
		}(i)
	}
	wg.Wait()

	var won, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, reservation.ErrCapacityExceeded):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if won != capacity || rejected != attempts-capacity {
		t.Errorf("won/rejected = %d/%d, want %d/%d", won, rejected, capacity, attempts-capacity)
	}

	after, _ := store.GetEvent(context.Background(), event.ID)
	if after.RemainingCapacity != 0 {
		t.Errorf("remaining = %d, want 0", after.RemainingCapacity)
	}
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, int64, time.Duration, error) {
	return false, 0, time.Second, nil
}

func TestCreateBookingRateLimited(t *testing.T) {
	store := memory.NewStore()
	event := seedEvent(store, 10, 2500, true)
	svc := reservation.New(store, nil, denyLimiter{}, nil, nil, testLogger(), reservation.Config{})

	_, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 1, "user:key")
	if !errors.Is(err, reservation.ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}
}

// collideStore reports a reference collision a fixed number of times before
// delegating, mimicking the unique-constraint backstop.
type collideStore struct {
	*memory.Store
	mu         sync.Mutex
	collisions int
	attempts   int
}

func (c *collideStore) CreateBooking(ctx context.Context, b *domain.Booking) error {
	c.mu.Lock()
	c.attempts++
	collide := c.collisions > 0
	if collide {
		c.collisions--
	}
	c.mu.Unlock()

	if collide {
		return repository.ErrConflict
	}
	return c.Store.CreateBooking(ctx, b)
}

func TestCreateBookingRetriesReferenceCollision(t *testing.T) {
	inner := memory.NewStore()
	event := seedEvent(inner, 10, 2500, true)

	store := &collideStore{Store: inner, collisions: 2}
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{ReferenceAttempts: 3})

	b, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 1, "")
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if store.attempts != 3 {
		t.Errorf("attempts = %d, want 3", store.attempts)
	}

	if b.Reference == "" {
		t.Error("booking has empty reference")
	}
}

func TestCreateBookingCollisionBudgetExhausted(t *testing.T) {
	inner := memory.NewStore()
	event := seedEvent(inner, 10, 2500, true)

	store := &collideStore{Store: inner, collisions: 10}
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{ReferenceAttempts: 3})

	_, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 1, "")
	if !errors.Is(err, repository.ErrConflict) {
		t.Errorf("got %v, want wrapped ErrConflict", err)
	}
}

type recordingNotifier struct {
	called chan struct{}
	err    error
}

func (n *recordingNotifier) BookingConfirmed(context.Context, *domain.Booking, *domain.Event) error {
	n.called <- struct{}{}
	return n.err
}

func TestCreateBookingNotifierFailureIsSwallowed(t *testing.T) {
	store := memory.NewStore()
	event := seedEvent(store, 10, 2500, true)
	notifier := &recordingNotifier{
		called: make(chan struct{}, 1),
		err:    errors.New("broker down"),
	}
	svc := reservation.New(store, notifier, nil, nil, nil, testLogger(), reservation.Config{})

	_, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 1, "")
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	select {
	case <-notifier.called:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was never called")
	}
}

func TestCancelBooking(t *testing.T) {
	store := memory.NewStore()
	event := seedEvent(store, 10, 2500, true)
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{})

	b, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 3, "")
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	cancelled, err := svc.CancelBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}

	if cancelled.Status != domain.BookingCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	after, _ := store.GetEvent(context.Background(), event.ID)
	if after.RemainingCapacity != 10 {
		t.Errorf("remaining = %d, want 10 after cancel", after.RemainingCapacity)
	}

	// A repeat cancel must not credit the ledger a second time.
	_, err = svc.CancelBooking(context.Background(), b.ID)
	if !errors.Is(err, reservation.ErrAlreadyCancelled) {
		t.Errorf("second cancel: got %v, want ErrAlreadyCancelled", err)
	}

	after, _ = store.GetEvent(context.Background(), event.ID)
	if after.RemainingCapacity != 10 {
		t.Errorf("remaining = %d, want 10 after repeat cancel", after.RemainingCapacity)
	}
}

// Capacity 2: a 2-ticket booking fills the event, a further request is
// rejected, cancelling frees both seats and a 1-ticket booking succeeds.
func TestBookCancelRebookScenario(t *testing.T) {
	store := memory.NewStore()
	event := seedEvent(store, 2, 2500, true)
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{})

	first, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 2, "")
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}

	if _, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 1, ""); !errors.Is(err, reservation.ErrCapacityExceeded) {
		t.Fatalf("sold-out booking: got %v, want ErrCapacityExceeded", err)
	}

	if _, err := svc.CancelBooking(context.Background(), first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 1, ""); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}

	after, _ := store.GetEvent(context.Background(), event.ID)
	if after.RemainingCapacity != 1 {
		t.Errorf("remaining = %d, want 1", after.RemainingCapacity)
	}
}

// A booking's total is frozen at creation; later price changes affect new
// bookings only.
func TestBookingPriceImmutable(t *testing.T) {
	store := memory.NewStore()
	event := seedEvent(store, 10, 2500, true)
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{})

	b, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 2, "")
	if err != nil {
		t.Fatal(err)
	}

	repriced := *event
	repriced.PriceCents = 9900
	repriced.RemainingCapacity = 8
	store.SeedEvent(&repriced)

	stored, err := store.GetBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.TotalPriceCents != 5000 {
		t.Errorf("total = %d, want 5000 (frozen at booking time)", stored.TotalPriceCents)
	}

	b2, err := svc.CreateBooking(context.Background(), uuid.New(), event.ID, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if b2.TotalPriceCents != 9900 {
		t.Errorf("new booking total = %d, want 9900", b2.TotalPriceCents)
	}
}

func TestCancelBookingNotFound(t *testing.T) {
	store := memory.NewStore()
	svc := reservation.New(store, nil, nil, nil, nil, testLogger(), reservation.Config{})

	_, err := svc.CancelBooking(context.Background(), uuid.New())
	if !errors.Is(err, reservation.ErrBookingNotFound) {
		t.Errorf("got %v, want ErrBookingNotFound", err)
	}
}
