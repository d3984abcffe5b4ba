package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/evently/evently/internal/repository"
	postgresrepo "github.com/evently/evently/internal/repository/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS venues (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	capacity INT NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category_id UUID NOT NULL,
	venue_id UUID NOT NULL,
	starts_at TIMESTAMPTZ NOT NULL,
	ends_at TIMESTAMPTZ NOT NULL,
	total_capacity INT NOT NULL CHECK (total_capacity > 0),
	remaining_capacity INT NOT NULL CHECK (remaining_capacity >= 0),
	price_cents BIGINT NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	event_id UUID NOT NULL REFERENCES events (id),
	quantity INT NOT NULL CHECK (quantity > 0),
	total_price_cents BIGINT NOT NULL,
	status TEXT NOT NULL,
	payment_status TEXT NOT NULL,
	booking_reference TEXT NOT NULL UNIQUE,
	check_in_token TEXT NOT NULL,
	checked_in BOOLEAN NOT NULL DEFAULT FALSE,
	checked_in_at TIMESTAMPTZ,
	checked_in_by UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func newTestStore(t *testing.T) *postgresrepo.Store {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     "evently",
				"POSTGRES_PASSWORD": "evently",
				"POSTGRES_DB":       "evently",
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}

	dsn := fmt.Sprintf("postgres://evently:evently@%s:%s/evently?sslmode=disable", host, port.Port())

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}

	return postgresrepo.NewStore(pool)
}

func seedTestEvent(t *testing.T, store *postgresrepo.Store, capacity int, priceCents int64) *domain.Event {
	t.Helper()

	e := &domain.Event{
		ID:            uuid.New(),
		Title:         "Integration Night",
		CategoryID:    uuid.New(),
		VenueID:       uuid.New(),
		StartsAt:      time.Now().Add(24 * time.Hour),
		EndsAt:        time.Now().Add(27 * time.Hour),
		TotalCapacity: capacity,
		PriceCents:    priceCents,
		CreatedAt:     time.Now(),
	}
	if err := store.Events().Create(context.Background(), e); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return e
}

func newTestBooking(eventID uuid.UUID, quantity int, reference string) *domain.Booking {
	return &domain.Booking{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		EventID:         eventID,
		Quantity:        quantity,
		TotalPriceCents: int64(quantity) * 2500,
		Status:          domain.BookingConfirmed,
		PaymentStatus:   domain.PaymentPaid,
		Reference:       reference,
		CheckInToken:    "token-" + reference,
		CreatedAt:       time.Now(),
	}
}

func TestBookingLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	store := newTestStore(t)
	event := seedTestEvent(t, store, 10, 2500)

	b := newTestBooking(event.ID, 3, "BKLIFE0000000001")
	if err := store.Bookings().Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	counts, err := store.Events().Counts(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts.RemainingCapacity != 7 || counts.Sold != 3 {
		t.Errorf("counts = %+v, want remaining 7 sold 3", counts)
	}

	cancelled, err := store.Bookings().Cancel(ctx, b.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.BookingCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	counts, err = store.Events().Counts(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts.RemainingCapacity != 10 {
		t.Errorf("remaining = %d, want 10 after cancel", counts.RemainingCapacity)
	}

	// Second cancel must not credit the ledger again.
	if _, err := store.Bookings().Cancel(ctx, b.ID); !errors.Is(err, repository.ErrAlreadyCancelled) {
		t.Errorf("second cancel: got %v, want ErrAlreadyCancelled", err)
	}

	counts, _ = store.Events().Counts(ctx, event.ID)
	if counts.RemainingCapacity != 10 {
		t.Errorf("remaining = %d, want 10 after repeat cancel", counts.RemainingCapacity)
	}
}

func TestCreateBookingRejections(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	store := newTestStore(t)
	event := seedTestEvent(t, store, 2, 2500)

	err := store.Bookings().Create(ctx, newTestBooking(event.ID, 3, "BKREJ00000000001"))
	if !errors.Is(err, repository.ErrInsufficientCapacity) {
		t.Errorf("oversized booking: got %v, want ErrInsufficientCapacity", err)
	}

	err = store.Bookings().Create(ctx, newTestBooking(uuid.New(), 1, "BKREJ00000000002"))
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing event: got %v, want ErrNotFound", err)
	}

	if err := store.Events().Deactivate(ctx, event.ID); err != nil {
		t.Fatal(err)
	}
	err = store.Bookings().Create(ctx, newTestBooking(event.ID, 1, "BKREJ00000000003"))
	if !errors.Is(err, repository.ErrEventInactive) {
		t.Errorf("inactive event: got %v, want ErrEventInactive", err)
	}
}

func TestBookingReferenceUnique(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	store := newTestStore(t)
	event := seedTestEvent(t, store, 10, 2500)

	if err := store.Bookings().Create(ctx, newTestBooking(event.ID, 1, "BKSAME0000000001")); err != nil {
		t.Fatal(err)
	}

	err := store.Bookings().Create(ctx, newTestBooking(event.ID, 1, "BKSAME0000000001"))
	if !errors.Is(err, repository.ErrConflict) {
		t.Errorf("duplicate reference: got %v, want ErrConflict", err)
	}

	// The rejected insert's capacity debit must have rolled back with it.
	counts, _ := store.Events().Counts(ctx, event.ID)
	if counts.RemainingCapacity != 9 {
		t.Errorf("remaining = %d, want 9", counts.RemainingCapacity)
	}
}

func TestCheckInConsumesReferenceOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	store := newTestStore(t)
	event := seedTestEvent(t, store, 10, 2500)

	b := newTestBooking(event.ID, 2, "BKDOOR0000000001")
	if err := store.Bookings().Create(ctx, b); err != nil {
		t.Fatal(err)
	}

	operator := uuid.New()
	at := time.Now()

	got, err := store.Bookings().CheckIn(ctx, b.Reference, operator, at)
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if !got.CheckedIn || got.CheckedInBy == nil || *got.CheckedInBy != operator {
		t.Errorf("check-in fields not recorded: %+v", got)
	}

	if _, err := store.Bookings().CheckIn(ctx, b.Reference, operator, at); !errors.Is(err, repository.ErrAlreadyCheckedIn) {
		t.Errorf("repeat: got %v, want ErrAlreadyCheckedIn", err)
	}

	if _, err := store.Bookings().CheckIn(ctx, "BKNOSUCH00000001", operator, at); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown reference: got %v, want ErrNotFound", err)
	}

	// Capacity stays untouched by the door.
	counts, _ := store.Events().Counts(ctx, event.ID)
	if counts.RemainingCapacity != 8 {
		t.Errorf("remaining = %d, want 8", counts.RemainingCapacity)
	}

	stats, err := store.CheckinStats(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalBookings != 1 || stats.CheckedIn != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestConcurrentBookingsNoOversell(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	const capacity, attempts = 10, 20

	ctx := context.Background()
	store := newTestStore(t)
	event := seedTestEvent(t, store, capacity, 2500)

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := fmt.Sprintf("BKRACE%09d", i)
			errs[i] = store.Bookings().Create(ctx, newTestBooking(event.ID, 1, ref))
		}(i)
	}
	wg.Wait()

	var won, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, repository.ErrInsufficientCapacity):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if won != capacity || rejected != attempts-capacity {
		t.Errorf("won/rejected = %d/%d, want %d/%d", won, rejected, capacity, attempts-capacity)
	}

	counts, _ := store.Events().Counts(ctx, event.ID)
	if counts.RemainingCapacity != 0 {
		t.Errorf("remaining = %d, want 0", counts.RemainingCapacity)
	}
}

func TestCategoryNameUnique(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	store := newTestStore(t)

	c := &domain.Category{ID: uuid.New(), Name: "music", CreatedAt: time.Now()}
	if err := store.Categories().Create(ctx, c); err != nil {
		t.Fatal(err)
	}

	dup := &domain.Category{ID: uuid.New(), Name: "music", CreatedAt: time.Now()}
	if err := store.Categories().Create(ctx, dup); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("duplicate name: got %v, want ErrConflict", err)
	}
}

// Status filtering must happen before LIMIT/OFFSET so a page of filtered
// results is a page of matches, not a filtered page of everything.
func TestListEventsStatusFilterPaginates(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	store := newTestStore(t)

	seed := func(startsAt, endsAt time.Time) uuid.UUID {
		t.Helper()
		e := &domain.Event{
			ID:            uuid.New(),
			Title:         "Filtered Night",
			CategoryID:    uuid.New(),
			VenueID:       uuid.New(),
			StartsAt:      startsAt,
			EndsAt:        endsAt,
			TotalCapacity: 10,
			PriceCents:    1000,
			CreatedAt:     time.Now(),
		}
		if err := store.Events().Create(ctx, e); err != nil {
			t.Fatalf("seed event: %v", err)
		}
		return e.ID
	}

	now := time.Now()
	upcoming := make(map[uuid.UUID]bool, 6)
	for i := 0; i < 6; i++ {
		id := seed(now.Add(time.Duration(i+1)*time.Hour), now.Add(time.Duration(i+2)*time.Hour))
		upcoming[id] = true
		// Completed events sort first on starts_at, so an unfiltered page
		// would be dominated by them.
		seed(now.Add(-time.Duration(i+3)*time.Hour), now.Add(-time.Duration(i+2)*time.Hour))
	}

	got := make(map[uuid.UUID]bool)
	for offset := 0; offset < 8; offset += 4 {
		page, err := store.Events().List(ctx, nil, domain.EventUpcoming, 4, offset)
		if err != nil {
			t.Fatalf("list offset %d: %v", offset, err)
		}
		for _, e := range page {
			if !upcoming[e.ID] {
				t.Errorf("event %s is not upcoming", e.ID)
			}
			got[e.ID] = true
		}
	}
	if len(got) != len(upcoming) {
		t.Errorf("paged upcoming events = %d, want %d", len(got), len(upcoming))
	}

	completed, err := store.Events().List(ctx, nil, domain.EventCompleted, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != 6 {
		t.Errorf("completed events = %d, want 6", len(completed))
	}

	cancelledID := seed(now.Add(48*time.Hour), now.Add(50*time.Hour))
	if err := store.Events().Deactivate(ctx, cancelledID); err != nil {
		t.Fatal(err)
	}

	cancelled, err := store.Events().List(ctx, nil, domain.EventCancelled, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(cancelled) != 1 || cancelled[0].ID != cancelledID {
		t.Errorf("cancelled filter returned %d events", len(cancelled))
	}

	all, err := store.Events().List(ctx, nil, "", 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range all {
		if e.ID == cancelledID {
			t.Errorf("default listing must exclude deactivated events")
		}
	}
}

// A cancel credit lands on a ledger that drifted upward in the meantime
// (an admin correction, say). The restore must clamp at total capacity
// instead of overshooting it.
func TestCancelRestoreClampedAtTotal(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	store := newTestStore(t)
	event := seedTestEvent(t, store, 10, 2500)

	b := newTestBooking(event.ID, 4, "BKCLAMP000000001")
	if err := store.Bookings().Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := store.RunTx(ctx, nil, func(ctx context.Context, tx postgresrepo.DB) error {
		_, err := tx.Exec(ctx,
			`UPDATE events SET remaining_capacity = 9 WHERE id = $1`, event.ID)
		return err
	})
	if err != nil {
		t.Fatalf("drift: %v", err)
	}

	if _, err := store.Bookings().Cancel(ctx, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	counts, err := store.Events().Counts(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts.RemainingCapacity != 10 {
		t.Errorf("remaining = %d, want clamp at total 10", counts.RemainingCapacity)
	}
}
