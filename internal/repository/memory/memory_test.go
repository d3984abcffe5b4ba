package memory

import (
	"context"
	"testing"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/google/uuid"
)

func TestCancelRestoreClampedAtTotal(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	event := &domain.Event{
		ID:                uuid.New(),
		Title:             "Clamp Night",
		StartsAt:          time.Now().Add(24 * time.Hour),
		EndsAt:            time.Now().Add(27 * time.Hour),
		TotalCapacity:     10,
		RemainingCapacity: 10,
		Active:            true,
	}
	store.SeedEvent(event)

	b := &domain.Booking{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		EventID:   event.ID,
		Quantity:  4,
		Status:    domain.BookingConfirmed,
		Reference: "BKCLAMP000000001",
	}
	if err := store.CreateBooking(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Drift the ledger upward so the cancel credit would overshoot the
	// total without the clamp.
	drifted := *event
	drifted.RemainingCapacity = 9
	store.SeedEvent(&drifted)

	if _, err := store.CancelBooking(ctx, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := store.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RemainingCapacity != 10 {
		t.Errorf("remaining = %d, want clamp at total 10", got.RemainingCapacity)
	}
}
