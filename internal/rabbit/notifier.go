package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/google/uuid"
)

// BookingConfirmedMessage is the wire shape consumed by the notification
// workers.
type BookingConfirmedMessage struct {
	BookingID       uuid.UUID `json:"booking_id"`
	UserID          uuid.UUID `json:"user_id"`
	EventID         uuid.UUID `json:"event_id"`
	EventTitle      string    `json:"event_title"`
	EventStartsAt   time.Time `json:"event_starts_at"`
	Reference       string    `json:"booking_reference"`
	Quantity        int       `json:"quantity"`
	TotalPriceCents int64     `json:"total_price_cents"`
	ConfirmedAt     time.Time `json:"confirmed_at"`
}

// BookingConfirmed publishes the confirmation message. Errors are returned
// so the caller can log them, but the reservation engine treats this as
// fire-and-forget: a broker outage never fails a booking.
func (n *Notifier) BookingConfirmed(ctx context.Context, b *domain.Booking, e *domain.Event) error {
	msg := BookingConfirmedMessage{
		BookingID:       b.ID,
		UserID:          b.UserID,
		EventID:         e.ID,
		EventTitle:      e.Title,
		EventStartsAt:   e.StartsAt,
		Reference:       b.Reference,
		Quantity:        b.Quantity,
		TotalPriceCents: b.TotalPriceCents,
		ConfirmedAt:     b.CreatedAt,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return n.publish(ctx, queueBookingConfirmed, body)
}
