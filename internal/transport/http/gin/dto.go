package httpgin

import (
	"time"

	"github.com/evently/evently/internal/domain"
)

type CreateBookingRequest struct {
	UserID   string `json:"user_id" binding:"required,uuid"`
	EventID  string `json:"event_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type CheckinRequest struct {
	BookingReference string `json:"booking_reference" binding:"required"`
	OperatorID       string `json:"operator_id" binding:"required,uuid"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type CreateVenueRequest struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Capacity int    `json:"capacity" binding:"gte=0"`
}

type EventRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	CategoryID    string `json:"category_id" binding:"required,uuid"`
	VenueID       string `json:"venue_id" binding:"required,uuid"`
	StartsAt      string `json:"starts_at" binding:"required"`
	EndsAt        string `json:"ends_at" binding:"required"`
	TotalCapacity int    `json:"total_capacity" binding:"required,gt=0"`
	PriceCents    int64  `json:"price_cents" binding:"gte=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// EventResponse decorates the stored event with its derived lifecycle
// status.
type EventResponse struct {
	*domain.Event
	Status domain.EventStatus `json:"status"`
}

func eventView(e *domain.Event) EventResponse {
	return EventResponse{Event: e, Status: e.Status(time.Now())}
}

func eventViews(events []domain.Event) []EventResponse {
	now := time.Now()
	out := make([]EventResponse, len(events))
	for i := range events {
		out[i] = EventResponse{Event: &events[i], Status: events[i].Status(now)}
	}
	return out
}

type CheckinResponse struct {
	BookingReference string    `json:"booking_reference"`
	EventID          string    `json:"event_id"`
	UserID           string    `json:"user_id"`
	Quantity         int       `json:"quantity"`
	CheckedAt        time.Time `json:"checked_at"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
