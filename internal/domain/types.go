package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Event struct {
	ID                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	CategoryID        uuid.UUID `json:"category_id"`
	VenueID           uuid.UUID `json:"venue_id"`
	StartsAt          time.Time `json:"starts_at"`
	EndsAt            time.Time `json:"ends_at"`
	TotalCapacity     int       `json:"total_capacity"`
	RemainingCapacity int       `json:"remaining_capacity"`
	PriceCents        int64     `json:"price_cents"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Status derives the event lifecycle state from the stored flag and the
// event window. Deactivated events report cancelled regardless of dates.
func (e *Event) Status(now time.Time) EventStatus {
	if !e.Active {
		return EventCancelled
	}
	if now.Before(e.StartsAt) {
		return EventUpcoming
	}
	if now.After(e.EndsAt) {
		return EventCompleted
	}
	return EventOngoing
}

type Booking struct {
	ID              uuid.UUID     `json:"id"`
	UserID          uuid.UUID     `json:"user_id"`
	EventID         uuid.UUID     `json:"event_id"`
	Quantity        int           `json:"quantity"`
	TotalPriceCents int64         `json:"total_price_cents"`
	Status          BookingStatus `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Reference       string        `json:"booking_reference"`
	CheckInToken    string        `json:"check_in_token"`
	CheckedIn       bool          `json:"checked_in"`
	CheckedInAt     *time.Time    `json:"checked_in_at,omitempty"`
	CheckedInBy     *uuid.UUID    `json:"checked_in_by,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Venue struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Capacity  int       `json:"capacity"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// EventCounts is the availability snapshot exposed on the public API.
type EventCounts struct {
	TotalCapacity     int `json:"total_capacity"`
	RemainingCapacity int `json:"remaining_capacity"`
	Sold              int `json:"sold"`
}

type CheckinResult struct {
	Booking   *Booking  `json:"booking"`
	EventID   uuid.UUID `json:"event_id"`
	CheckedAt time.Time `json:"checked_at"`
}

type CheckinStats struct {
	TotalBookings int     `json:"total_bookings"`
	CheckedIn     int     `json:"checked_in"`
	Pending       int     `json:"pending"`
	Percentage    float64 `json:"percentage"`
}

type DashboardStats struct {
	TotalEvents       int       `json:"total_events"`
	TicketsSold       int       `json:"tickets_sold"`
	RevenueCents      int64     `json:"revenue_cents"`
	TotalCapacity     int       `json:"total_capacity"`
	RemainingCapacity int       `json:"remaining_capacity"`
	UpcomingEvents    []Event   `json:"upcoming_events"`
	RecentBookings    []Booking `json:"recent_bookings"`
}
