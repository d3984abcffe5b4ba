package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/evently/evently/internal/domain"
	"github.com/google/uuid"
)

func TestWriteBookingsCSV(t *testing.T) {
	checkedAt := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	bookings := []domain.Booking{
		{
			ID:              uuid.New(),
			UserID:          uuid.MustParse("9f6e1c32-cc74-4c2b-9f7e-2b1a7a3cf001"),
			EventID:         uuid.New(),
			Quantity:        2,
			TotalPriceCents: 5000,
			Status:          domain.BookingConfirmed,
			PaymentStatus:   domain.PaymentPaid,
			Reference:       "BKABC123DEF456",
			CheckedIn:       true,
			CheckedInAt:     &checkedAt,
			CreatedAt:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:              uuid.New(),
			UserID:          uuid.New(),
			EventID:         uuid.New(),
			Quantity:        1,
			TotalPriceCents: 2500,
			Status:          domain.BookingCancelled,
			PaymentStatus:   domain.PaymentPaid,
			Reference:       "BKXYZ987QRS654",
			CreatedAt:       time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := WriteBookingsCSV(&buf, bookings); err != nil {
		t.Fatalf("WriteBookingsCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}

	if records[0][0] != "booking_reference" {
		t.Errorf("unexpected header: %v", records[0])
	}

	first := records[1]
	if first[0] != "BKABC123DEF456" {
		t.Errorf("reference = %q", first[0])
	}

	if first[1] != "9f6e1c32-cc74-4c2b-9f7e-2b1a7a3cf001" {
		t.Errorf("user_id = %q", first[1])
	}

	if first[2] != "2" || first[3] != "5000" {
		t.Errorf("quantity/total = %q/%q", first[2], first[3])
	}

	if first[6] != "true" || first[7] != "2026-03-14T18:30:00Z" {
		t.Errorf("checked_in fields = %q/%q", first[6], first[7])
	}

	second := records[2]
	if second[4] != string(domain.BookingCancelled) {
		t.Errorf("status = %q", second[4])
	}

	if second[7] != "" {
		t.Errorf("expected empty checked_in_at, got %q", second[7])
	}
}

func TestWriteBookingsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBookingsCSV(&buf, nil); err != nil {
		t.Fatalf("WriteBookingsCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected header only, got %d records", len(records))
	}
}
