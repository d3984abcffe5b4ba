// Package export renders booking lists for offline use at the venue door.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/evently/evently/internal/domain"
)

var bookingHeader = []string{
	"booking_reference",
	"user_id",
	"quantity",
	"total_price_cents",
	"status",
	"payment_status",
	"checked_in",
	"checked_in_at",
	"created_at",
}

// WriteBookingsCSV streams bookings as CSV, header first. Timestamps are
// RFC 3339 UTC so the file diffs cleanly between exports.
func WriteBookingsCSV(w io.Writer, bookings []domain.Booking) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(bookingHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for i := range bookings {
		if err := cw.Write(bookingRow(&bookings[i])); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}

	return nil
}

func bookingRow(b *domain.Booking) []string {
	checkedInAt := ""
	if b.CheckedInAt != nil {
		checkedInAt = b.CheckedInAt.UTC().Format(time.RFC3339)
	}

	return []string{
		b.Reference,
		b.UserID.String(),
		strconv.Itoa(b.Quantity),
		strconv.FormatInt(b.TotalPriceCents, 10),
		string(b.Status),
		string(b.PaymentStatus),
		strconv.FormatBool(b.CheckedIn),
		checkedInAt,
		b.CreatedAt.UTC().Format(time.RFC3339),
	}
}
