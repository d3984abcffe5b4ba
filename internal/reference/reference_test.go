package reference

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewBookingReference_Format(t *testing.T) {
	ref := NewBookingReference()

	if !strings.HasPrefix(ref, "BK") {
		t.Errorf("reference %q must start with BK", ref)
	}
	if len(ref) < 2+suffixLen {
		t.Errorf("reference %q too short", ref)
	}
	for _, c := range ref {
		if !strings.ContainsRune(suffixChars, c) {
			t.Errorf("reference %q contains unexpected char %q", ref, c)
		}
	}
}

func TestNewBookingReference_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		ref := NewBookingReference()
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate reference after %d generations: %s", i, ref)
		}
		seen[ref] = struct{}{}
	}
}

func TestNewCheckInToken(t *testing.T) {
	bookingID := uuid.New()
	eventID := uuid.New()
	at := time.Now()

	tok := NewCheckInToken(bookingID, eventID, at)

	if len(tok) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(tok))
	}
	if strings.ToLower(tok) != tok {
		t.Errorf("token %q must be lowercase hex", tok)
	}

	// Deterministic for identical inputs, distinct otherwise.
	if again := NewCheckInToken(bookingID, eventID, at); again != tok {
		t.Errorf("same inputs produced different tokens")
	}
	if other := NewCheckInToken(uuid.New(), eventID, at); other == tok {
		t.Errorf("different bookings produced identical tokens")
	}
	if later := NewCheckInToken(bookingID, eventID, at.Add(time.Nanosecond)); later == tok {
		t.Errorf("different mint times produced identical tokens")
	}
}
