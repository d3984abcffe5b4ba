// Package reference mints booking references and check-in tokens. References
// carry a time-based prefix plus a crypto-random suffix so no central
// sequence is needed; the storage layer's unique constraint backstops the
// residual collision risk.
package reference

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	prefix      = "BK"
	suffixLen   = 9
	suffixChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewBookingReference returns a reference of the form
// BK<millis base36><9 random base36 chars>, e.g. BKMDT4K2Q1A7F3X9ZQB.
func NewBookingReference() string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36)))

	buf := make([]byte, suffixLen)
	_, _ = rand.Read(buf)
	for _, c := range buf {
		b.WriteByte(suffixChars[int(c)%len(suffixChars)])
	}

	return b.String()
}

// NewCheckInToken derives an opaque one-way digest binding the booking, the
// event and the mint time. It is not reversible to its inputs and is not a
// capability token; treat its secrecy like the booking reference's.
func NewCheckInToken(bookingID, eventID uuid.UUID, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", bookingID, eventID, at.UnixNano())))
	return hex.EncodeToString(sum[:])
}
