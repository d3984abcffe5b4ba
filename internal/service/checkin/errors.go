package checkin

import "errors"

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCheckedIn = errors.New("booking is already checked in")
	ErrEventNotFound    = errors.New("event not found")
)
