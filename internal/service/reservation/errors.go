package reservation

import "errors"

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrInvalidQuantity  = errors.New("invalid ticket quantity")
	ErrCapacityExceeded = errors.New("not enough tickets remaining")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrRateLimited      = errors.New("rate limited")
)
