package repository

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInsufficientCapacity = errors.New("insufficient remaining capacity")
	ErrAlreadyCancelled     = errors.New("booking already cancelled")
	ErrAlreadyCheckedIn     = errors.New("booking already checked in")
	ErrEventInactive        = errors.New("event is not active")
)
