package admin

import "errors"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryConflict = errors.New("category already exists")
	ErrVenueNotFound    = errors.New("venue not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrInvalidEvent     = errors.New("invalid event definition")
)
