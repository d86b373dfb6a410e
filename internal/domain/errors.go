package domain

import "errors"

var (
	// ErrNotFound is returned when no order header exists for the requested id.
	ErrNotFound = errors.New("order not found")

	// ErrBadOrderUID is returned when an order id does not parse as a UUID.
	ErrBadOrderUID = errors.New("malformed order_uid")
)
