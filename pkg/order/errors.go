package order

import "errors"

// The order subsystem's user-facing error kinds. All four are terminal
// application errors: callers get them verbatim and nothing is retried. A
// failed transition always leaves the order in its prior status.
var (
	// ErrNotFound means the order id does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrForbidden means the requester is authenticated but not entitled
	// to view or mutate this specific order.
	ErrForbidden = errors.New("not entitled to access this order")

	// ErrInvalidTransition means the requested status is not reachable
	// from the current status, the order is already terminal, or the
	// requested status equals the current one.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation means the input is malformed, e.g. a status value
	// outside the closed set.
	ErrValidation = errors.New("invalid input")

	// ErrStatusConflict is returned by a Store when a conditional status
	// update matched no document because a concurrent writer moved the
	// order first. The service surfaces it as ErrInvalidTransition.
	ErrStatusConflict = errors.New("order status changed concurrently")
)
