package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrDuplicateOrderRef   = errors.New("duplicate_order_ref")
	ErrOrderNotFound       = errors.New("order_not_found")
	ErrInvalidOrderStatus  = errors.New("invalid_order_status")
	ErrDuplicateInstrument = errors.New("duplicate_instrument")
	ErrUnknownInstrument   = errors.New("unknown_instrument")
	ErrDuplicateSubscriber = errors.New("duplicate_subscriber")
	ErrSchedulerStopped    = errors.New("scheduler_stopped")
	ErrListenerNotFound    = errors.New("listener_not_found")
	ErrEmptyHistory        = errors.New("empty_status_history")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
