package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation                = errors.New("validation failed")
	ErrNotFound                  = errors.New("not found")
	ErrInsufficientStock         = errors.New("not enough stock")
	ErrSessionMissing            = errors.New("cart session not found")
	ErrPaymentProvider           = errors.New("payment provider error")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrAlreadyPaid               = errors.New("order is already paid")
	ErrInvalidNumericInput       = errors.New("invalid numeric input")
	ErrUnauthenticated           = errors.New("user is not authenticated")
	ErrForbidden                 = errors.New("user is not authorized")
)

// Not-found kinds, all matching ErrNotFound with errors.Is.
var (
	ErrCartNotFound    = fmt.Errorf("cart %w", ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("item %w", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
)

// ValidationError wraps ErrValidation with the offending field.
func ValidationError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}

// ProviderError is returned by the payment gateway for every failed provider call.
type ProviderError struct {
	Op         string
	StatusCode int
	Diagnostic string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("payment provider %s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrPaymentProvider, e.Err}
	}
	return []error{ErrPaymentProvider}
}

// Transient reports whether retrying the call could succeed.
func (e *ProviderError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == 429
}
