package domain

import (
	"errors"
	"strings"
)

// Reason names an expected, user-facing outcome that is not a system error.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonCartEmpty              Reason = "cart_empty"
	ReasonPaymentMethodMissing   Reason = "payment_method_missing"
	ReasonShippingAddressMissing Reason = "shipping_address_missing"
	ReasonValidation             Reason = "validation"
	ReasonNotFound               Reason = "not_found"
	ReasonInsufficientStock      Reason = "insufficient_stock"
	ReasonSessionMissing         Reason = "session_missing"
	ReasonPaymentProvider        Reason = "payment_provider"
	ReasonPaymentVerification    Reason = "payment_verification"
	ReasonAlreadyPaid            Reason = "already_paid"
	ReasonUnauthenticated        Reason = "unauthenticated"
	ReasonForbidden              Reason = "forbidden"
	ReasonInternal               Reason = "internal"
)

// Result is the response shape every mutating operation hands back to the front end.
type Result struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RedirectTo string `json:"redirectTo,omitempty"`
	Reason     Reason `json:"reason,omitempty"`
	Data       any    `json:"data,omitempty"`
}

func OK(message string) Result {
	return Result{Success: true, Message: message}
}

func SoftFail(reason Reason, message, redirectTo string) Result {
	return Result{Message: message, Reason: reason, RedirectTo: redirectTo}
}

// Page is one page of a listing.
type Page[T any] struct {
	Data       []T `json:"data"`
	TotalPages int `json:"totalPages"`
}

// TotalPages returns ceil(count/limit).
func TotalPages(count, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (count + limit - 1) / limit
}

const retryHint = "Something went wrong with the payment provider, please try again in a moment"

// FailureResult turns an operation error into the result shown to the user.
// Provider failures get a generic message with a retry hint; business-rule
// failures keep their own message. Anything unrecognised is internal.
func FailureResult(err error) Result {
	var pe *ProviderError
	switch {
	case errors.As(err, &pe):
		return Result{Message: retryHint, Reason: ReasonPaymentProvider}
	case errors.Is(err, ErrPaymentVerificationFailed):
		return Result{Message: "Error in payment verification", Reason: ReasonPaymentVerification}
	case errors.Is(err, ErrAlreadyPaid):
		return Result{Message: "Order is already paid", Reason: ReasonAlreadyPaid}
	case errors.Is(err, ErrInsufficientStock):
		return Result{Message: "Not enough stock", Reason: ReasonInsufficientStock}
	case errors.Is(err, ErrSessionMissing):
		return Result{Message: "Cart session not found", Reason: ReasonSessionMissing}
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidNumericInput):
		return Result{Message: err.Error(), Reason: ReasonValidation}
	case errors.Is(err, ErrNotFound):
		return Result{Message: notFoundMessage(err), Reason: ReasonNotFound}
	case errors.Is(err, ErrUnauthenticated):
		return Result{Message: "User is not authenticated", Reason: ReasonUnauthenticated}
	case errors.Is(err, ErrForbidden):
		return Result{Message: "User is not authorized", Reason: ReasonForbidden}
	default:
		return Result{Message: "Something went wrong, please try again", Reason: ReasonInternal}
	}
}

func notFoundMessage(err error) string {
	for _, known := range []error{ErrCartNotFound, ErrItemNotFound, ErrProductNotFound, ErrOrderNotFound, ErrUserNotFound} {
		if errors.Is(err, known) {
			msg := known.Error()
			return strings.ToUpper(msg[:1]) + msg[1:]
		}
	}
	return "Not found"
}
