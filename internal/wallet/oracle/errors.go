package oracle

import (
	"errors"
	"fmt"
)

// ErrUnavailable matches every oracle failure via errors.Is.
var ErrUnavailable = errors.New("ledger oracle unavailable")

// Category is the normalized failure taxonomy for ledger reads.
type Category string

const (
	CategoryTimeout       Category = "timeout"
	CategoryTransport     Category = "transport"     // connection refused, reset, DNS
	CategoryRateLimited   Category = "rate_limited"  // HTTP 429
	CategoryNodeError     Category = "node_error"    // HTTP 5xx from the node
	CategoryRPCError      Category = "rpc_error"     // JSON-RPC error object, including reverts
	CategoryBadData       Category = "bad_data"      // undecodable response
	CategoryMisconfigured Category = "misconfigured" // no endpoint or contract address
	CategoryCircuitOpen   Category = "circuit_open"
	CategoryInternal      Category = "internal"
)

// Error is a categorized oracle failure. Retryable is derived from Category.
type Error struct {
	Category  Category
	Message   string
	Err       error
	Retryable bool
}

// NewError builds an Error, marking transient categories retryable.
func NewError(category Category, message string, err error) *Error {
	return &Error{
		Category: category,
		Message:  message,
		Err:      err,
		Retryable: category == CategoryTimeout ||
			category == CategoryTransport ||
			category == CategoryRateLimited ||
			category == CategoryNodeError,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oracle [%s]: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("oracle [%s]: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every *Error match ErrUnavailable.
func (e *Error) Is(target error) bool { return target == ErrUnavailable }

// IsRetryable reports whether err is a transient oracle failure.
func IsRetryable(err error) bool {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Retryable
	}
	return false
}

// CategoryOf extracts the category, defaulting to internal.
func CategoryOf(err error) Category {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Category
	}
	return CategoryInternal
}
