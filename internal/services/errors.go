package services

import (
	"errors"
	"fmt"

	"archives/internal/repositories"
)

var (
	// ErrInvalidInput is returned for a non-positive add quantity or an
	// out-of-range rating value.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOTPExpired is returned when the OTP validity window has elapsed,
	// or when no code was ever issued.
	ErrOTPExpired = errors.New("OTP has expired")

	// ErrOTPMismatch is returned when a pending code does not equal the
	// supplied one. Comparison is exact string equality.
	ErrOTPMismatch = errors.New("invalid OTP")

	// ErrAlreadyVerified is returned when an account that already completed
	// verification is asked to verify or re-issue a code.
	ErrAlreadyVerified = errors.New("user already verified")
)

// InsufficientStockError is returned when a requested quantity exceeds what
// the inventory can cover. Available carries the remaining headroom so the
// caller can render a useful message without re-querying: for a fresh add
// or a replace it is the full stock, for a top-up of an existing item it is
// stock minus what the cart already holds.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d items available in stock", e.Available)
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}
