package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownIdentity   = errors.New("ledger: customer not found")
	ErrNotVerified       = errors.New("ledger: customer not verified")
	ErrAlreadyKnown      = errors.New("ledger: customer already known")
	ErrInvalidAmount     = errors.New("ledger: amount must be greater than zero")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrInvalidName       = errors.New("ledger: invalid name")
	ErrLimitExceeded     = errors.New("ledger: limit reached")

	ErrNegativeBalance   = errors.New("ledger: balance target must not be negative")
	ErrInvariantViolated = errors.New("ledger: account invariant violated")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("ledger: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}
