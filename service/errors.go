package service

import (
	"errors"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInsufficientCredits   = errors.New("insufficient credits")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrWriteConflict         = errors.New("write conflict")
	ErrInvariantViolation    = errors.New("ledger invariant violation")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrAmountTooSmall        = errors.New("amount converts to zero credits")
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
)
