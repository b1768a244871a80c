package mongorepo

import (
	"errors"
	"fmt"

	"broadcaster/service"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// wrapErr adds context and tags network failures with service.ErrStoreUnavailable.
// Transaction conflicts are tagged with service.ErrWriteConflict so the unit of
// work can be run again from the start.
func wrapErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case isTransientTransactionError(err):
		return fmt.Errorf("%s: %w: %w", msg, service.ErrWriteConflict, err)
	case mongo.IsNetworkError(err) || mongo.IsTimeout(err):
		return fmt.Errorf("%s: %w: %w", msg, service.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// isTransientTransactionError matches WriteConflict and the other errors the
// server labels as safe to retry with a fresh transaction. A commit whose
// outcome is unknown carries a different label and is not matched.
func isTransientTransactionError(err error) bool {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.HasErrorLabel(driverTransientTxnLabel)
	}
	return false
}

const driverTransientTxnLabel = "TransientTransactionError"

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
