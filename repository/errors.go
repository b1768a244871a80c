package repository

import (
	"errors"
	"fmt"
	"net"

	"broadcaster/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// wrapErr adds context to a query error and tags connection failures with
// service.ErrStoreUnavailable so callers can tell them apart from bad input.
func wrapErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if isConflict(err) {
		return fmt.Errorf("%s: %w: %w", msg, service.ErrWriteConflict, err)
	}
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", msg, service.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// serialization_failure and deadlock_detected abort the whole transaction
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// validID reports false for ids that cannot exist in a UUID column.
// Looking one up would fail the query instead of matching nothing.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
