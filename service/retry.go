package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// maxConflictRetries bounds how often a unit of work is rerun after a write conflict
const maxConflictRetries = 8

func conflictBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, maxConflictRetries)
}

// retryOnConflict runs op, rerunning it when the store aborted the unit of work
// with ErrWriteConflict. op must open its own unit of work on every call.
// Any other error is returned as is.
func retryOnConflict(ctx context.Context, name string, op func() error) error {
	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			err := op()
			if err == nil || errors.Is(err, ErrWriteConflict) {
				return err
			}
			return backoff.Permanent(err)
		},
		backoff.WithContext(conflictBackOff(), ctx),
		func(err error, wait time.Duration) {
			log.WithFields(log.Fields{
				"operation": name,
				"attempt":   attempt,
				"wait":      wait,
				"error":     err,
			}).Debug("Retrying unit of work after write conflict")
		},
	)
}
