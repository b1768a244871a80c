package repository

import (
	"context"
	"errors"
	"fmt"

	"broadcaster/database"
	"broadcaster/events"
	"broadcaster/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface on a pgx transaction
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	accountRepo      service.AccountRepository
	transactionRepo  service.TransactionRepository
	broadcastRepo    service.BroadcastRepository
	paymentRepo      service.PaymentRepository
	topUpKeyRepo     service.TopUpKeyRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return wrapErr(err, "failed to begin transaction")
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.transactionRepo = newTransactionRepositoryWithTx(tx)
	u.broadcastRepo = newBroadcastRepositoryWithTx(tx)
	u.paymentRepo = newPaymentRepositoryWithTx(tx)
	u.topUpKeyRepo = newTopUpKeyRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes staged events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		u.transactionalBus.Discard()
		return wrapErr(err, "failed to commit transaction")
	}

	u.transactionalBus.Flush()

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	// The caller's context may already be cancelled; rollback must still reach the server
	err := u.tx.Rollback(context.WithoutCancel(u.ctx))
	u.tx = nil
	u.transactionalBus.Discard()

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// TransactionRepository returns the transaction repository for this unit of work
func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

// BroadcastRepository returns the broadcast repository for this unit of work
func (u *unitOfWork) BroadcastRepository() service.BroadcastRepository {
	if u.broadcastRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.broadcastRepo
}

// PaymentRepository returns the payment repository for this unit of work
func (u *unitOfWork) PaymentRepository() service.PaymentRepository {
	if u.paymentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.paymentRepo
}

// TopUpKeyRepository returns the top-up key repository for this unit of work
func (u *unitOfWork) TopUpKeyRepository() service.TopUpKeyRepository {
	if u.topUpKeyRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.topUpKeyRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}
