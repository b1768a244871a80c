package mongorepo

import (
	"context"
	"fmt"

	"broadcaster/events"
	"broadcaster/service"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// unitOfWork implements the UnitOfWork interface on a MongoDB session transaction
type unitOfWork struct {
	store            *Store
	session          *mongo.Session
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	accountRepo      service.AccountRepository
	transactionRepo  service.TransactionRepository
	broadcastRepo    service.BroadcastRepository
	paymentRepo      service.PaymentRepository
	topUpKeyRepo     service.TopUpKeyRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(store *Store, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		store:    store,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	store    *Store
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		store:            f.store,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a session and a transaction on it
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.session != nil {
		return fmt.Errorf("transaction already started")
	}

	session, err := u.store.client.StartSession()
	if err != nil {
		return wrapErr(err, "failed to start session")
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return wrapErr(err, "failed to begin transaction")
	}

	u.session = session
	u.ctx = ctx

	s := scope{store: u.store, session: session}
	u.accountRepo = &AccountRepository{s}
	u.transactionRepo = &TransactionRepository{s}
	u.broadcastRepo = &BroadcastRepository{s}
	u.paymentRepo = &PaymentRepository{s}
	u.topUpKeyRepo = &TopUpKeyRepository{s}

	return nil
}

// Commit commits the transaction and flushes staged events
func (u *unitOfWork) Commit() error {
	if u.session == nil {
		return fmt.Errorf("no transaction to commit")
	}

	session := u.session
	u.session = nil
	defer session.EndSession(context.WithoutCancel(u.ctx))

	if err := session.CommitTransaction(u.ctx); err != nil {
		u.transactionalBus.Discard()
		return wrapErr(err, "failed to commit transaction")
	}

	u.transactionalBus.Flush()

	return nil
}

// Rollback aborts the transaction. It is a no-op after Commit.
func (u *unitOfWork) Rollback() error {
	if u.session == nil {
		return nil
	}

	session := u.session
	u.session = nil
	ctx := context.WithoutCancel(u.ctx)
	defer session.EndSession(ctx)

	u.transactionalBus.Discard()

	if err := session.AbortTransaction(ctx); err != nil {
		return fmt.Errorf("failed to abort transaction: %w", err)
	}

	return nil
}

func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

func (u *unitOfWork) BroadcastRepository() service.BroadcastRepository {
	if u.broadcastRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.broadcastRepo
}

func (u *unitOfWork) PaymentRepository() service.PaymentRepository {
	if u.paymentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.paymentRepo
}

func (u *unitOfWork) TopUpKeyRepository() service.TopUpKeyRepository {
	if u.topUpKeyRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.topUpKeyRepo
}

func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}
