package service

import (
	"context"
	"time"

	"broadcaster/events"
	"broadcaster/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Upsert(ctx context.Context, profile models.AccountProfile) (*models.Account, bool, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Account), args.Bool(1), args.Error(2)
}

func (m *MockAccountRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) AddCredits(ctx context.Context, discordID int64, amount int64) (*models.Account, error) {
	args := m.Called(ctx, discordID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) DeductCredits(ctx context.Context, discordID int64, amount int64) (*models.Account, error) {
	args := m.Called(ctx, discordID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) IncrementBroadcastCounters(ctx context.Context, discordID int64, messagesSent int64) (*models.Account, error) {
	args := m.Called(ctx, discordID, messagesSent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) List(ctx context.Context, limit, skip int) ([]*models.Account, error) {
	args := m.Called(ctx, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) SumCredits(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
// Append assigns a fixed ID so callers can follow the transaction through events.
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Append(ctx context.Context, tx *models.Transaction) (string, error) {
	args := m.Called(ctx, tx)
	id := args.String(0)
	if args.Error(1) == nil {
		tx.ID = id
		tx.CreatedAt = time.Now().UTC()
	}
	return id, args.Error(1)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, discordID int64, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListAll(ctx context.Context, limit, skip int) ([]*models.Transaction, error) {
	args := m.Called(ctx, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) SumsByUser(ctx context.Context, discordID int64) (int64, int64, error) {
	args := m.Called(ctx, discordID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockBroadcastRepository is a mock implementation of BroadcastRepository
type MockBroadcastRepository struct {
	mock.Mock
}

func (m *MockBroadcastRepository) Create(ctx context.Context, broadcast *models.Broadcast) error {
	args := m.Called(ctx, broadcast)
	return args.Error(0)
}

func (m *MockBroadcastRepository) ListByUser(ctx context.Context, discordID int64, limit int) ([]*models.Broadcast, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Broadcast), args.Error(1)
}

func (m *MockBroadcastRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindActive(ctx context.Context, discordID int64, amount int64, now time.Time) (*models.Payment, error) {
	args := m.Called(ctx, discordID, amount, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) MarkConfirmed(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) Claim(ctx context.Context, discordID int64, amount int64, now time.Time) (*models.Payment, error) {
	args := m.Called(ctx, discordID, amount, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

// MockTopUpKeyRepository is a mock implementation of TopUpKeyRepository
type MockTopUpKeyRepository struct {
	mock.Mock
}

func (m *MockTopUpKeyRepository) Reserve(ctx context.Context, key string, discordID int64) (bool, error) {
	args := m.Called(ctx, key, discordID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTopUpKeyRepository) Get(ctx context.Context, key string) (*models.TopUpKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TopUpKey), args.Error(1)
}

func (m *MockTopUpKeyRepository) AttachTransaction(ctx context.Context, key string, transactionID string) error {
	args := m.Called(ctx, key, transactionID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// injected with SetRepositories and returned without recording calls.
type MockUnitOfWork struct {
	mock.Mock

	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	broadcastRepo   BroadcastRepository
	paymentRepo     PaymentRepository
	topUpKeyRepo    TopUpKeyRepository
	eventBus        EventPublisher
}

// SetRepositories wires the repositories handed out by the unit of work
func (m *MockUnitOfWork) SetRepositories(accounts AccountRepository, transactions TransactionRepository, broadcasts BroadcastRepository, payments PaymentRepository, topUpKeys TopUpKeyRepository) {
	m.accountRepo = accounts
	m.transactionRepo = transactions
	m.broadcastRepo = broadcasts
	m.paymentRepo = payments
	m.topUpKeyRepo = topUpKeys
}

// SetEventBus wires the publisher handed out by EventBus
func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository         { return m.accountRepo }
func (m *MockUnitOfWork) TransactionRepository() TransactionRepository { return m.transactionRepo }
func (m *MockUnitOfWork) BroadcastRepository() BroadcastRepository     { return m.broadcastRepo }
func (m *MockUnitOfWork) PaymentRepository() PaymentRepository         { return m.paymentRepo }
func (m *MockUnitOfWork) TopUpKeyRepository() TopUpKeyRepository       { return m.topUpKeyRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                     { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
