package service

import (
	"context"
	"time"

	"broadcaster/events"
	"broadcaster/models"
)

// AccountRepository defines the interface for account data access.
// Methods that address a single account return a nil account when it does not exist.
type AccountRepository interface {
	// Upsert creates the account or refreshes its display metadata.
	// The boolean reports whether a new account was created.
	Upsert(ctx context.Context, profile models.AccountProfile) (*models.Account, bool, error)

	// GetByDiscordID retrieves an account by its Discord ID
	GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error)

	// AddCredits increments the balance atomically
	AddCredits(ctx context.Context, discordID int64, amount int64) (*models.Account, error)

	// DeductCredits decrements the balance and raises total spent in one conditional
	// update. It returns nil when the account is missing or the balance is short.
	DeductCredits(ctx context.Context, discordID int64, amount int64) (*models.Account, error)

	// IncrementBroadcastCounters adds messagesSent to total messages and one to total broadcasts
	IncrementBroadcastCounters(ctx context.Context, discordID int64, messagesSent int64) (*models.Account, error)

	// List returns accounts newest first
	List(ctx context.Context, limit, skip int) ([]*models.Account, error)

	// Count returns the number of accounts
	Count(ctx context.Context) (int64, error)

	// SumCredits returns the sum of every account's balance
	SumCredits(ctx context.Context) (int64, error)
}

// TransactionRepository defines the interface for the append-only transaction log
type TransactionRepository interface {
	// Append inserts the transaction and sets its ID and CreatedAt
	Append(ctx context.Context, tx *models.Transaction) (string, error)

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id string) (*models.Transaction, error)

	// ListByUser returns a user's transactions newest first
	ListByUser(ctx context.Context, discordID int64, limit int) ([]*models.Transaction, error)

	// ListAll returns all transactions newest first
	ListAll(ctx context.Context, limit, skip int) ([]*models.Transaction, error)

	// Count returns the number of transactions
	Count(ctx context.Context) (int64, error)

	// SumsByUser returns the total of credit+refund amounts and the total of spend amounts
	SumsByUser(ctx context.Context, discordID int64) (credited int64, spent int64, err error)
}

// BroadcastRepository defines the interface for broadcast records
type BroadcastRepository interface {
	// Create inserts the broadcast and sets its ID and CreatedAt
	Create(ctx context.Context, broadcast *models.Broadcast) error

	// ListByUser returns a user's broadcasts newest first
	ListByUser(ctx context.Context, discordID int64, limit int) ([]*models.Broadcast, error)

	// Count returns the number of broadcasts
	Count(ctx context.Context) (int64, error)
}

// PaymentRepository defines the interface for payment expectations
type PaymentRepository interface {
	// Create inserts the payment and sets its ID
	Create(ctx context.Context, payment *models.Payment) error

	// GetByID retrieves a payment by ID
	GetByID(ctx context.Context, id string) (*models.Payment, error)

	// FindActive returns the oldest pending payment for the user and amount that expires after now
	FindActive(ctx context.Context, discordID int64, amount int64, now time.Time) (*models.Payment, error)

	// MarkConfirmed transitions a pending payment to confirmed.
	// It returns false when the payment was not pending.
	MarkConfirmed(ctx context.Context, id string, now time.Time) (bool, error)

	// Claim confirms the oldest active match in a single conditional update.
	// It returns nil when nothing matched.
	Claim(ctx context.Context, discordID int64, amount int64, now time.Time) (*models.Payment, error)
}

// TopUpKeyRepository defines the interface for manual top-up idempotency keys
type TopUpKeyRepository interface {
	// Reserve records the key if absent. It returns false when the key already exists.
	Reserve(ctx context.Context, key string, discordID int64) (bool, error)

	// Get retrieves a key record
	Get(ctx context.Context, key string) (*models.TopUpKey, error)

	// AttachTransaction links a reserved key to the transaction it produced
	AttachTransaction(ctx context.Context, key string, transactionID string) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork groups repository calls into one atomic store transaction
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes staged events
	Commit() error

	// Rollback rolls back the transaction. It is a no-op after Commit.
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	TransactionRepository() TransactionRepository
	BroadcastRepository() BroadcastRepository
	PaymentRepository() PaymentRepository
	TopUpKeyRepository() TopUpKeyRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// AccountService defines the interface for account operations
type AccountService interface {
	// Upsert creates the account on first contact or refreshes its profile
	Upsert(ctx context.Context, profile models.AccountProfile) (*models.Account, error)

	// Get returns the account or ErrUserNotFound
	Get(ctx context.Context, discordID int64) (*models.Account, error)
}

// TopUpRequest is a manual top-up in external currency
type TopUpRequest struct {
	DiscordID      int64
	ExternalAmount int64
	Description    string
	IdempotencyKey string
}

// TopUpResult is the outcome of a manual top-up
type TopUpResult struct {
	Transaction *models.Transaction
	Credits     int64
	Duplicate   bool // the key was already used, nothing was credited
}

// LedgerService defines the interface for balance mutations
type LedgerService interface {
	// Credit adds credits and appends a credit transaction
	Credit(ctx context.Context, discordID int64, amount int64, description string) (*models.Transaction, error)

	// Spend removes credits if the balance covers them and appends a spend transaction
	Spend(ctx context.Context, discordID int64, amount int64, description string) (*models.Transaction, error)

	// Refund returns credits without lowering total spent
	Refund(ctx context.Context, discordID int64, amount int64, description string) (*models.Transaction, error)

	// TopUp converts external currency and credits it once per idempotency key
	TopUp(ctx context.Context, req TopUpRequest) (*TopUpResult, error)

	// ConvertExternalAmount converts external currency into credits using floor division
	ConvertExternalAmount(external int64) int64

	// ListTransactions returns a user's transactions newest first
	ListTransactions(ctx context.Context, discordID int64, limit int) ([]*models.Transaction, error)
}

// BroadcastService defines the interface for broadcast accounting
type BroadcastService interface {
	// RecordBroadcast records a broadcast and updates usage counters without charging
	RecordBroadcast(ctx context.Context, record models.BroadcastRecord) (*models.Broadcast, error)

	// ChargeAndRecord spends the record's credits and records the broadcast as one unit
	ChargeAndRecord(ctx context.Context, record models.BroadcastRecord) (*models.Broadcast, *models.Transaction, error)

	// ListBroadcasts returns a user's broadcasts newest first
	ListBroadcasts(ctx context.Context, discordID int64, limit int) ([]*models.Broadcast, error)
}

// PaymentService defines the interface for payment expectations
type PaymentService interface {
	// CreateExpectation opens a payment window for the user and amount
	CreateExpectation(ctx context.Context, discordID int64, amount int64) (*models.Payment, error)

	// FindActive returns the matching unexpired pending payment, or nil
	FindActive(ctx context.Context, discordID int64, amount int64) (*models.Payment, error)

	// Confirm marks the payment confirmed. It returns false for an unknown payment.
	Confirm(ctx context.Context, paymentID string) (bool, error)

	// Claim atomically confirms the oldest active match, or returns nil
	Claim(ctx context.Context, discordID int64, amount int64) (*models.Payment, error)

	// ClaimAndCredit claims a match and credits the converted amount as one unit
	ClaimAndCredit(ctx context.Context, discordID int64, amount int64) (*models.Payment, *models.Transaction, error)
}

// StatsService defines the interface for read-only rollups
type StatsService interface {
	// SystemStats returns totals across all accounts
	SystemStats(ctx context.Context) (*models.SystemStats, error)

	// UserStats returns a single account's usage, zeros when the account is unknown
	UserStats(ctx context.Context, discordID int64) (*models.UserStats, error)

	// ListAccounts returns accounts newest first
	ListAccounts(ctx context.Context, limit, skip int) ([]*models.Account, error)

	// ListTransactions returns every transaction newest first
	ListTransactions(ctx context.Context, limit, skip int) ([]*models.Transaction, error)

	// Reconcile checks the balance against the transaction log
	Reconcile(ctx context.Context, discordID int64) error
}
