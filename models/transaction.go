package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeSpend  TransactionType = "spend"
	TransactionTypeRefund TransactionType = "refund"
)

// IsInflow returns true if the transaction type adds credits to the balance
func (tt TransactionType) IsInflow() bool {
	return tt == TransactionTypeCredit || tt == TransactionTypeRefund
}

// IsValid returns true for the known transaction types
func (tt TransactionType) IsValid() bool {
	switch tt {
	case TransactionTypeCredit, TransactionTypeSpend, TransactionTypeRefund:
		return true
	}
	return false
}

// SignedAmount returns the amount as it affects the balance
func (t *Transaction) SignedAmount() int64 {
	if t.Type.IsInflow() {
		return t.Amount
	}
	return -t.Amount
}

// Transaction is an immutable ledger entry. Amount is always positive.
type Transaction struct {
	ID          string          `db:"id" bson:"-"`
	DiscordID   int64           `db:"discord_id" bson:"discord_id"`
	Type        TransactionType `db:"type" bson:"type"`
	Amount      int64           `db:"amount" bson:"amount"`
	Description string          `db:"description" bson:"description"`
	CreatedAt   time.Time       `db:"created_at" bson:"created_at"`
}

// TopUpKey records a caller-supplied idempotency key for a manual top-up
type TopUpKey struct {
	Key           string    `db:"key" bson:"_id"`
	DiscordID     int64     `db:"discord_id" bson:"discord_id"`
	TransactionID string    `db:"transaction_id" bson:"transaction_id"`
	CreatedAt     time.Time `db:"created_at" bson:"created_at"`
}
