package models

import (
	"time"
)

// PaymentStatus represents the state of a payment expectation
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
)

// DefaultPaymentWindow is how long an expectation stays matchable
const DefaultPaymentWindow = 30 * time.Minute

// Payment is a time-boxed expectation that a user will send a known
// amount of external currency. Expiry is evaluated at read time only.
type Payment struct {
	ID          string        `db:"id" bson:"-"`
	DiscordID   int64         `db:"discord_id" bson:"discord_id"`
	Amount      int64         `db:"amount" bson:"amount"`
	Status      PaymentStatus `db:"status" bson:"status"`
	CreatedAt   time.Time     `db:"created_at" bson:"created_at"`
	ExpiresAt   time.Time     `db:"expires_at" bson:"expires_at"`
	ConfirmedAt *time.Time    `db:"confirmed_at" bson:"confirmed_at,omitempty"`
}

