package events

import (
	"context"
	"sync"

	"broadcaster/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange     EventType = "balance_change"
	EventTypeAccountCreated    EventType = "account_created"
	EventTypeBroadcastRecorded EventType = "broadcast_recorded"
	EventTypePaymentExpected   EventType = "payment_expected"
	EventTypePaymentConfirmed  EventType = "payment_confirmed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent is emitted once per ledger transaction
type BalanceChangeEvent struct {
	DiscordID       int64                  `json:"discord_id"`
	TransactionID   string                 `json:"transaction_id"`
	TransactionType models.TransactionType `json:"transaction_type"`
	Amount          int64                  `json:"amount"`
	NewBalance      int64                  `json:"new_balance"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent represents a first-contact upsert
type AccountCreatedEvent struct {
	DiscordID int64  `json:"discord_id"`
	Username  string `json:"username"`
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// BroadcastRecordedEvent represents a recorded broadcast attempt
type BroadcastRecordedEvent struct {
	BroadcastID    string `json:"broadcast_id"`
	DiscordID      int64  `json:"discord_id"`
	GuildID        string `json:"guild_id"`
	MessagesSent   int64  `json:"messages_sent"`
	MessagesFailed int64  `json:"messages_failed"`
	CreditsUsed    int64  `json:"credits_used"`
}

func (e BroadcastRecordedEvent) Type() EventType {
	return EventTypeBroadcastRecorded
}

// PaymentExpectedEvent represents a newly opened payment window
type PaymentExpectedEvent struct {
	PaymentID string `json:"payment_id"`
	DiscordID int64  `json:"discord_id"`
	Amount    int64  `json:"amount"`
}

func (e PaymentExpectedEvent) Type() EventType {
	return EventTypePaymentExpected
}

// PaymentConfirmedEvent represents a payment expectation transitioning to confirmed
type PaymentConfirmedEvent struct {
	PaymentID string `json:"payment_id"`
	DiscordID int64  `json:"discord_id"`
	Amount    int64  `json:"amount"`
}

func (e PaymentConfirmedEvent) Type() EventType {
	return EventTypePaymentConfirmed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes() {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// AllEventTypes lists every event type the ledger emits
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeBalanceChange,
		EventTypeAccountCreated,
		EventTypeBroadcastRecorded,
		EventTypePaymentExpected,
		EventTypePaymentConfirmed,
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush() {
	// Handlers outlive the request, so they get a fresh context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of staged events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
