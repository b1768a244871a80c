package observability

// Metric name prefixes
const (
	MetricPrefix = "broadcaster"
)

// Metric names
const (
	// Ledger metrics
	LedgerTransactionsTotal = MetricPrefix + ".ledger.transactions_total"
	LedgerCreditsTotal      = MetricPrefix + ".ledger.credits_total"

	// Broadcast metrics
	BroadcastsTotal        = MetricPrefix + ".broadcasts.total"
	BroadcastMessagesTotal = MetricPrefix + ".broadcasts.messages_total"

	// Payment metrics
	PaymentsTotal = MetricPrefix + ".payments.total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Stats gauges, refreshed by the stats reporter
	StatsUsers              = MetricPrefix + ".stats.users"
	StatsTransactions       = MetricPrefix + ".stats.transactions"
	StatsBroadcasts         = MetricPrefix + ".stats.broadcasts"
	StatsCreditsCirculating = MetricPrefix + ".stats.credits_in_circulation"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelResult    = "result"
	LabelStatus    = "status"
)

// Broadcast message results
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Payment statuses
const (
	PaymentStatusExpected  = "expected"
	PaymentStatusConfirmed = "confirmed"
)
