package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"broadcaster/config"
	"broadcaster/events"
	"broadcaster/models"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the broadcaster
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	ledgerTransactionsCounter    metric.Int64Counter
	ledgerCreditsCounter         metric.Int64Counter
	broadcastsCounter            metric.Int64Counter
	broadcastMessagesCounter     metric.Int64Counter
	paymentsCounter              metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
	statsUsersGauge              metric.Int64Gauge
	statsTransactionsGauge       metric.Int64Gauge
	statsBroadcastsGauge         metric.Int64Gauge
	statsCreditsGauge            metric.Int64Gauge
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none", "":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.initWithReader(reader); err != nil {
		return err
	}

	// Set as global meter provider
	otel.SetMeterProvider(mp.meterProvider)

	log.Info("Metrics provider initialized successfully")
	return nil
}

// initWithReader builds the meter provider around reader. Callers hold mp.mu.
func (mp *MetricsProvider) initWithReader(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("broadcaster")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.ledgerTransactionsCounter, LedgerTransactionsTotal, "Total number of ledger transactions"},
		{&mp.ledgerCreditsCounter, LedgerCreditsTotal, "Total credits moved by ledger transactions"},
		{&mp.broadcastsCounter, BroadcastsTotal, "Total number of recorded broadcasts"},
		{&mp.broadcastMessagesCounter, BroadcastMessagesTotal, "Total number of broadcast DMs attempted"},
		{&mp.paymentsCounter, PaymentsTotal, "Total number of payment expectations by status"},
		{&mp.natsMessagesPublishedCounter, NATSMessagesPublishedTotal, "Total number of NATS messages published"},
	}
	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}

	gauges := []struct {
		target      *metric.Int64Gauge
		name        string
		description string
	}{
		{&mp.statsUsersGauge, StatsUsers, "Number of accounts"},
		{&mp.statsTransactionsGauge, StatsTransactions, "Number of ledger transactions"},
		{&mp.statsBroadcastsGauge, StatsBroadcasts, "Number of recorded broadcasts"},
		{&mp.statsCreditsGauge, StatsCreditsCirculating, "Sum of all account balances"},
	}
	for _, g := range gauges {
		gauge, err := mp.meter.Int64Gauge(g.name,
			metric.WithDescription(g.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s gauge: %w", g.name, err)
		}
		*g.target = gauge
	}

	return nil
}

// HandleEvent records counters for ledger events. It is subscribed to the event bus.
func (mp *MetricsProvider) HandleEvent(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.BalanceChangeEvent:
		attrs := metric.WithAttributes(attribute.String(LabelType, string(e.TransactionType)))
		mp.ledgerTransactionsCounter.Add(ctx, 1, attrs)
		mp.ledgerCreditsCounter.Add(ctx, e.Amount, attrs)

	case events.BroadcastRecordedEvent:
		mp.broadcastsCounter.Add(ctx, 1)
		mp.broadcastMessagesCounter.Add(ctx, e.MessagesSent,
			metric.WithAttributes(attribute.String(LabelResult, ResultSent)))
		mp.broadcastMessagesCounter.Add(ctx, e.MessagesFailed,
			metric.WithAttributes(attribute.String(LabelResult, ResultFailed)))

	case events.PaymentExpectedEvent:
		mp.paymentsCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelStatus, PaymentStatusExpected)))

	case events.PaymentConfirmedEvent:
		mp.paymentsCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelStatus, PaymentStatusConfirmed)))
	}
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// RecordSystemStats sets the stats gauges
func (mp *MetricsProvider) RecordSystemStats(stats *models.SystemStats) {
	if !mp.isEnabled() || stats == nil {
		return
	}

	ctx := context.Background()
	mp.statsUsersGauge.Record(ctx, stats.TotalUsers)
	mp.statsTransactionsGauge.Record(ctx, stats.TotalTransactions)
	mp.statsBroadcastsGauge.Record(ctx, stats.TotalBroadcasts)
	mp.statsCreditsGauge.Record(ctx, stats.TotalCreditsInCirculation)
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider == nil {
		return nil
	}

	if err := mp.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	mp.enabled = false
	log.Info("Metrics provider shut down")
	return nil
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
