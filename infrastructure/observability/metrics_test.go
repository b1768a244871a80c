package observability

import (
	"context"
	"testing"

	"broadcaster/config"
	"broadcaster/events"
	"broadcaster/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestProvider(t *testing.T) (*MetricsProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(&config.Config{
		OTelEnabled:     true,
		OTelServiceName: "broadcaster-test",
		Environment:     "test",
	})
	require.NoError(t, mp.initWithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		if key == "" {
			total += dp.Value
			continue
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func gaugeValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "metric %s is not an int64 gauge", m.Name)
	require.Len(t, gauge.DataPoints, 1)
	return gauge.DataPoints[0].Value
}

func TestMetricsProvider_HandleEvent(t *testing.T) {
	mp, reader := newTestProvider(t)
	ctx := context.Background()

	mp.HandleEvent(ctx, events.BalanceChangeEvent{DiscordID: 1, TransactionType: models.TransactionTypeCredit, Amount: 10})
	mp.HandleEvent(ctx, events.BalanceChangeEvent{DiscordID: 1, TransactionType: models.TransactionTypeSpend, Amount: 4})
	mp.HandleEvent(ctx, events.BalanceChangeEvent{DiscordID: 2, TransactionType: models.TransactionTypeCredit, Amount: 5})
	mp.HandleEvent(ctx, events.BroadcastRecordedEvent{DiscordID: 1, MessagesSent: 3, MessagesFailed: 1, CreditsUsed: 3})
	mp.HandleEvent(ctx, events.PaymentExpectedEvent{PaymentID: "p1", DiscordID: 1, Amount: 5000})
	mp.HandleEvent(ctx, events.PaymentConfirmedEvent{PaymentID: "p1", DiscordID: 1, Amount: 5000})
	mp.HandleEvent(ctx, events.AccountCreatedEvent{DiscordID: 3})

	metrics := collect(t, reader)

	txs := metrics[LedgerTransactionsTotal]
	assert.Equal(t, int64(2), sumFor(t, txs, LabelType, string(models.TransactionTypeCredit)))
	assert.Equal(t, int64(1), sumFor(t, txs, LabelType, string(models.TransactionTypeSpend)))

	credits := metrics[LedgerCreditsTotal]
	assert.Equal(t, int64(15), sumFor(t, credits, LabelType, string(models.TransactionTypeCredit)))
	assert.Equal(t, int64(4), sumFor(t, credits, LabelType, string(models.TransactionTypeSpend)))

	assert.Equal(t, int64(1), sumFor(t, metrics[BroadcastsTotal], "", ""))
	assert.Equal(t, int64(3), sumFor(t, metrics[BroadcastMessagesTotal], LabelResult, ResultSent))
	assert.Equal(t, int64(1), sumFor(t, metrics[BroadcastMessagesTotal], LabelResult, ResultFailed))

	assert.Equal(t, int64(1), sumFor(t, metrics[PaymentsTotal], LabelStatus, PaymentStatusExpected))
	assert.Equal(t, int64(1), sumFor(t, metrics[PaymentsTotal], LabelStatus, PaymentStatusConfirmed))
}

func TestMetricsProvider_RecordSystemStats(t *testing.T) {
	mp, reader := newTestProvider(t)

	mp.RecordSystemStats(&models.SystemStats{
		TotalUsers:                4,
		TotalTransactions:         12,
		TotalBroadcasts:           3,
		TotalCreditsInCirculation: 57,
	})
	mp.RecordNATSMessagePublished(string(events.EventTypeBalanceChange))

	metrics := collect(t, reader)
	assert.Equal(t, int64(4), gaugeValue(t, metrics[StatsUsers]))
	assert.Equal(t, int64(12), gaugeValue(t, metrics[StatsTransactions]))
	assert.Equal(t, int64(3), gaugeValue(t, metrics[StatsBroadcasts]))
	assert.Equal(t, int64(57), gaugeValue(t, metrics[StatsCreditsCirculating]))
	assert.Equal(t, int64(1), sumFor(t, metrics[NATSMessagesPublishedTotal], LabelEventType, string(events.EventTypeBalanceChange)))
}

func TestMetricsProvider_DisabledIsNoop(t *testing.T) {
	mp := NewMetricsProvider(&config.Config{OTelEnabled: false})
	require.NoError(t, mp.Initialize(context.Background()))

	// Instruments are nil; these must not panic
	mp.HandleEvent(context.Background(), events.PaymentExpectedEvent{})
	mp.RecordSystemStats(&models.SystemStats{TotalUsers: 1})
	mp.RecordNATSMessagePublished("balance_change")

	var nilProvider *MetricsProvider
	nilProvider.RecordSystemStats(&models.SystemStats{})
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_UnknownExporter(t *testing.T) {
	mp := NewMetricsProvider(&config.Config{OTelEnabled: true, OTelExporterType: "carrier-pigeon"})
	err := mp.Initialize(context.Background())
	assert.ErrorContains(t, err, "unknown exporter type")
}
