package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	paymentapp "github.com/thirdhand/marketplace/internal/application/payment"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	tel, err := Setup(ctx, config.TelemetryConfig{ServiceName: "thirdhand-test"}, "test", zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tel.TracingEnabled())
	assert.False(t, tel.Meter.IsEnabled())
	assert.False(t, tel.Logs.IsEnabled())
	assert.False(t, tel.Profiler.IsEnabled())
	assert.IsType(t, paymentapp.NopMetrics{}, tel.Metrics)

	base := zap.NewNop()
	assert.Same(t, base, tel.Logger(base))
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestStartServiceSpan(t *testing.T) {
	sr := useRecorder(t)

	ctx, span := StartServiceSpan(context.Background(), "payment", "process_webhook",
		SpanAttrEventType, "checkout.session.completed",
		SpanAttrAmount, int64(5000),
		42, "ignored: non-string key",
	)
	assert.NotEmpty(t, GetTraceID(ctx))
	AddEvent(span, "transaction_completed", SpanAttrTransactionID, "tx-1")
	RecordError(span, errors.New("gateway timeout"))
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, "payment.process_webhook", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Len(t, s.Attributes(), 2)

	var names []string
	for _, e := range s.Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "transaction_completed")
	assert.Contains(t, names, "exception")
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestMarketplaceMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := newMeterProviderWithReader(reader, zap.NewNop())
	defer mp.Shutdown(ctx)

	m, err := NewMarketplaceMetricsFromProvider(mp)
	require.NoError(t, err)

	m.CheckoutCreated(ctx, payment.TransactionTypeSale)
	m.CheckoutCreated(ctx, payment.TransactionTypeListingFee)
	m.WebhookHandled(ctx, "checkout.session.completed", paymentapp.OutcomeProcessed, 30*time.Millisecond)
	m.WebhookHandled(ctx, "checkout.session.completed", paymentapp.OutcomeDuplicate, time.Millisecond)
	m.PaymentCompleted(ctx, payment.TransactionTypeSale, 12000)
	m.PaymentCompleted(ctx, payment.TransactionTypeSale, 3000)
	m.PaymentCompleted(ctx, payment.TransactionTypeListingFee, 100)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	var histogramCount uint64
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			switch data := metric.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[metric.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histogramCount += dp.Count
				}
			}
		}
	}

	assert.Equal(t, int64(2), sums["marketplace.checkout.sessions_created"])
	assert.Equal(t, int64(2), sums["marketplace.webhook.events"])
	assert.Equal(t, int64(2), sums["marketplace.sales.completed"])
	assert.Equal(t, int64(15000), sums["marketplace.sales.volume"])
	assert.Equal(t, int64(1), sums["marketplace.listing_fees.paid"])
	assert.Equal(t, uint64(2), histogramCount)
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(&levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel})

	logger.Info("dropped")
	logger.With(zap.String("component", "webhook")).Warn("kept")
	logger.Error("kept too")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "webhook", logs.All()[0].ContextMap()["component"])
}

func TestLoggerProvider_DisabledCoreIsNop(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.Core(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestNewProfiler(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "x"}, zap.NewNop())
	assert.Error(t, err)
	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, zap.NewNop())
	assert.Error(t, err)
}

func TestWithProfilingLabels(t *testing.T) {
	called := 0
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called++ })
	WithProfilingLabels(context.Background(), map[string]string{"route": "/api/v1/payments/webhook"}, func(context.Context) { called++ })
	assert.Equal(t, 2, called)
}

func TestRegisterDBTracing(t *testing.T) {
	sr := useRecorder(t)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{}, zap.NewNop()), "disabled is a no-op")
	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond}, zap.NewNop()))

	ctx, span := StartServiceSpan(context.Background(), "test", "query")
	var n int
	require.NoError(t, db.WithContext(ctx).Raw("SELECT 1").Scan(&n).Error)
	span.End()
	assert.Equal(t, 1, n)

	var sawSlow bool
	for _, s := range sr.Ended() {
		for _, a := range s.Attributes() {
			if a.Key == "db.slow_query" && a.Value.AsBool() {
				sawSlow = true
			}
		}
	}
	assert.True(t, sawSlow, "every statement exceeds a 1ns threshold")
}
