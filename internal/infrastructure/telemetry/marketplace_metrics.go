package telemetry

import (
	"context"
	"time"

	paymentapp "github.com/thirdhand/marketplace/internal/application/payment"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"go.opentelemetry.io/otel/metric"
)

const marketplaceMeterName = "thirdhand-marketplace/payments"

// MarketplaceMetrics counts checkouts, webhooks and settled payments
type MarketplaceMetrics struct {
	checkoutsCreated *Counter
	webhooksHandled  *Counter
	webhookDuration  *Histogram
	salesCompleted   *Counter
	salesVolume      *Counter
	listingFeesPaid  *Counter
}

var _ paymentapp.Metrics = (*MarketplaceMetrics)(nil)

// NewMarketplaceMetrics registers the payment instruments on meter
func NewMarketplaceMetrics(meter metric.Meter) (*MarketplaceMetrics, error) {
	var (
		m   MarketplaceMetrics
		err error
	)
	if m.checkoutsCreated, err = NewCounter(meter,
		"marketplace.checkout.sessions_created", "Checkout sessions opened", "{session}"); err != nil {
		return nil, err
	}
	if m.webhooksHandled, err = NewCounter(meter,
		"marketplace.webhook.events", "Gateway webhook deliveries by outcome", "{event}"); err != nil {
		return nil, err
	}
	if m.webhookDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "marketplace.webhook.duration",
		Description: "Time spent reconciling a webhook delivery",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.salesCompleted, err = NewCounter(meter,
		"marketplace.sales.completed", "Artwork sales settled", "{sale}"); err != nil {
		return nil, err
	}
	if m.salesVolume, err = NewCounter(meter,
		"marketplace.sales.volume", "Settled sale amounts", "{cent}"); err != nil {
		return nil, err
	}
	if m.listingFeesPaid, err = NewCounter(meter,
		"marketplace.listing_fees.paid", "Listing fees settled", "{fee}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewMarketplaceMetricsFromProvider uses the provider's payments meter
func NewMarketplaceMetricsFromProvider(mp *MeterProvider) (*MarketplaceMetrics, error) {
	return NewMarketplaceMetrics(mp.Meter(marketplaceMeterName))
}

// CheckoutCreated counts an opened checkout session
func (m *MarketplaceMetrics) CheckoutCreated(ctx context.Context, txType payment.TransactionType) {
	m.checkoutsCreated.Inc(ctx, AttrTransactionType.String(string(txType)))
}

// WebhookHandled counts a webhook delivery and records its latency
func (m *MarketplaceMetrics) WebhookHandled(ctx context.Context, eventType, outcome string, duration time.Duration) {
	m.webhooksHandled.Inc(ctx, AttrEventType.String(eventType), AttrOutcome.String(outcome))
	m.webhookDuration.RecordDuration(ctx, duration, AttrOutcome.String(outcome))
}

// PaymentCompleted counts a settled sale or listing fee
func (m *MarketplaceMetrics) PaymentCompleted(ctx context.Context, txType payment.TransactionType, amountCents int64) {
	switch txType {
	case payment.TransactionTypeSale:
		m.salesCompleted.Inc(ctx)
		m.salesVolume.Add(ctx, amountCents)
	case payment.TransactionTypeListingFee:
		m.listingFeesPaid.Inc(ctx)
	}
}
