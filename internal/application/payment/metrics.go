package payment

import (
	"context"
	"time"

	"github.com/thirdhand/marketplace/internal/domain/payment"
)

// Webhook outcomes reported to Metrics
const (
	OutcomeProcessed        = "processed"
	OutcomeDuplicate        = "duplicate"
	OutcomeIgnored          = "ignored"
	OutcomeFailed           = "failed"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeRefundRequired   = "refund_required"
)

// Metrics records payment flow measurements
type Metrics interface {
	CheckoutCreated(ctx context.Context, txType payment.TransactionType)
	WebhookHandled(ctx context.Context, eventType, outcome string, duration time.Duration)
	PaymentCompleted(ctx context.Context, txType payment.TransactionType, amountCents int64)
}

// NopMetrics discards all measurements
type NopMetrics struct{}

func (NopMetrics) CheckoutCreated(context.Context, payment.TransactionType)         {}
func (NopMetrics) WebhookHandled(context.Context, string, string, time.Duration)    {}
func (NopMetrics) PaymentCompleted(context.Context, payment.TransactionType, int64) {}

var _ Metrics = NopMetrics{}
