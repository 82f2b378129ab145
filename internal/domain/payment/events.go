package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeTransaction = "Transaction"

// Event type constants
const (
	EventTypePaymentCompleted = "PaymentCompleted"
	EventTypePaymentFailed    = "PaymentFailed"
	EventTypeRefundRequired   = "RefundRequired"
)

// PaymentCompletedEvent drives the payment confirmation emails
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          TransactionType `json:"transaction_type"`
	BuyerID       *uuid.UUID      `json:"buyer_id,omitempty"`
	SellerID      uuid.UUID       `json:"seller_id"`
	ArtworkID     uuid.UUID       `json:"artwork_id"`
	Amount        int64           `json:"amount"`
	ArtistAmount  int64           `json:"artist_amount"`
	Currency      string          `json:"currency"`
}

// MaxAttempts implements shared.RetryPolicy
func (*PaymentCompletedEvent) MaxAttempts() int { return 3 }

// BaseBackoff implements shared.RetryPolicy
func (*PaymentCompletedEvent) BaseBackoff() time.Duration { return 2 * time.Second }

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(t *Transaction) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCompleted, AggregateTypeTransaction, t.ID),
		TransactionID:   t.ID,
		Type:            t.Type,
		BuyerID:         t.BuyerID,
		SellerID:        t.SellerID,
		ArtworkID:       t.ArtworkID,
		Amount:          t.Amount,
		ArtistAmount:    t.ArtistAmount,
		Currency:        t.Currency,
	}
}

// Payer returns the buyer for sales and the artist for listing fees
func (e *PaymentCompletedEvent) Payer() uuid.UUID {
	if e.Type == TransactionTypeSale && e.BuyerID != nil {
		return *e.BuyerID
	}
	return e.SellerID
}

// PaymentFailedEvent drives the failed payment email
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          TransactionType `json:"transaction_type"`
	BuyerID       *uuid.UUID      `json:"buyer_id,omitempty"`
	SellerID      uuid.UUID       `json:"seller_id"`
	ArtworkID     uuid.UUID       `json:"artwork_id"`
	Amount        int64           `json:"amount"`
	Reason        string          `json:"reason"`
}

// MaxAttempts implements shared.RetryPolicy
func (*PaymentFailedEvent) MaxAttempts() int { return 2 }

// BaseBackoff implements shared.RetryPolicy
func (*PaymentFailedEvent) BaseBackoff() time.Duration { return 2 * time.Second }

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(t *Transaction) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, AggregateTypeTransaction, t.ID),
		TransactionID:   t.ID,
		Type:            t.Type,
		BuyerID:         t.BuyerID,
		SellerID:        t.SellerID,
		ArtworkID:       t.ArtworkID,
		Amount:          t.Amount,
		Reason:          t.FailureReason,
	}
}

// Payer returns who paid: the buyer for sales, the artist for listing fees
func (e *PaymentFailedEvent) Payer() uuid.UUID {
	if e.Type == TransactionTypeSale && e.BuyerID != nil {
		return *e.BuyerID
	}
	return e.SellerID
}

// RefundRequiredEvent is raised instead of PaymentCompletedEvent when money
// was collected for something that could not be delivered
type RefundRequiredEvent struct {
	shared.BaseDomainEvent
	TransactionID   uuid.UUID       `json:"transaction_id"`
	Type            TransactionType `json:"transaction_type"`
	BuyerID         *uuid.UUID      `json:"buyer_id,omitempty"`
	SellerID        uuid.UUID       `json:"seller_id"`
	ArtworkID       uuid.UUID       `json:"artwork_id"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Reason          string          `json:"reason"`
}

// MaxAttempts implements shared.RetryPolicy
func (*RefundRequiredEvent) MaxAttempts() int { return 5 }

// BaseBackoff implements shared.RetryPolicy
func (*RefundRequiredEvent) BaseBackoff() time.Duration { return 5 * time.Second }

// NewRefundRequiredEvent creates a new RefundRequiredEvent
func NewRefundRequiredEvent(t *Transaction, reason string) *RefundRequiredEvent {
	return &RefundRequiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRefundRequired, AggregateTypeTransaction, t.ID),
		TransactionID:   t.ID,
		Type:            t.Type,
		BuyerID:         t.BuyerID,
		SellerID:        t.SellerID,
		ArtworkID:       t.ArtworkID,
		Amount:          t.Amount,
		Currency:        t.Currency,
		PaymentIntentID: t.PaymentIntentID,
		Reason:          reason,
	}
}

// Payer returns who paid: the buyer for sales, the artist for listing fees
func (e *RefundRequiredEvent) Payer() uuid.UUID {
	if e.Type == TransactionTypeSale && e.BuyerID != nil {
		return *e.BuyerID
	}
	return e.SellerID
}
