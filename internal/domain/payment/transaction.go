package payment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// TransactionStatus is the ledger status of a payment
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// IsValid returns true if s is a known status
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusRefunded:
		return true
	}
	return false
}

// TransactionType distinguishes listing fees from artwork sales
type TransactionType string

const (
	TransactionTypeListingFee TransactionType = "listing_fee"
	TransactionTypeSale       TransactionType = "sale"
)

// IsValid returns true if t is a known type
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeListingFee || t == TransactionTypeSale
}

const (
	// Currency of every marketplace payment
	Currency = "eur"
	// ListingFeeAmount is the flat listing fee in cents
	ListingFeeAmount int64 = 100
	// SessionLifetime is how long a checkout session stays payable
	SessionLifetime = 24 * time.Hour
)

// CommissionRate is the platform share of a sale
var CommissionRate = decimal.RequireFromString("0.05")

// Commission splits amountCents into the platform share and the artist share.
// The platform share is rounded half up to whole cents.
func Commission(amountCents int64, rate decimal.Decimal) (platform, artist int64) {
	platform = decimal.NewFromInt(amountCents).Mul(rate).Round(0).IntPart()
	return platform, amountCents - platform
}

// Transaction is a ledger entry for a gateway payment. It is keyed by the
// checkout session that collects the money.
type Transaction struct {
	shared.BaseAggregateRoot
	BuyerID            *uuid.UUID
	SellerID           uuid.UUID
	ArtworkID          uuid.UUID
	Amount             int64
	Currency           string
	CheckoutSessionID  string
	PaymentIntentID    string
	Status             TransactionStatus
	Type               TransactionType
	PlatformCommission int64
	ArtistAmount       int64
	Timestamp          time.Time
	CompletedAt        *time.Time
	FailedAt           *time.Time
	FailureReason      string
	ReceiptURL         string
	PaymentMethod      string
	Metadata           map[string]string
}

// NewListingFeeTransaction records a pending listing fee paid by the artist
func NewListingFeeTransaction(artistID, artworkID uuid.UUID, sessionID string) (*Transaction, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	t := newTransaction(TransactionTypeListingFee, artistID, artworkID, sessionID, ListingFeeAmount)
	t.PlatformCommission = ListingFeeAmount
	return t, nil
}

// NewSaleTransaction records a pending artwork sale
func NewSaleTransaction(buyerID, sellerID, artworkID uuid.UUID, sessionID string, amount int64) (*Transaction, error) {
	if buyerID == uuid.Nil {
		return nil, shared.NewDomainError("BUYER_REQUIRED", "Buyer is required for sales")
	}
	if buyerID == sellerID {
		return nil, shared.NewDomainError("CANNOT_BUY_OWN_ARTWORK", "You cannot purchase your own artwork")
	}
	if amount <= 0 {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Sale amount must be positive")
	}
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	t := newTransaction(TransactionTypeSale, sellerID, artworkID, sessionID, amount)
	t.BuyerID = &buyerID
	t.PlatformCommission, t.ArtistAmount = Commission(amount, CommissionRate)
	return t, nil
}

func newTransaction(txType TransactionType, sellerID, artworkID uuid.UUID, sessionID string, amount int64) *Transaction {
	t := &Transaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SellerID:          sellerID,
		ArtworkID:         artworkID,
		Amount:            amount,
		Currency:          Currency,
		CheckoutSessionID: sessionID,
		Status:            TransactionStatusPending,
		Type:              txType,
		Metadata:          map[string]string{},
	}
	t.Timestamp = t.CreatedAt
	return t
}

// AttachPaymentIntent stores the payment intent once the gateway reports it
func (t *Transaction) AttachPaymentIntent(paymentIntentID string) {
	if paymentIntentID == "" || t.PaymentIntentID == paymentIntentID {
		return
	}
	t.PaymentIntentID = paymentIntentID
	t.touch()
}

// Complete marks the payment as collected. It is allowed from pending and
// from failed (a late success after a failure report). Completing an already
// completed transaction is a no-op and returns false.
func (t *Transaction) Complete(paymentIntentID, receiptURL, paymentMethod string, now time.Time) (bool, error) {
	switch t.Status {
	case TransactionStatusCompleted:
		return false, nil
	case TransactionStatusRefunded:
		return false, shared.NewDomainError("INVALID_STATE", "Cannot complete a refunded transaction")
	}
	if paymentIntentID != "" {
		t.PaymentIntentID = paymentIntentID
	}
	if receiptURL != "" {
		t.ReceiptURL = receiptURL
	}
	if paymentMethod != "" {
		t.PaymentMethod = paymentMethod
	}
	t.Status = TransactionStatusCompleted
	t.CompletedAt = &now
	t.FailedAt = nil
	t.FailureReason = ""
	t.touch()
	t.AddDomainEvent(NewPaymentCompletedEvent(t))
	return true, nil
}

// MetadataRefundReason is the metadata key set on completed payments that
// must be refunded
const MetadataRefundReason = "refundReason"

// RequireRefund flags a completed payment that could not be fulfilled. The
// pending confirmation event is replaced by a RefundRequiredEvent.
func (t *Transaction) RequireRefund(reason string) {
	if t.Status != TransactionStatusCompleted {
		return
	}
	pending := t.PullDomainEvents()
	for _, e := range pending {
		if e.EventType() != EventTypePaymentCompleted {
			t.AddDomainEvent(e)
		}
	}
	if t.Metadata == nil {
		t.Metadata = make(map[string]string)
	}
	t.Metadata[MetadataRefundReason] = reason
	t.AddDomainEvent(NewRefundRequiredEvent(t, reason))
}

// NeedsRefund returns true if the payment was flagged for a refund
func (t *Transaction) NeedsRefund() bool {
	_, ok := t.Metadata[MetadataRefundReason]
	return ok
}

// Fail marks a pending payment as failed and schedules the failure job.
// Failures reported for non-pending transactions are ignored and return false.
func (t *Transaction) Fail(reason string, now time.Time) bool {
	if !t.markFailed(reason, now) {
		return false
	}
	t.AddDomainEvent(NewPaymentFailedEvent(t))
	return true
}

// Expire fails a pending payment whose checkout session lapsed without notifying anyone
func (t *Transaction) Expire(now time.Time) bool {
	return t.markFailed("checkout session expired", now)
}

func (t *Transaction) markFailed(reason string, now time.Time) bool {
	if t.Status != TransactionStatusPending {
		return false
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "payment failed"
	}
	t.Status = TransactionStatusFailed
	t.FailedAt = &now
	t.FailureReason = reason
	t.touch()
	return true
}

// Refund reverses a completed payment
func (t *Transaction) Refund(now time.Time) error {
	if t.Status != TransactionStatusCompleted {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot refund a %s transaction", t.Status)
	}
	t.Status = TransactionStatusRefunded
	t.touch()
	return nil
}

// InvolvesUser returns true if userID is the buyer or the seller
func (t *Transaction) InvolvesUser(userID uuid.UUID) bool {
	return t.SellerID == userID || (t.BuyerID != nil && *t.BuyerID == userID)
}

// IsCompleted returns true for completed transactions
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

// AmountEuros returns the amount as a decimal euro value
func (t *Transaction) AmountEuros() decimal.Decimal {
	return decimal.New(t.Amount, -2)
}

func (t *Transaction) touch() {
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

func validateSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return shared.NewDomainError("SESSION_REQUIRED", "Checkout session is required")
	}
	return nil
}
