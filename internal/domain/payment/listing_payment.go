package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// ListingPaymentStatus is the status of a listing fee payment
type ListingPaymentStatus string

const (
	ListingPaymentPending   ListingPaymentStatus = "pending"
	ListingPaymentCompleted ListingPaymentStatus = "completed"
	ListingPaymentFailed    ListingPaymentStatus = "failed"
)

// ListingPayment tracks the listing fee checkout of one artwork
type ListingPayment struct {
	shared.BaseEntity
	ArtistID          uuid.UUID
	ArtworkID         uuid.UUID
	CheckoutSessionID string
	PaymentIntentID   string
	Amount            int64
	Status            ListingPaymentStatus
	PaidAt            *time.Time
}

// NewListingPayment creates a pending listing fee payment
func NewListingPayment(artistID, artworkID uuid.UUID, sessionID string) (*ListingPayment, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	return &ListingPayment{
		BaseEntity:        shared.NewBaseEntity(),
		ArtistID:          artistID,
		ArtworkID:         artworkID,
		CheckoutSessionID: sessionID,
		Amount:            ListingFeeAmount,
		Status:            ListingPaymentPending,
	}, nil
}

// Complete marks the fee as paid; returns false if it already was
func (p *ListingPayment) Complete(paymentIntentID string, now time.Time) bool {
	if p.Status == ListingPaymentCompleted {
		return false
	}
	if paymentIntentID != "" {
		p.PaymentIntentID = paymentIntentID
	}
	p.Status = ListingPaymentCompleted
	p.PaidAt = &now
	p.Touch()
	return true
}

// Fail marks a pending fee as failed; returns false otherwise
func (p *ListingPayment) Fail() bool {
	if p.Status != ListingPaymentPending {
		return false
	}
	p.Status = ListingPaymentFailed
	p.Touch()
	return true
}
