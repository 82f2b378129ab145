package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// TransactionModel is the persistence model for the Transaction aggregate.
type TransactionModel struct {
	AggregateModel
	BuyerID            *uuid.UUID                `gorm:"type:uuid;index"`
	SellerID           uuid.UUID                 `gorm:"type:uuid;not null;index"`
	ArtworkID          uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Amount             int64                     `gorm:"not null"`
	Currency           string                    `gorm:"type:varchar(3);not null;default:'eur'"`
	CheckoutSessionID  string                    `gorm:"type:varchar(255);not null;uniqueIndex"`
	PaymentIntentID    string                    `gorm:"type:varchar(255);index"`
	Status             payment.TransactionStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	Type               payment.TransactionType   `gorm:"type:varchar(20);not null;index"`
	PlatformCommission int64                     `gorm:"not null;default:0"`
	ArtistAmount       int64                     `gorm:"not null;default:0"`
	Timestamp          time.Time                 `gorm:"column:transacted_at;not null;index"`
	CompletedAt        *time.Time
	FailedAt           *time.Time
	FailureReason      string            `gorm:"type:text"`
	ReceiptURL         string            `gorm:"type:varchar(500)"`
	PaymentMethod      string            `gorm:"type:varchar(50)"`
	Metadata           map[string]string `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *TransactionModel) ToDomain() *payment.Transaction {
	metadata := m.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &payment.Transaction{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		BuyerID:            m.BuyerID,
		SellerID:           m.SellerID,
		ArtworkID:          m.ArtworkID,
		Amount:             m.Amount,
		Currency:           m.Currency,
		CheckoutSessionID:  m.CheckoutSessionID,
		PaymentIntentID:    m.PaymentIntentID,
		Status:             m.Status,
		Type:               m.Type,
		PlatformCommission: m.PlatformCommission,
		ArtistAmount:       m.ArtistAmount,
		Timestamp:          m.Timestamp,
		CompletedAt:        m.CompletedAt,
		FailedAt:           m.FailedAt,
		FailureReason:      m.FailureReason,
		ReceiptURL:         m.ReceiptURL,
		PaymentMethod:      m.PaymentMethod,
		Metadata:           metadata,
	}
}

// FromDomain populates the persistence model from a domain Transaction.
func (m *TransactionModel) FromDomain(t *payment.Transaction) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.BuyerID = t.BuyerID
	m.SellerID = t.SellerID
	m.ArtworkID = t.ArtworkID
	m.Amount = t.Amount
	m.Currency = t.Currency
	m.CheckoutSessionID = t.CheckoutSessionID
	m.PaymentIntentID = t.PaymentIntentID
	m.Status = t.Status
	m.Type = t.Type
	m.PlatformCommission = t.PlatformCommission
	m.ArtistAmount = t.ArtistAmount
	m.Timestamp = t.Timestamp
	m.CompletedAt = t.CompletedAt
	m.FailedAt = t.FailedAt
	m.FailureReason = t.FailureReason
	m.ReceiptURL = t.ReceiptURL
	m.PaymentMethod = t.PaymentMethod
	m.Metadata = t.Metadata
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction.
func TransactionModelFromDomain(t *payment.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(t)
	return m
}

// ListingPaymentModel is the persistence model for listing fee payments.
type ListingPaymentModel struct {
	BaseModel
	ArtistID          uuid.UUID                    `gorm:"type:uuid;not null;index"`
	ArtworkID         uuid.UUID                    `gorm:"type:uuid;not null;index"`
	CheckoutSessionID string                       `gorm:"type:varchar(255);not null;uniqueIndex"`
	PaymentIntentID   string                       `gorm:"type:varchar(255)"`
	Amount            int64                        `gorm:"not null;default:100"`
	Status            payment.ListingPaymentStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	PaidAt            *time.Time
}

// TableName returns the table name for GORM
func (ListingPaymentModel) TableName() string {
	return "listing_payments"
}

// ToDomain converts the persistence model to a domain ListingPayment.
func (m *ListingPaymentModel) ToDomain() *payment.ListingPayment {
	return &payment.ListingPayment{
		BaseEntity:        shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ArtistID:          m.ArtistID,
		ArtworkID:         m.ArtworkID,
		CheckoutSessionID: m.CheckoutSessionID,
		PaymentIntentID:   m.PaymentIntentID,
		Amount:            m.Amount,
		Status:            m.Status,
		PaidAt:            m.PaidAt,
	}
}

// ListingPaymentModelFromDomain creates a new persistence model from a domain ListingPayment.
func ListingPaymentModelFromDomain(p *payment.ListingPayment) *ListingPaymentModel {
	m := &ListingPaymentModel{
		ArtistID:          p.ArtistID,
		ArtworkID:         p.ArtworkID,
		CheckoutSessionID: p.CheckoutSessionID,
		PaymentIntentID:   p.PaymentIntentID,
		Amount:            p.Amount,
		Status:            p.Status,
		PaidAt:            p.PaidAt,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
