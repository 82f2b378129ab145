package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	// Create stores a new transaction
	Create(ctx context.Context, t *Transaction) error

	// Update persists changes to a transaction
	Update(ctx context.Context, t *Transaction) error

	// FindByID finds a transaction by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindByCheckoutSessionForUpdate finds and row-locks the transaction of a checkout session
	FindByCheckoutSessionForUpdate(ctx context.Context, sessionID string) (*Transaction, error)

	// FindByPaymentIntentForUpdate finds and row-locks the transaction of a payment intent
	FindByPaymentIntentForUpdate(ctx context.Context, paymentIntentID string) (*Transaction, error)

	// FindAll returns transactions matching the filter with the total count
	FindAll(ctx context.Context, filter TransactionFilter) ([]*Transaction, int64, error)

	// FindPendingBefore returns pending transactions created before the cutoff
	FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]*Transaction, error)

	// HasOpenSale reports whether another buyer holds a pending sale for the artwork created after since
	HasOpenSale(ctx context.Context, artworkID, exceptBuyerID uuid.UUID, since time.Time) (bool, error)

	// StatsForUser aggregates completed transactions of a buyer or seller
	StatsForUser(ctx context.Context, userID uuid.UUID) (*UserStats, error)

	// PlatformRevenue aggregates completed transactions platform-wide
	PlatformRevenue(ctx context.Context) (*RevenueSummary, error)
}

// ListingPaymentRepository defines the interface for listing fee persistence
type ListingPaymentRepository interface {
	Create(ctx context.Context, p *ListingPayment) error
	Update(ctx context.Context, p *ListingPayment) error

	// FindByCheckoutSessionForUpdate finds and row-locks the listing payment of a session
	FindByCheckoutSessionForUpdate(ctx context.Context, sessionID string) (*ListingPayment, error)

	// HasCompleted reports whether the artwork's listing fee has been paid
	HasCompleted(ctx context.Context, artworkID uuid.UUID) (bool, error)

	// DeleteUnfinishedByArtwork removes pending and failed listing payments of an artwork
	DeleteUnfinishedByArtwork(ctx context.Context, artworkID uuid.UUID) (int64, error)
}

// TransactionFilter contains filter options for querying transactions
type TransactionFilter struct {
	shared.ListOptions

	// UserID restricts to transactions where the user is buyer or seller
	UserID *uuid.UUID

	Type   *TransactionType
	Status *TransactionStatus
}

// UserStats aggregates the completed transactions of one user. Amounts are cents.
type UserStats struct {
	TotalTransactions int64 `json:"totalTransactions"`
	TotalSpent        int64 `json:"totalSpent"`
	TotalEarned       int64 `json:"totalEarned"`
	SalesCount        int64 `json:"salesCount"`
	PurchasesCount    int64 `json:"purchasesCount"`
	ListingFeesCount  int64 `json:"listingFeesCount"`
}

// RevenueSummary aggregates platform revenue. Amounts are cents.
type RevenueSummary struct {
	TotalTransactions     int64 `json:"totalTransactions"`
	CompletedTransactions int64 `json:"completedTransactions"`
	PendingTransactions   int64 `json:"pendingTransactions"`
	SalesVolume           int64 `json:"salesVolume"`
	SalesCount            int64 `json:"salesCount"`
	Commission            int64 `json:"commission"`
	ListingFees           int64 `json:"listingFees"`
}
