package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTransactionRepository implements payment.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create stores a new transaction
func (r *GormTransactionRepository) Create(ctx context.Context, t *payment.Transaction) error {
	err := r.db.WithContext(ctx).Create(models.TransactionModelFromDomain(t)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError("ALREADY_EXISTS", "A transaction for this checkout session already exists")
	}
	if err != nil {
		return err
	}
	t.MarkStored()
	return nil
}

// Update persists changes to a transaction with a version check
func (r *GormTransactionRepository) Update(ctx context.Context, t *payment.Transaction) error {
	model := models.TransactionModelFromDomain(t)
	model.Version = t.NextVersion()
	if err := updateVersioned(r.db.WithContext(ctx), model, t.ID, t.StoredVersion()); err != nil {
		return err
	}
	t.Version = model.Version
	t.MarkStored()
	return nil
}

// FindByID finds a transaction by ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByCheckoutSessionForUpdate finds and locks the transaction of a checkout session
func (r *GormTransactionRepository) FindByCheckoutSessionForUpdate(ctx context.Context, sessionID string) (*payment.Transaction, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("checkout_session_id = ?", sessionID))
}

// FindByPaymentIntentForUpdate finds and locks the transaction of a payment intent
func (r *GormTransactionRepository) FindByPaymentIntentForUpdate(ctx context.Context, paymentIntentID string) (*payment.Transaction, error) {
	if paymentIntentID == "" {
		return nil, shared.ErrNotFound
	}
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_intent_id = ?", paymentIntentID).
		Order("created_at DESC"))
}

func (r *GormTransactionRepository) first(query *gorm.DB) (*payment.Transaction, error) {
	var model models.TransactionModel
	if err := query.Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns transactions matching the filter with the total count
func (r *GormTransactionRepository) FindAll(ctx context.Context, filter payment.TransactionFilter) ([]*payment.Transaction, int64, error) {
	var rows []*models.TransactionModel
	var total int64

	query := r.db.WithContext(ctx).Model(&models.TransactionModel{})
	if filter.UserID != nil {
		query = query.Where("(buyer_id = ? OR seller_id = ?)", *filter.UserID, *filter.UserID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	opts := filter.ListOptions.Normalize(shared.DefaultPageSize)
	if err := query.
		Order(OrderClause(opts.Sort, TransactionSortFields, "transacted_at")).
		Offset(opts.Offset()).
		Limit(opts.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	transactions := make([]*payment.Transaction, len(rows))
	for i, row := range rows {
		transactions[i] = row.ToDomain()
	}
	return transactions, total, nil
}

// FindPendingBefore returns pending transactions created before the cutoff, oldest first
func (r *GormTransactionRepository) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]*payment.Transaction, error) {
	var rows []*models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", payment.TransactionStatusPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	transactions := make([]*payment.Transaction, len(rows))
	for i, row := range rows {
		transactions[i] = row.ToDomain()
	}
	return transactions, nil
}

// HasOpenSale reports whether another buyer holds a live pending sale for the artwork
func (r *GormTransactionRepository) HasOpenSale(ctx context.Context, artworkID, exceptBuyerID uuid.UUID, since time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("artwork_id = ? AND type = ? AND status = ? AND created_at >= ?",
			artworkID, payment.TransactionTypeSale, payment.TransactionStatusPending, since).
		Where("buyer_id <> ?", exceptBuyerID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// StatsForUser aggregates completed transactions of a buyer or seller.
// Spent counts purchases and the user's own listing fees; earned counts the
// artist share of the user's sales.
func (r *GormTransactionRepository) StatsForUser(ctx context.Context, userID uuid.UUID) (*payment.UserStats, error) {
	sale, fee := payment.TransactionTypeSale, payment.TransactionTypeListingFee
	var stats payment.UserStats
	err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select(`COUNT(*) AS total_transactions,
			COALESCE(SUM(CASE WHEN type = ? AND buyer_id = ? THEN amount
				WHEN type = ? AND seller_id = ? THEN amount ELSE 0 END), 0) AS total_spent,
			COALESCE(SUM(CASE WHEN type = ? AND seller_id = ? THEN artist_amount ELSE 0 END), 0) AS total_earned,
			COALESCE(SUM(CASE WHEN type = ? AND seller_id = ? THEN 1 ELSE 0 END), 0) AS sales_count,
			COALESCE(SUM(CASE WHEN type = ? AND buyer_id = ? THEN 1 ELSE 0 END), 0) AS purchases_count,
			COALESCE(SUM(CASE WHEN type = ? AND seller_id = ? THEN 1 ELSE 0 END), 0) AS listing_fees_count`,
			sale, userID, fee, userID,
			sale, userID,
			sale, userID,
			sale, userID,
			fee, userID).
		Where("status = ? AND (buyer_id = ? OR seller_id = ?)", payment.TransactionStatusCompleted, userID, userID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// PlatformRevenue aggregates transactions platform-wide
func (r *GormTransactionRepository) PlatformRevenue(ctx context.Context) (*payment.RevenueSummary, error) {
	completed, pending := payment.TransactionStatusCompleted, payment.TransactionStatusPending
	sale, fee := payment.TransactionTypeSale, payment.TransactionTypeListingFee
	var summary payment.RevenueSummary
	err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select(`COUNT(*) AS total_transactions,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed_transactions,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending_transactions,
			COALESCE(SUM(CASE WHEN status = ? AND type = ? THEN amount ELSE 0 END), 0) AS sales_volume,
			COALESCE(SUM(CASE WHEN status = ? AND type = ? THEN 1 ELSE 0 END), 0) AS sales_count,
			COALESCE(SUM(CASE WHEN status = ? AND type = ? THEN platform_commission ELSE 0 END), 0) AS commission,
			COALESCE(SUM(CASE WHEN status = ? AND type = ? THEN amount ELSE 0 END), 0) AS listing_fees`,
			completed, pending,
			completed, sale,
			completed, sale,
			completed, sale,
			completed, fee).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Ensure GormTransactionRepository implements payment.TransactionRepository
var _ payment.TransactionRepository = (*GormTransactionRepository)(nil)
