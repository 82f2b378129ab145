package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormListingPaymentRepository implements payment.ListingPaymentRepository using GORM
type GormListingPaymentRepository struct {
	db *gorm.DB
}

// NewGormListingPaymentRepository creates a new GormListingPaymentRepository
func NewGormListingPaymentRepository(db *gorm.DB) *GormListingPaymentRepository {
	return &GormListingPaymentRepository{db: db}
}

// Create stores a new listing payment
func (r *GormListingPaymentRepository) Create(ctx context.Context, p *payment.ListingPayment) error {
	return r.db.WithContext(ctx).Create(models.ListingPaymentModelFromDomain(p)).Error
}

// Update persists changes to a listing payment
func (r *GormListingPaymentRepository) Update(ctx context.Context, p *payment.ListingPayment) error {
	result := r.db.WithContext(ctx).
		Model(&models.ListingPaymentModel{}).
		Where("id = ?", p.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(models.ListingPaymentModelFromDomain(p))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByCheckoutSessionForUpdate finds and locks the listing payment of a session
func (r *GormListingPaymentRepository) FindByCheckoutSessionForUpdate(ctx context.Context, sessionID string) (*payment.ListingPayment, error) {
	var model models.ListingPaymentModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("checkout_session_id = ?", sessionID).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// HasCompleted reports whether the artwork's listing fee has been paid
func (r *GormListingPaymentRepository) HasCompleted(ctx context.Context, artworkID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ListingPaymentModel{}).
		Where("artwork_id = ? AND status = ?", artworkID, payment.ListingPaymentCompleted).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteUnfinishedByArtwork removes pending and failed listing payments of an artwork
func (r *GormListingPaymentRepository) DeleteUnfinishedByArtwork(ctx context.Context, artworkID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("artwork_id = ? AND status <> ?", artworkID, payment.ListingPaymentCompleted).
		Delete(&models.ListingPaymentModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormListingPaymentRepository implements payment.ListingPaymentRepository
var _ payment.ListingPaymentRepository = (*GormListingPaymentRepository)(nil)
