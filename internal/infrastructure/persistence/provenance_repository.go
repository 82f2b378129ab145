package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/provenance"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProvenanceRepository implements the append-only RecordRepository using GORM
type GormProvenanceRepository struct {
	db *gorm.DB
}

// NewGormProvenanceRepository creates a new GormProvenanceRepository
func NewGormProvenanceRepository(db *gorm.DB) *GormProvenanceRepository {
	return &GormProvenanceRepository{db: db}
}

// Append stores a new record
func (r *GormProvenanceRepository) Append(ctx context.Context, record *provenance.Record) error {
	err := r.db.WithContext(ctx).Create(models.ProvenanceRecordModelFromDomain(record)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// ListByArtwork returns the chain of an artwork, oldest first
func (r *GormProvenanceRepository) ListByArtwork(ctx context.Context, artworkID uuid.UUID) ([]*provenance.Record, error) {
	var rows []*models.ProvenanceRecordModel
	if err := r.db.WithContext(ctx).
		Where("artwork_id = ?", artworkID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]*provenance.Record, len(rows))
	for i, row := range rows {
		records[i] = row.ToDomain()
	}
	return records, nil
}

// FindByHash finds a record by its transaction hash
func (r *GormProvenanceRepository) FindByHash(ctx context.Context, hash string) (*provenance.Record, error) {
	return r.first(r.db.WithContext(ctx).Where("transaction_hash = ?", hash))
}

// Latest returns the newest record of an artwork
func (r *GormProvenanceRepository) Latest(ctx context.Context, artworkID uuid.UUID) (*provenance.Record, error) {
	return r.first(r.db.WithContext(ctx).
		Where("artwork_id = ?", artworkID).
		Order("created_at DESC"))
}

func (r *GormProvenanceRepository) first(query *gorm.DB) (*provenance.Record, error) {
	var row models.ProvenanceRecordModel
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// Ensure GormProvenanceRepository implements provenance.RecordRepository
var _ provenance.RecordRepository = (*GormProvenanceRepository)(nil)
