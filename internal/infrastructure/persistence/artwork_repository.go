package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormArtworkRepository implements ArtworkRepository using GORM
type GormArtworkRepository struct {
	db *gorm.DB
}

// NewGormArtworkRepository creates a new GormArtworkRepository
func NewGormArtworkRepository(db *gorm.DB) *GormArtworkRepository {
	return &GormArtworkRepository{db: db}
}

// Create persists a new artwork with its tags
func (r *GormArtworkRepository) Create(ctx context.Context, artwork *catalog.Artwork) error {
	model := models.ArtworkModelFromDomain(artwork)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return saveTags(tx, artwork)
	})
	if err != nil {
		return err
	}
	artwork.MarkStored()
	return nil
}

// Update persists changes to an artwork and replaces its tags. It returns
// shared.ErrConcurrencyConflict when the row changed since the artwork was loaded.
func (r *GormArtworkRepository) Update(ctx context.Context, artwork *catalog.Artwork) error {
	model := models.ArtworkModelFromDomain(artwork)
	model.Version = artwork.NextVersion()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, model, artwork.ID, artwork.StoredVersion()); err != nil {
			return err
		}
		if err := tx.Where("artwork_id = ?", artwork.ID).Delete(&models.ArtworkTagModel{}).Error; err != nil {
			return err
		}
		return saveTags(tx, artwork)
	})
	if err != nil {
		return err
	}
	artwork.Version = model.Version
	artwork.MarkStored()
	return nil
}

func saveTags(tx *gorm.DB, artwork *catalog.Artwork) error {
	if len(artwork.Tags) == 0 {
		return nil
	}
	tags := make([]models.ArtworkTagModel, len(artwork.Tags))
	for i, tag := range artwork.Tags {
		tags[i] = models.ArtworkTagModel{ArtworkID: artwork.ID, Tag: tag}
	}
	return tx.Create(&tags).Error
}

// Delete removes an artwork and its tags
func (r *GormArtworkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("artwork_id = ?", id).Delete(&models.ArtworkTagModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ArtworkModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByID finds an artwork by ID
func (r *GormArtworkRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Artwork, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate finds an artwork and locks its row until the transaction ends
func (r *GormArtworkRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Artwork, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *GormArtworkRepository) first(ctx context.Context, query *gorm.DB) (*catalog.Artwork, error) {
	var model models.ArtworkModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	artworks, err := r.toDomain(ctx, []*models.ArtworkModel{&model})
	if err != nil {
		return nil, err
	}
	return artworks[0], nil
}

// toDomain converts models and attaches their tags
func (r *GormArtworkRepository) toDomain(ctx context.Context, artworkModels []*models.ArtworkModel) ([]*catalog.Artwork, error) {
	artworks := make([]*catalog.Artwork, len(artworkModels))
	if len(artworkModels) == 0 {
		return artworks, nil
	}
	ids := make([]uuid.UUID, len(artworkModels))
	for i, m := range artworkModels {
		ids[i] = m.ID
	}

	var tagRows []models.ArtworkTagModel
	if err := r.db.WithContext(ctx).
		Where("artwork_id IN ?", ids).
		Order("tag ASC").
		Find(&tagRows).Error; err != nil {
		return nil, err
	}
	tags := make(map[uuid.UUID][]string, len(artworkModels))
	for _, t := range tagRows {
		tags[t.ArtworkID] = append(tags[t.ArtworkID], t.Tag)
	}

	for i, m := range artworkModels {
		artworks[i] = m.ToDomain(tags[m.ID])
	}
	return artworks, nil
}

// FindAll returns artworks matching the filter with the total count
func (r *GormArtworkRepository) FindAll(ctx context.Context, filter catalog.ArtworkFilter) ([]*catalog.Artwork, int64, error) {
	var artworkModels []*models.ArtworkModel
	var total int64

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ArtworkModel{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	opts := filter.ListOptions.Normalize(shared.DefaultPageSize)
	if err := query.
		Order(OrderClause(opts.Sort, ArtworkSortFields, "created_at")).
		Offset(opts.Offset()).
		Limit(opts.Limit).
		Find(&artworkModels).Error; err != nil {
		return nil, 0, err
	}

	artworks, err := r.toDomain(ctx, artworkModels)
	if err != nil {
		return nil, 0, err
	}
	return artworks, total, nil
}

func (r *GormArtworkRepository) applyFilter(query *gorm.DB, filter catalog.ArtworkFilter) *gorm.DB {
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.ArtistID != nil {
		query = query.Where("artist_id = ?", *filter.ArtistID)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if len(filter.Tags) > 0 {
		tags := make([]string, 0, len(filter.Tags))
		for _, t := range filter.Tags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				tags = append(tags, t)
			}
		}
		if len(tags) > 0 {
			query = query.Where("EXISTS (SELECT 1 FROM artwork_tags WHERE artwork_tags.artwork_id = artworks.id AND artwork_tags.tag IN ?)", tags)
		}
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR EXISTS (SELECT 1 FROM artwork_tags WHERE artwork_tags.artwork_id = artworks.id AND artwork_tags.tag LIKE ?)",
			pattern, pattern, pattern,
		)
	}
	return query
}

// Stats returns artwork counts, optionally for one artist
func (r *GormArtworkRepository) Stats(ctx context.Context, artistID *uuid.UUID) (*catalog.ArtworkStats, error) {
	var row struct {
		Total        int64
		Approved     int64
		Pending      int64
		Rejected     int64
		Sold         int64
		AveragePrice decimal.Decimal
		TotalValue   decimal.Decimal
	}
	query := r.db.WithContext(ctx).
		Model(&models.ArtworkModel{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS approved,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS rejected,
			COALESCE(SUM(CASE WHEN sold_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS sold,
			COALESCE(AVG(price), 0) AS average_price,
			COALESCE(SUM(price), 0) AS total_value`,
			catalog.ArtworkStatusApproved, catalog.ArtworkStatusPending, catalog.ArtworkStatusRejected)
	if artistID != nil {
		query = query.Where("artist_id = ?", *artistID)
	}
	if err := query.Scan(&row).Error; err != nil {
		return nil, err
	}
	return &catalog.ArtworkStats{
		TotalArtworks:    row.Total,
		ApprovedArtworks: row.Approved,
		PendingArtworks:  row.Pending,
		RejectedArtworks: row.Rejected,
		SoldArtworks:     row.Sold,
		AveragePrice:     row.AveragePrice.Round(2),
		TotalValue:       row.TotalValue.Round(2),
	}, nil
}

// soldScope restricts to approved artworks sold since the given time
func (r *GormArtworkRepository) soldScope(ctx context.Context, since *time.Time) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.ArtworkModel{}).
		Where("sold_at IS NOT NULL AND status = ?", catalog.ArtworkStatusApproved)
	if since != nil {
		query = query.Where("sold_at >= ?", *since)
	}
	return query
}

// TopArtists ranks artists by revenue of sold artworks
func (r *GormArtworkRepository) TopArtists(ctx context.Context, since *time.Time, limit int) ([]catalog.ArtistSales, error) {
	var rows []catalog.ArtistSales
	err := r.soldScope(ctx, since).
		Select(`artist_id,
			COUNT(*) AS total_sales,
			SUM(price) AS total_revenue,
			AVG(price) AS average_price,
			MIN(price) AS min_price,
			MAX(price) AS max_price`).
		Group("artist_id").
		Order("total_revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].AveragePrice = rows[i].AveragePrice.Round(2)
	}
	return rows, nil
}

// TopArtworks lists sold artworks by price, optionally for one medium
func (r *GormArtworkRepository) TopArtworks(ctx context.Context, since *time.Time, medium string, limit int) ([]*catalog.Artwork, error) {
	query := r.soldScope(ctx, since)
	if medium = strings.TrimSpace(medium); medium != "" {
		query = query.Where("LOWER(medium) = ?", strings.ToLower(medium))
	}
	var artworkModels []*models.ArtworkModel
	if err := query.Order("price DESC, sold_at DESC").Limit(limit).Find(&artworkModels).Error; err != nil {
		return nil, err
	}
	return r.toDomain(ctx, artworkModels)
}

// TopCategories ranks media by number of sales
func (r *GormArtworkRepository) TopCategories(ctx context.Context, since *time.Time, limit int) ([]catalog.CategorySales, error) {
	var rows []catalog.CategorySales
	err := r.soldScope(ctx, since).
		Where("medium IS NOT NULL AND medium <> ''").
		Select(`medium AS category,
			COUNT(*) AS total_sales,
			SUM(price) AS total_revenue,
			AVG(price) AS average_price,
			COUNT(DISTINCT artist_id) AS unique_artists`).
		Group("medium").
		Order("total_sales DESC, total_revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].AveragePrice = rows[i].AveragePrice.Round(2)
	}
	return rows, nil
}

// Ensure GormArtworkRepository implements catalog.ArtworkRepository
var _ catalog.ArtworkRepository = (*GormArtworkRepository)(nil)
