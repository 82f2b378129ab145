package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
)

// ArtworkModel is the persistence model for the Artwork aggregate.
// Tags live in artwork_tags and are loaded by the repository.
type ArtworkModel struct {
	AggregateModel
	Title       string          `gorm:"type:varchar(200);not null"`
	Description string          `gorm:"type:text;not null"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;index"`
	Images      []string        `gorm:"type:jsonb;serializer:json;not null"`
	Medium      string          `gorm:"type:varchar(100);index"`

	DimensionWidth  *float64
	DimensionHeight *float64
	DimensionUnit   string `gorm:"type:varchar(2)"`

	Year          *int
	IsOriginal    bool `gorm:"not null;default:true"`
	EditionNumber *int
	EditionTotal  *int

	ArtistID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CurrentOwnerID uuid.UUID `gorm:"type:uuid;not null;index"`

	ListingFeeStatus        catalog.ListingFeeStatus `gorm:"type:varchar(20);not null;default:'unpaid'"`
	ListingFeePaymentIntent string                   `gorm:"type:varchar(255)"`
	ListingFeePaidAt        *time.Time

	Status          catalog.ArtworkStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason string     `gorm:"type:text"`
	SoldAt          *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (ArtworkModel) TableName() string {
	return "artworks"
}

// ToDomain converts the persistence model to a domain Artwork.
func (m *ArtworkModel) ToDomain(tags []string) *catalog.Artwork {
	if tags == nil {
		tags = make([]string, 0)
	}
	images := m.Images
	if images == nil {
		images = make([]string, 0)
	}
	a := &catalog.Artwork{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Details: catalog.Details{
			Title:       m.Title,
			Description: m.Description,
			Price:       m.Price,
			Images:      images,
			Tags:        tags,
			Medium:      m.Medium,
			Year:        m.Year,
			IsOriginal:  m.IsOriginal,
		},
		ArtistID:                m.ArtistID,
		CurrentOwnerID:          m.CurrentOwnerID,
		ListingFeeStatus:        m.ListingFeeStatus,
		ListingFeePaymentIntent: m.ListingFeePaymentIntent,
		ListingFeePaidAt:        m.ListingFeePaidAt,
		Status:                  m.Status,
		ApprovedAt:              m.ApprovedAt,
		RejectedAt:              m.RejectedAt,
		RejectionReason:         m.RejectionReason,
		SoldAt:                  m.SoldAt,
	}
	if m.DimensionWidth != nil && m.DimensionHeight != nil {
		a.Dimensions = &catalog.Dimensions{
			Width:  *m.DimensionWidth,
			Height: *m.DimensionHeight,
			Unit:   catalog.DimensionUnit(m.DimensionUnit),
		}
	}
	if m.EditionNumber != nil && m.EditionTotal != nil {
		a.Edition = &catalog.Edition{Number: *m.EditionNumber, Total: *m.EditionTotal}
	}
	return a
}

// FromDomain populates the persistence model from a domain Artwork.
func (m *ArtworkModel) FromDomain(a *catalog.Artwork) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.Title = a.Title
	m.Description = a.Description
	m.Price = a.Price
	m.Images = a.Images
	m.Medium = a.Medium
	m.DimensionWidth, m.DimensionHeight, m.DimensionUnit = nil, nil, ""
	if a.Dimensions != nil {
		w, h := a.Dimensions.Width, a.Dimensions.Height
		m.DimensionWidth = &w
		m.DimensionHeight = &h
		m.DimensionUnit = string(a.Dimensions.Unit)
	}
	m.Year = a.Year
	m.IsOriginal = a.IsOriginal
	m.EditionNumber, m.EditionTotal = nil, nil
	if a.Edition != nil {
		n, t := a.Edition.Number, a.Edition.Total
		m.EditionNumber = &n
		m.EditionTotal = &t
	}
	m.ArtistID = a.ArtistID
	m.CurrentOwnerID = a.CurrentOwnerID
	m.ListingFeeStatus = a.ListingFeeStatus
	m.ListingFeePaymentIntent = a.ListingFeePaymentIntent
	m.ListingFeePaidAt = a.ListingFeePaidAt
	m.Status = a.Status
	m.ApprovedAt = a.ApprovedAt
	m.RejectedAt = a.RejectedAt
	m.RejectionReason = a.RejectionReason
	m.SoldAt = a.SoldAt
}

// ArtworkModelFromDomain creates a new persistence model from a domain Artwork.
func ArtworkModelFromDomain(a *catalog.Artwork) *ArtworkModel {
	m := &ArtworkModel{}
	m.FromDomain(a)
	return m
}

// ArtworkTagModel is one tag of an artwork.
type ArtworkTagModel struct {
	ArtworkID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Tag       string    `gorm:"type:varchar(50);primaryKey;index"`
}

// TableName returns the table name for GORM
func (ArtworkTagModel) TableName() string {
	return "artwork_tags"
}
