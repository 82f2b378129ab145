package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// ArtworkRepository defines the interface for artwork persistence
type ArtworkRepository interface {
	// Create persists a new artwork with its tags
	Create(ctx context.Context, artwork *Artwork) error

	// Update persists changes to an artwork
	Update(ctx context.Context, artwork *Artwork) error

	// Delete removes an artwork
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds an artwork by ID regardless of status
	FindByID(ctx context.Context, id uuid.UUID) (*Artwork, error)

	// FindByIDForUpdate finds an artwork and locks its row for the current transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Artwork, error)

	// FindAll returns artworks matching the filter with the total count
	FindAll(ctx context.Context, filter ArtworkFilter) ([]*Artwork, int64, error)

	// Stats returns artwork counts, optionally for one artist
	Stats(ctx context.Context, artistID *uuid.UUID) (*ArtworkStats, error)

	// TopArtists ranks artists by revenue of sold artworks since the given time
	TopArtists(ctx context.Context, since *time.Time, limit int) ([]ArtistSales, error)

	// TopArtworks lists sold artworks by price, optionally for one medium
	TopArtworks(ctx context.Context, since *time.Time, medium string, limit int) ([]*Artwork, error)

	// TopCategories ranks media by number of sales
	TopCategories(ctx context.Context, since *time.Time, limit int) ([]CategorySales, error)
}

// ArtworkFilter contains filter options for querying artworks
type ArtworkFilter struct {
	shared.ListOptions

	// Statuses restricts the moderation status; empty means any
	Statuses []ArtworkStatus

	ArtistID *uuid.UUID
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal

	// Tags matches artworks carrying any of the tags
	Tags []string

	// Search matches title, description or tags case-insensitively
	Search string
}

// ArtworkStats holds artwork counts and price aggregates
type ArtworkStats struct {
	TotalArtworks    int64           `json:"totalArtworks"`
	ApprovedArtworks int64           `json:"approvedArtworks"`
	PendingArtworks  int64           `json:"pendingArtworks"`
	RejectedArtworks int64           `json:"rejectedArtworks"`
	SoldArtworks     int64           `json:"soldArtworks"`
	AveragePrice     decimal.Decimal `json:"averagePrice"`
	TotalValue       decimal.Decimal `json:"totalValue"`
}

// ArtistSales is a per-artist aggregate of sold artworks
type ArtistSales struct {
	ArtistID     uuid.UUID       `json:"artistId"`
	TotalSales   int64           `json:"totalSales"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	MinPrice     decimal.Decimal `json:"minPrice"`
	MaxPrice     decimal.Decimal `json:"maxPrice"`
}

// CategorySales is a per-medium aggregate of sold artworks
type CategorySales struct {
	Category      string          `json:"category"`
	TotalSales    int64           `json:"totalSales"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	AveragePrice  decimal.Decimal `json:"averagePrice"`
	UniqueArtists int64           `json:"uniqueArtists"`
}
