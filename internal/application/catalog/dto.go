package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// CreateArtworkInput contains the fields of a new listing
type CreateArtworkInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Images      []string
	Tags        []string
	Medium      string
	Dimensions  *catalog.Dimensions
	Year        *int
	IsOriginal  *bool
	Edition     *catalog.Edition
}

// UpdateArtworkInput is a partial update. Nil fields are left untouched.
type UpdateArtworkInput struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Images      []string
	Tags        []string
	Medium      *string
	Dimensions  *catalog.Dimensions
	Year        *int
	IsOriginal  *bool
	Edition     *catalog.Edition
}

// ListArtworksQuery filters artwork listings
type ListArtworksQuery struct {
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Sort     string           `json:"sort"`
	Status   string           `json:"status"`
	MinPrice *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice *decimal.Decimal `json:"maxPrice,omitempty"`
	ArtistID *uuid.UUID       `json:"artistId,omitempty"`
	Tags     []string         `json:"tags,omitempty"`
	Search   string           `json:"search,omitempty"`
}

// UploadImageInput is an image file sent by an artist
type UploadImageInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadImageResult is the stored image
type UploadImageResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        int    `json:"size"`
	ContentType string `json:"contentType"`
}

// ArtistSummary is the artist block embedded in artwork responses
type ArtistSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Bio      string    `json:"bio,omitempty"`
	Website  string    `json:"website,omitempty"`
}

// ArtworkResponse is the API view of an artwork
type ArtworkResponse struct {
	ID               uuid.UUID                `json:"id"`
	Title            string                   `json:"title"`
	Description      string                   `json:"description"`
	Price            decimal.Decimal          `json:"price"`
	Images           []string                 `json:"images"`
	Tags             []string                 `json:"tags"`
	Medium           string                   `json:"medium,omitempty"`
	Dimensions       *catalog.Dimensions      `json:"dimensions,omitempty"`
	Year             *int                     `json:"year,omitempty"`
	IsOriginal       bool                     `json:"isOriginal"`
	Edition          *catalog.Edition         `json:"edition,omitempty"`
	ArtistID         uuid.UUID                `json:"artistId"`
	Artist           *ArtistSummary           `json:"artist,omitempty"`
	CurrentOwnerID   uuid.UUID                `json:"currentOwnerId"`
	Status           catalog.ArtworkStatus    `json:"status"`
	ListingFeeStatus catalog.ListingFeeStatus `json:"listingFeeStatus"`
	ListingFeePaidAt *time.Time               `json:"listingFeePaidAt,omitempty"`
	ApprovedAt       *time.Time               `json:"approvedAt,omitempty"`
	RejectedAt       *time.Time               `json:"rejectedAt,omitempty"`
	RejectionReason  string                   `json:"rejectionReason,omitempty"`
	IsSold           bool                     `json:"isSold"`
	SoldAt           *time.Time               `json:"soldAt,omitempty"`
	CreatedAt        time.Time                `json:"createdAt"`
	UpdatedAt        time.Time                `json:"updatedAt"`
}

// ArtworkPage is a page of artworks
type ArtworkPage = shared.Paginated[ArtworkResponse]

// ToArtworkResponse converts a domain artwork. artist may be nil.
func ToArtworkResponse(a *catalog.Artwork, artist *identity.User) ArtworkResponse {
	resp := ArtworkResponse{
		ID:               a.ID,
		Title:            a.Title,
		Description:      a.Description,
		Price:            a.Price,
		Images:           a.Images,
		Tags:             a.Tags,
		Medium:           a.Medium,
		Dimensions:       a.Dimensions,
		Year:             a.Year,
		IsOriginal:       a.IsOriginal,
		Edition:          a.Edition,
		ArtistID:         a.ArtistID,
		CurrentOwnerID:   a.CurrentOwnerID,
		Status:           a.Status,
		ListingFeeStatus: a.ListingFeeStatus,
		ListingFeePaidAt: a.ListingFeePaidAt,
		ApprovedAt:       a.ApprovedAt,
		RejectedAt:       a.RejectedAt,
		RejectionReason:  a.RejectionReason,
		IsSold:           a.IsSold(),
		SoldAt:           a.SoldAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if artist != nil {
		resp.Artist = &ArtistSummary{
			ID:       artist.ID,
			Username: artist.Username,
			Bio:      artist.Profile.Bio,
			Website:  artist.Profile.Website,
		}
	}
	return resp
}
