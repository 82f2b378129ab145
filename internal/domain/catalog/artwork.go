package catalog

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// ArtworkStatus is the moderation status of an artwork
type ArtworkStatus string

const (
	ArtworkStatusPending  ArtworkStatus = "pending"
	ArtworkStatusApproved ArtworkStatus = "approved"
	ArtworkStatusRejected ArtworkStatus = "rejected"
)

// IsValid returns true if s is a known status
func (s ArtworkStatus) IsValid() bool {
	switch s {
	case ArtworkStatusPending, ArtworkStatusApproved, ArtworkStatusRejected:
		return true
	}
	return false
}

// ListingFeeStatus tracks payment of the listing fee
type ListingFeeStatus string

const (
	ListingFeeUnpaid  ListingFeeStatus = "unpaid"
	ListingFeePending ListingFeeStatus = "pending"
	ListingFeePaid    ListingFeeStatus = "paid"
	ListingFeeFailed  ListingFeeStatus = "failed"
)

// DimensionUnit is cm or in
type DimensionUnit string

const (
	DimensionUnitCM DimensionUnit = "cm"
	DimensionUnitIN DimensionUnit = "in"
)

// Dimensions of a physical artwork
type Dimensions struct {
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Unit   DimensionUnit `json:"unit"`
}

// Edition of a print run
type Edition struct {
	Number int `json:"number"`
	Total  int `json:"total"`
}

// Details are the artist-editable attributes of an artwork
type Details struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Images      []string
	Tags        []string
	Medium      string
	Dimensions  *Dimensions
	Year        *int
	IsOriginal  bool
	Edition     *Edition
}

// Patch is a partial update of Details. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Images      []string
	Tags        []string
	Medium      *string
	Dimensions  *Dimensions
	Year        *int
	IsOriginal  *bool
	Edition     *Edition
}

// Artwork is the aggregate root for a listed piece of art
type Artwork struct {
	shared.BaseAggregateRoot
	Details
	ArtistID       uuid.UUID
	CurrentOwnerID uuid.UUID

	ListingFeeStatus        ListingFeeStatus
	ListingFeePaymentIntent string
	ListingFeePaidAt        *time.Time

	Status          ArtworkStatus
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason string
	SoldAt          *time.Time
}

// NewArtwork creates a pending artwork owned by its artist
func NewArtwork(artistID uuid.UUID, details Details) (*Artwork, error) {
	if artistID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ARTIST", "Artist is required")
	}
	details = normalizeDetails(details)
	if err := validateDetails(details); err != nil {
		return nil, err
	}

	artwork := &Artwork{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Details:           details,
		ArtistID:          artistID,
		CurrentOwnerID:    artistID,
		ListingFeeStatus:  ListingFeeUnpaid,
		Status:            ArtworkStatusPending,
	}
	artwork.AddDomainEvent(NewArtworkCreatedEvent(artwork))
	return artwork, nil
}

// Update applies a partial update. Sold artworks cannot be changed.
func (a *Artwork) Update(p Patch) error {
	if a.IsSold() {
		return shared.NewDomainError("ARTWORK_SOLD", "Cannot update sold artwork")
	}
	d := a.Details
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Price != nil {
		d.Price = *p.Price
	}
	if p.Images != nil {
		d.Images = p.Images
	}
	if p.Tags != nil {
		d.Tags = p.Tags
	}
	if p.Medium != nil {
		d.Medium = *p.Medium
	}
	if p.Dimensions != nil {
		d.Dimensions = p.Dimensions
	}
	if p.Year != nil {
		d.Year = p.Year
	}
	if p.IsOriginal != nil {
		d.IsOriginal = *p.IsOriginal
	}
	if p.Edition != nil {
		d.Edition = p.Edition
	}
	d = normalizeDetails(d)
	if err := validateDetails(d); err != nil {
		return err
	}
	a.Details = d
	a.touch()
	return nil
}

// Approve publishes a pending artwork
func (a *Artwork) Approve(now time.Time) error {
	if a.Status != ArtworkStatusPending {
		return shared.NewDomainErrorf("INVALID_STATE", "Cannot approve artwork in %s status", a.Status)
	}
	a.Status = ArtworkStatusApproved
	a.ApprovedAt = &now
	a.RejectedAt = nil
	a.RejectionReason = ""
	a.touch()
	a.AddDomainEvent(NewArtworkApprovedEvent(a))
	return nil
}

// Reject refuses an artwork with a reason
func (a *Artwork) Reject(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("REASON_REQUIRED", "Rejection reason is required")
	}
	if a.IsSold() {
		return shared.NewDomainError("ARTWORK_SOLD", "Cannot reject sold artwork")
	}
	a.Status = ArtworkStatusRejected
	a.RejectedAt = &now
	a.RejectionReason = reason
	a.touch()
	a.AddDomainEvent(NewArtworkRejectedEvent(a))
	return nil
}

// MarkListingFeePending records that a listing fee checkout was started.
// A paid fee cannot go back to pending.
func (a *Artwork) MarkListingFeePending() error {
	if a.ListingFeeStatus == ListingFeePaid {
		return shared.NewDomainError("ALREADY_PAID", "Listing fee already paid for this artwork")
	}
	a.ListingFeeStatus = ListingFeePending
	a.touch()
	return nil
}

// MarkListingFeePaid records a completed listing fee payment.
// The artwork still waits for moderation.
func (a *Artwork) MarkListingFeePaid(paymentIntentID string, now time.Time) {
	a.ListingFeeStatus = ListingFeePaid
	a.ListingFeePaymentIntent = paymentIntentID
	a.ListingFeePaidAt = &now
	a.touch()
}

// MarkListingFeeFailed records a failed listing fee payment. A paid fee stays paid.
func (a *Artwork) MarkListingFeeFailed() {
	if a.ListingFeeStatus == ListingFeePaid {
		return
	}
	a.ListingFeeStatus = ListingFeeFailed
	a.touch()
}

// MarkSold transfers ownership to the buyer
func (a *Artwork) MarkSold(buyerID uuid.UUID, price decimal.Decimal, now time.Time) error {
	if a.Status != ArtworkStatusApproved {
		return shared.NewDomainError("ARTWORK_NOT_AVAILABLE", "Artwork is not available for purchase")
	}
	if a.IsSold() {
		return shared.NewDomainError("ARTWORK_SOLD", "Artwork has already been sold")
	}
	previousOwner := a.CurrentOwnerID
	a.SoldAt = &now
	a.CurrentOwnerID = buyerID
	a.touch()
	a.AddDomainEvent(NewArtworkSoldEvent(a, previousOwner, price))
	return nil
}

// CheckPurchasable verifies that buyerID may buy this artwork
func (a *Artwork) CheckPurchasable(buyerID uuid.UUID) error {
	if a.Status != ArtworkStatusApproved {
		return shared.NewDomainError("ARTWORK_NOT_AVAILABLE", "Artwork is not available for purchase")
	}
	if a.IsSold() {
		return shared.NewDomainError("ARTWORK_SOLD", "Artwork has already been sold")
	}
	if a.ArtistID == buyerID {
		return shared.NewDomainError("CANNOT_BUY_OWN_ARTWORK", "You cannot purchase your own artwork")
	}
	return nil
}

// IsSold returns true once the artwork has been bought
func (a *Artwork) IsSold() bool {
	return a.SoldAt != nil
}

// IsOwnedBy returns true if userID is the listing artist
func (a *Artwork) IsOwnedBy(userID uuid.UUID) bool {
	return a.ArtistID == userID
}

// IsPublic returns true if anyone may see the artwork
func (a *Artwork) IsPublic() bool {
	return a.Status == ArtworkStatusApproved
}

// PriceCents returns the price in euro cents, rounded half up
func (a *Artwork) PriceCents() int64 {
	return a.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// PrimaryImage returns the first image URL or an empty string
func (a *Artwork) PrimaryImage() string {
	if len(a.Images) == 0 {
		return ""
	}
	return a.Images[0]
}

func (a *Artwork) touch() {
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

func normalizeDetails(d Details) Details {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Medium = strings.TrimSpace(d.Medium)

	images := make([]string, 0, len(d.Images))
	for _, img := range d.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	d.Images = images

	tags := make([]string, 0, len(d.Tags))
	for _, tag := range d.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" && !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	d.Tags = tags

	if d.Dimensions != nil && d.Dimensions.Unit == "" {
		dims := *d.Dimensions
		dims.Unit = DimensionUnitCM
		d.Dimensions = &dims
	}
	return d
}

func validateDetails(d Details) error {
	if d.Title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Title is required")
	}
	if len(d.Title) > 200 {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot exceed 200 characters")
	}
	if d.Description == "" {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description is required")
	}
	if d.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price must be at least 0")
	}
	if len(d.Images) == 0 {
		return shared.NewDomainError("INVALID_IMAGES", "At least one image is required")
	}
	if d.Dimensions != nil {
		if d.Dimensions.Unit != DimensionUnitCM && d.Dimensions.Unit != DimensionUnitIN {
			return shared.NewDomainError("INVALID_DIMENSIONS", "Dimension unit must be cm or in")
		}
		if d.Dimensions.Width < 0 || d.Dimensions.Height < 0 {
			return shared.NewDomainError("INVALID_DIMENSIONS", "Dimensions cannot be negative")
		}
	}
	if d.Edition != nil && d.Edition.Total > 0 && d.Edition.Number > d.Edition.Total {
		return shared.NewDomainError("INVALID_EDITION", "Edition number cannot exceed edition total")
	}
	return nil
}
