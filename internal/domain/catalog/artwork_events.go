package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeArtwork = "Artwork"

// Event type constants
const (
	EventTypeArtworkCreated  = "ArtworkCreated"
	EventTypeArtworkApproved = "ArtworkApproved"
	EventTypeArtworkRejected = "ArtworkRejected"
	EventTypeArtworkDeleted  = "ArtworkDeleted"
	EventTypeArtworkSold     = "ArtworkSold"
)

// ArtworkCreatedEvent is published when an artist lists a new artwork
type ArtworkCreatedEvent struct {
	shared.BaseDomainEvent
	ArtistID uuid.UUID       `json:"artist_id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
}

// NewArtworkCreatedEvent creates a new ArtworkCreatedEvent
func NewArtworkCreatedEvent(a *Artwork) *ArtworkCreatedEvent {
	return &ArtworkCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeArtworkCreated, AggregateTypeArtwork, a.ID),
		ArtistID:        a.ArtistID,
		Title:           a.Title,
		Price:           a.Price,
	}
}

// ArtworkApprovedEvent is published when an admin approves an artwork
type ArtworkApprovedEvent struct {
	shared.BaseDomainEvent
	ArtistID uuid.UUID `json:"artist_id"`
	Title    string    `json:"title"`
}

// NewArtworkApprovedEvent creates a new ArtworkApprovedEvent
func NewArtworkApprovedEvent(a *Artwork) *ArtworkApprovedEvent {
	return &ArtworkApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeArtworkApproved, AggregateTypeArtwork, a.ID),
		ArtistID:        a.ArtistID,
		Title:           a.Title,
	}
}

// ArtworkRejectedEvent is published when an admin rejects an artwork
type ArtworkRejectedEvent struct {
	shared.BaseDomainEvent
	ArtistID uuid.UUID `json:"artist_id"`
	Title    string    `json:"title"`
	Reason   string    `json:"reason"`
}

// NewArtworkRejectedEvent creates a new ArtworkRejectedEvent
func NewArtworkRejectedEvent(a *Artwork) *ArtworkRejectedEvent {
	return &ArtworkRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeArtworkRejected, AggregateTypeArtwork, a.ID),
		ArtistID:        a.ArtistID,
		Title:           a.Title,
		Reason:          a.RejectionReason,
	}
}

// ArtworkDeletedEvent triggers the cleanup job: stored images and
// unfinished listing payments are removed and caches invalidated.
type ArtworkDeletedEvent struct {
	shared.BaseDomainEvent
	ArtistID  uuid.UUID `json:"artist_id"`
	Images    []string  `json:"images"`
	DeletedBy uuid.UUID `json:"deleted_by"`
}

// MaxAttempts implements shared.RetryPolicy
func (*ArtworkDeletedEvent) MaxAttempts() int { return 3 }

// BaseBackoff implements shared.RetryPolicy
func (*ArtworkDeletedEvent) BaseBackoff() time.Duration { return 5 * time.Second }

// NewArtworkDeletedEvent creates a new ArtworkDeletedEvent
func NewArtworkDeletedEvent(a *Artwork, deletedBy uuid.UUID) *ArtworkDeletedEvent {
	return &ArtworkDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeArtworkDeleted, AggregateTypeArtwork, a.ID),
		ArtistID:        a.ArtistID,
		Images:          append([]string(nil), a.Images...),
		DeletedBy:       deletedBy,
	}
}

// ArtworkSoldEvent is published when ownership moves to a buyer
type ArtworkSoldEvent struct {
	shared.BaseDomainEvent
	ArtistID        uuid.UUID       `json:"artist_id"`
	PreviousOwnerID uuid.UUID       `json:"previous_owner_id"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
}

// NewArtworkSoldEvent creates a new ArtworkSoldEvent
func NewArtworkSoldEvent(a *Artwork, previousOwner uuid.UUID, price decimal.Decimal) *ArtworkSoldEvent {
	return &ArtworkSoldEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeArtworkSold, AggregateTypeArtwork, a.ID),
		ArtistID:        a.ArtistID,
		PreviousOwnerID: previousOwner,
		BuyerID:         a.CurrentOwnerID,
		Title:           a.Title,
		Price:           price,
	}
}
