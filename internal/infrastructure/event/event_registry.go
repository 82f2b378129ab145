package event

import (
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/payment"
)

// RegisterAllEvents registers every domain event type with the serializer.
// The outbox processor can only deliver events it can deserialize.
func RegisterAllEvents(serializer *EventSerializer) {
	// Identity
	serializer.Register(identity.EventTypeUserRegistered, &identity.UserRegisteredEvent{})
	serializer.Register(identity.EventTypeUserVerified, &identity.UserVerifiedEvent{})
	serializer.Register(identity.EventTypeVerificationOTPReissued, &identity.VerificationOTPReissuedEvent{})
	serializer.Register(identity.EventTypePasswordResetRequested, &identity.PasswordResetRequestedEvent{})

	// Catalog
	serializer.Register(catalog.EventTypeArtworkCreated, &catalog.ArtworkCreatedEvent{})
	serializer.Register(catalog.EventTypeArtworkApproved, &catalog.ArtworkApprovedEvent{})
	serializer.Register(catalog.EventTypeArtworkRejected, &catalog.ArtworkRejectedEvent{})
	serializer.Register(catalog.EventTypeArtworkDeleted, &catalog.ArtworkDeletedEvent{})
	serializer.Register(catalog.EventTypeArtworkSold, &catalog.ArtworkSoldEvent{})

	// Payment
	serializer.Register(payment.EventTypePaymentCompleted, &payment.PaymentCompletedEvent{})
	serializer.Register(payment.EventTypePaymentFailed, &payment.PaymentFailedEvent{})
	serializer.Register(payment.EventTypeRefundRequired, &payment.RefundRequiredEvent{})
}
