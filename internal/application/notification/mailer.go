// Package notification turns domain events into transactional emails.
package notification

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/thirdhand/marketplace/internal/domain/identity"
)

// Email templates known to every Mailer implementation
const (
	TemplateVerification        = "verification"
	TemplatePasswordReset       = "password_reset"
	TemplateWelcome             = "welcome"
	TemplateListingFeeConfirmed = "listing_fee_confirmation"
	TemplatePurchaseConfirmed   = "purchase_confirmation"
	TemplateSaleNotification    = "sale_notification"
	TemplatePaymentFailed       = "payment_failed"
	TemplateRefundRequired      = "refund_required"
)

// Email is a single templated message to one recipient
type Email struct {
	To       string
	Subject  string
	Template string
	Data     any
}

// Mailer delivers templated emails
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// VerificationData fills the verification template
type VerificationData struct {
	Username      string
	OTP           string
	ExpiryMinutes int
}

// PasswordResetData fills the password reset template
type PasswordResetData struct {
	Username      string
	ResetURL      string
	ExpiryMinutes int
}

// WelcomeData fills the welcome template
type WelcomeData struct {
	Username     string
	Role         identity.Role
	DashboardURL string
}

// IsArtist is used by the template to pick the role-specific paragraph
func (d WelcomeData) IsArtist() bool {
	return d.Role == identity.RoleArtist
}

// PaymentData fills the listing fee, purchase and sale templates.
// Amount is in euros.
type PaymentData struct {
	Username     string
	ArtworkTitle string
	Amount       decimal.Decimal
	ArtistAmount decimal.Decimal
}

// PaymentFailedData fills the failed payment template
type PaymentFailedData struct {
	Username     string
	ArtworkTitle string
	ListingFee   bool
	Reason       string
}

// RefundData fills the template sent when a collected payment is refunded
type RefundData struct {
	Username     string
	ArtworkTitle string
	Amount       decimal.Decimal
	ListingFee   bool
	Reason       string
}
