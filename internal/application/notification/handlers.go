package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// Job names. They double as idempotency key prefixes.
const (
	JobSendVerificationEmail   = "send-verification-email"
	JobSendPasswordReset       = "send-password-reset"
	JobSendWelcome             = "send-welcome"
	JobSendPaymentConfirmation = "send-payment-confirmation"
	JobSendSaleNotification    = "send-sale-notification"
	JobHandleFailedPayment     = "handle-failed-payment"
	JobNotifyRefundRequired    = "notify-refund-required"
)

const brand = "3rd Hand Art Marketplace"

func unexpectedEvent(logger *zap.Logger, expected string, event shared.DomainEvent) error {
	logger.Error("unexpected event type",
		zap.String("expected", expected),
		zap.String("actual", event.EventType()),
	)
	return fmt.Errorf("unexpected event type: expected %s, got %s", expected, event.EventType())
}

func euros(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func minutesUntil(expires, from time.Time) int {
	m := int(expires.Sub(from).Round(time.Minute) / time.Minute)
	if m < 1 {
		return int(identity.OTPTTL / time.Minute)
	}
	return m
}

// VerificationEmailHandler sends the email verification code on
// registration and when a new code is requested
type VerificationEmailHandler struct {
	mailer Mailer
	logger *zap.Logger
}

// NewVerificationEmailHandler creates a new VerificationEmailHandler
func NewVerificationEmailHandler(mailer Mailer, logger *zap.Logger) *VerificationEmailHandler {
	return &VerificationEmailHandler{mailer: mailer, logger: logger}
}

// Name returns the job name
func (h *VerificationEmailHandler) Name() string { return JobSendVerificationEmail }

// EventTypes returns the event types this handler is interested in
func (h *VerificationEmailHandler) EventTypes() []string {
	return []string{identity.EventTypeUserRegistered, identity.EventTypeVerificationOTPReissued}
}

// Handle sends the verification code
func (h *VerificationEmailHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var to string
	var data VerificationData
	switch e := event.(type) {
	case *identity.UserRegisteredEvent:
		to = e.Email
		data = VerificationData{Username: e.Username, OTP: e.OTP, ExpiryMinutes: minutesUntil(e.ExpiresAt, e.OccurredAt())}
	case *identity.VerificationOTPReissuedEvent:
		to = e.Email
		data = VerificationData{Username: e.Username, OTP: e.OTP, ExpiryMinutes: minutesUntil(e.ExpiresAt, e.OccurredAt())}
	default:
		return unexpectedEvent(h.logger, identity.EventTypeUserRegistered, event)
	}

	return h.mailer.Send(ctx, Email{
		To:       to,
		Subject:  "Verify Your Email - " + brand,
		Template: TemplateVerification,
		Data:     data,
	})
}

// PasswordResetEmailHandler sends the password reset link
type PasswordResetEmailHandler struct {
	mailer      Mailer
	frontendURL string
	logger      *zap.Logger
}

// NewPasswordResetEmailHandler creates a new PasswordResetEmailHandler
func NewPasswordResetEmailHandler(mailer Mailer, frontendURL string, logger *zap.Logger) *PasswordResetEmailHandler {
	return &PasswordResetEmailHandler{
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// Name returns the job name
func (h *PasswordResetEmailHandler) Name() string { return JobSendPasswordReset }

// EventTypes returns the event types this handler is interested in
func (h *PasswordResetEmailHandler) EventTypes() []string {
	return []string{identity.EventTypePasswordResetRequested}
}

// Handle sends the reset link
func (h *PasswordResetEmailHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*identity.PasswordResetRequestedEvent)
	if !ok {
		return unexpectedEvent(h.logger, identity.EventTypePasswordResetRequested, event)
	}

	return h.mailer.Send(ctx, Email{
		To:       e.Email,
		Subject:  "Password Reset - " + brand,
		Template: TemplatePasswordReset,
		Data: PasswordResetData{
			Username:      e.Username,
			ResetURL:      h.frontendURL + "/reset-password/" + e.Token,
			ExpiryMinutes: minutesUntil(e.ExpiresAt, e.OccurredAt()),
		},
	})
}

// WelcomeEmailHandler greets users once their email is verified
type WelcomeEmailHandler struct {
	mailer      Mailer
	frontendURL string
	logger      *zap.Logger
}

// NewWelcomeEmailHandler creates a new WelcomeEmailHandler
func NewWelcomeEmailHandler(mailer Mailer, frontendURL string, logger *zap.Logger) *WelcomeEmailHandler {
	return &WelcomeEmailHandler{
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// Name returns the job name
func (h *WelcomeEmailHandler) Name() string { return JobSendWelcome }

// EventTypes returns the event types this handler is interested in
func (h *WelcomeEmailHandler) EventTypes() []string {
	return []string{identity.EventTypeUserVerified}
}

// Handle sends the welcome email
func (h *WelcomeEmailHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*identity.UserVerifiedEvent)
	if !ok {
		return unexpectedEvent(h.logger, identity.EventTypeUserVerified, event)
	}

	return h.mailer.Send(ctx, Email{
		To:       e.Email,
		Subject:  "Welcome to " + brand + "!",
		Template: TemplateWelcome,
		Data: WelcomeData{
			Username:     e.Username,
			Role:         e.Role,
			DashboardURL: h.frontendURL + "/dashboard",
		},
	})
}

// PaymentConfirmationHandler emails the payer of a completed payment:
// the artist for a listing fee, the buyer for a sale
type PaymentConfirmationHandler struct {
	users    identity.UserRepository
	artworks catalog.ArtworkRepository
	mailer   Mailer
	logger   *zap.Logger
}

// NewPaymentConfirmationHandler creates a new PaymentConfirmationHandler
func NewPaymentConfirmationHandler(
	users identity.UserRepository,
	artworks catalog.ArtworkRepository,
	mailer Mailer,
	logger *zap.Logger,
) *PaymentConfirmationHandler {
	return &PaymentConfirmationHandler{
		users:    users,
		artworks: artworks,
		mailer:   mailer,
		logger:   logger,
	}
}

// Name returns the job name
func (h *PaymentConfirmationHandler) Name() string { return JobSendPaymentConfirmation }

// EventTypes returns the event types this handler is interested in
func (h *PaymentConfirmationHandler) EventTypes() []string {
	return []string{payment.EventTypePaymentCompleted}
}

// Handle sends the confirmation email
func (h *PaymentConfirmationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*payment.PaymentCompletedEvent)
	if !ok {
		return unexpectedEvent(h.logger, payment.EventTypePaymentCompleted, event)
	}

	h.logger.Info("Processing payment confirmation email",
		zap.String("transaction_id", e.TransactionID.String()),
		zap.String("type", string(e.Type)))

	var subject, tmpl string
	switch e.Type {
	case payment.TransactionTypeListingFee:
		subject, tmpl = "Listing Fee Confirmed - "+brand, TemplateListingFeeConfirmed
	case payment.TransactionTypeSale:
		if e.BuyerID == nil {
			return fmt.Errorf("sale %s has no buyer", e.TransactionID)
		}
		subject, tmpl = "Purchase Confirmed - "+brand, TemplatePurchaseConfirmed
	default:
		return fmt.Errorf("unknown transaction type %q", e.Type)
	}

	payer, err := h.users.FindByID(ctx, e.Payer())
	if err != nil {
		return fmt.Errorf("loading payer %s: %w", e.Payer(), err)
	}
	title, err := artworkTitle(ctx, h.artworks, e.ArtworkID)
	if err != nil {
		return err
	}

	return h.mailer.Send(ctx, Email{
		To:       payer.Email,
		Subject:  subject,
		Template: tmpl,
		Data: PaymentData{
			Username:     payer.Username,
			ArtworkTitle: title,
			Amount:       euros(e.Amount),
		},
	})
}

// SaleNotificationHandler tells the seller that their artwork was bought.
// It runs as its own job so a failed seller email is retried without
// mailing the buyer again.
type SaleNotificationHandler struct {
	users    identity.UserRepository
	artworks catalog.ArtworkRepository
	mailer   Mailer
	logger   *zap.Logger
}

// NewSaleNotificationHandler creates a new SaleNotificationHandler
func NewSaleNotificationHandler(
	users identity.UserRepository,
	artworks catalog.ArtworkRepository,
	mailer Mailer,
	logger *zap.Logger,
) *SaleNotificationHandler {
	return &SaleNotificationHandler{
		users:    users,
		artworks: artworks,
		mailer:   mailer,
		logger:   logger,
	}
}

// Name returns the job name
func (h *SaleNotificationHandler) Name() string { return JobSendSaleNotification }

// EventTypes returns the event types this handler is interested in
func (h *SaleNotificationHandler) EventTypes() []string {
	return []string{payment.EventTypePaymentCompleted}
}

// Handle sends the sale notification. Listing fees are skipped.
func (h *SaleNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*payment.PaymentCompletedEvent)
	if !ok {
		return unexpectedEvent(h.logger, payment.EventTypePaymentCompleted, event)
	}
	if e.Type != payment.TransactionTypeSale {
		return nil
	}

	seller, err := h.users.FindByID(ctx, e.SellerID)
	if err != nil {
		return fmt.Errorf("loading seller %s: %w", e.SellerID, err)
	}
	title, err := artworkTitle(ctx, h.artworks, e.ArtworkID)
	if err != nil {
		return err
	}

	return h.mailer.Send(ctx, Email{
		To:       seller.Email,
		Subject:  "Your Artwork Has Been Sold! - " + brand,
		Template: TemplateSaleNotification,
		Data: PaymentData{
			Username:     seller.Username,
			ArtworkTitle: title,
			Amount:       euros(e.Amount),
			ArtistAmount: euros(e.ArtistAmount),
		},
	})
}

// PaymentFailedHandler tells the payer that a payment did not go through
type PaymentFailedHandler struct {
	users    identity.UserRepository
	artworks catalog.ArtworkRepository
	mailer   Mailer
	logger   *zap.Logger
}

// NewPaymentFailedHandler creates a new PaymentFailedHandler
func NewPaymentFailedHandler(
	users identity.UserRepository,
	artworks catalog.ArtworkRepository,
	mailer Mailer,
	logger *zap.Logger,
) *PaymentFailedHandler {
	return &PaymentFailedHandler{
		users:    users,
		artworks: artworks,
		mailer:   mailer,
		logger:   logger,
	}
}

// Name returns the job name
func (h *PaymentFailedHandler) Name() string { return JobHandleFailedPayment }

// EventTypes returns the event types this handler is interested in
func (h *PaymentFailedHandler) EventTypes() []string {
	return []string{payment.EventTypePaymentFailed}
}

// Handle sends the failure notification
func (h *PaymentFailedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*payment.PaymentFailedEvent)
	if !ok {
		return unexpectedEvent(h.logger, payment.EventTypePaymentFailed, event)
	}

	h.logger.Info("Processing failed payment",
		zap.String("transaction_id", e.TransactionID.String()),
		zap.String("reason", e.Reason))

	payer, err := h.users.FindByID(ctx, e.Payer())
	if err != nil {
		return fmt.Errorf("loading payer %s: %w", e.Payer(), err)
	}
	title, err := artworkTitle(ctx, h.artworks, e.ArtworkID)
	if err != nil {
		return err
	}

	return h.mailer.Send(ctx, Email{
		To:       payer.Email,
		Subject:  "Payment Failed - " + brand,
		Template: TemplatePaymentFailed,
		Data: PaymentFailedData{
			Username:     payer.Username,
			ArtworkTitle: title,
			ListingFee:   e.Type == payment.TransactionTypeListingFee,
			Reason:       e.Reason,
		},
	})
}

// refundReasons maps refund reason codes to the text shown to the payer
var refundReasons = map[string]string{
	"ARTWORK_SOLD":          "the artwork was sold to another buyer before your payment arrived",
	"ARTWORK_NOT_AVAILABLE": "the artwork is no longer available for purchase",
	"ARTWORK_DELETED":       "the artwork was removed from the marketplace",
	"ALREADY_OWNED":         "you already own this artwork",
	"ALREADY_PAID":          "the listing fee for this artwork had already been paid",
}

// RefundRequiredHandler tells the payer that a collected payment could
// not be fulfilled and will be refunded
type RefundRequiredHandler struct {
	users    identity.UserRepository
	artworks catalog.ArtworkRepository
	mailer   Mailer
	logger   *zap.Logger
}

// NewRefundRequiredHandler creates a new RefundRequiredHandler
func NewRefundRequiredHandler(
	users identity.UserRepository,
	artworks catalog.ArtworkRepository,
	mailer Mailer,
	logger *zap.Logger,
) *RefundRequiredHandler {
	return &RefundRequiredHandler{
		users:    users,
		artworks: artworks,
		mailer:   mailer,
		logger:   logger,
	}
}

// Name returns the job name
func (h *RefundRequiredHandler) Name() string { return JobNotifyRefundRequired }

// EventTypes returns the event types this handler is interested in
func (h *RefundRequiredHandler) EventTypes() []string {
	return []string{payment.EventTypeRefundRequired}
}

// Handle sends the refund notice
func (h *RefundRequiredHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*payment.RefundRequiredEvent)
	if !ok {
		return unexpectedEvent(h.logger, payment.EventTypeRefundRequired, event)
	}

	h.logger.Warn("Payment requires a refund",
		zap.String("transaction_id", e.TransactionID.String()),
		zap.String("payment_intent_id", e.PaymentIntentID),
		zap.String("reason", e.Reason))

	payer, err := h.users.FindByID(ctx, e.Payer())
	if err != nil {
		return fmt.Errorf("loading payer %s: %w", e.Payer(), err)
	}
	title, err := artworkTitle(ctx, h.artworks, e.ArtworkID)
	if err != nil {
		return err
	}
	reason, ok := refundReasons[e.Reason]
	if !ok {
		reason = "the order could not be completed"
	}

	return h.mailer.Send(ctx, Email{
		To:       payer.Email,
		Subject:  "Your Payment Will Be Refunded - " + brand,
		Template: TemplateRefundRequired,
		Data: RefundData{
			Username:     payer.Username,
			ArtworkTitle: title,
			Amount:       euros(e.Amount),
			ListingFee:   e.Type == payment.TransactionTypeListingFee,
			Reason:       reason,
		},
	})
}

// artworkTitle tolerates artworks deleted after payment
func artworkTitle(ctx context.Context, artworks catalog.ArtworkRepository, id uuid.UUID) (string, error) {
	artwork, err := artworks.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return "your artwork", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading artwork %s: %w", id, err)
	}
	return artwork.Title, nil
}

// Ensure handlers implement shared.EventHandler
var (
	_ shared.EventHandler = (*VerificationEmailHandler)(nil)
	_ shared.EventHandler = (*PasswordResetEmailHandler)(nil)
	_ shared.EventHandler = (*WelcomeEmailHandler)(nil)
	_ shared.EventHandler = (*PaymentConfirmationHandler)(nil)
	_ shared.EventHandler = (*SaleNotificationHandler)(nil)
	_ shared.EventHandler = (*PaymentFailedHandler)(nil)
	_ shared.EventHandler = (*RefundRequiredHandler)(nil)
)
