package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Gateway event types handled by the webhook service
const (
	EventCheckoutCompleted           = "checkout.session.completed"
	EventCheckoutExpired             = "checkout.session.expired"
	EventCheckoutAsyncPaymentFailed  = "checkout.session.async_payment_failed"
	EventCheckoutAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
	EventPaymentIntentSucceeded      = "payment_intent.succeeded"
	EventPaymentIntentFailed         = "payment_intent.payment_failed"
)

// ErrInvalidSignature is returned by Gateway.ParseWebhook when the payload
// was not signed with the configured webhook secret
var ErrInvalidSignature = errors.New("payment gateway: invalid webhook signature")

// CustomerInfo identifies the marketplace user behind a gateway customer
type CustomerInfo struct {
	// ExistingID is the customer id stored on the user, if any
	ExistingID string
	UserID     uuid.UUID
	Email      string
	Name       string
}

// CheckoutRequest describes a single-item hosted checkout
type CheckoutRequest struct {
	CustomerID        string
	ProductName       string
	Description       string
	ImageURL          string
	AmountCents       int64
	Currency          string
	Metadata          map[string]string
	ExpiresAt         time.Time
	ClientReferenceID string
}

// CheckoutSession is the gateway's answer to a checkout request
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID string
	ExpiresAt       time.Time
}

// WebhookEvent is a verified gateway notification reduced to the fields
// the marketplace reconciles on
type WebhookEvent struct {
	ID              string
	Type            string
	SessionID       string
	PaymentIntentID string
	PaymentStatus   string
	Metadata        map[string]string
	ReceiptURL      string
	PaymentMethod   string
	FailureReason   string
}

// Gateway is the payment provider port
type Gateway interface {
	// EnsureCustomer returns the id of a live gateway customer for the user,
	// reusing ExistingID when the gateway still knows it
	EnsureCustomer(ctx context.Context, info CustomerInfo) (string, error)

	// CreateCheckoutSession opens a hosted checkout page
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// ParseWebhook verifies the signature header and decodes the event
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
