package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/webhook"
	paymentapp "github.com/thirdhand/marketplace/internal/application/payment"
	"go.uber.org/zap"
)

var _ paymentapp.Gateway = (*StripeGateway)(nil)

// StripeGateway implements the payment gateway port with Stripe Checkout
type StripeGateway struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Initialize Stripe client
	config.InitStripeClient()

	return &StripeGateway{
		config: config,
		logger: logger,
	}, nil
}

// EnsureCustomer reuses the stored customer while Stripe still knows it and
// creates a new one otherwise
func (g *StripeGateway) EnsureCustomer(ctx context.Context, info paymentapp.CustomerInfo) (string, error) {
	if info.ExistingID != "" {
		params := &stripe.CustomerParams{}
		params.Context = ctx
		cust, err := customer.Get(info.ExistingID, params)
		switch {
		case err == nil && !cust.Deleted:
			return cust.ID, nil
		case err == nil || isResourceMissing(err):
			g.logger.Info("Stored Stripe customer is gone, creating a new one",
				zap.String("user_id", info.UserID.String()),
				zap.String("customer_id", info.ExistingID))
		default:
			return "", fmt.Errorf("stripe: failed to get customer: %w", err)
		}
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(info.Email),
		Name:  stripe.String(info.Name),
	}
	params.Context = ctx
	params.AddMetadata("userId", info.UserID.String())

	cust, err := customer.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe customer",
			zap.String("user_id", info.UserID.String()),
			zap.Error(err))
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	g.logger.Info("Created Stripe customer",
		zap.String("user_id", info.UserID.String()),
		zap.String("customer_id", cust.ID))
	return cust.ID, nil
}

// CreateCheckoutSession opens a one-item payment-mode checkout session.
// Metadata is set on both the session and its payment intent so that either
// webhook carries it.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req paymentapp.CheckoutRequest) (*paymentapp.CheckoutSession, error) {
	currency := req.Currency
	if currency == "" {
		currency = g.config.Currency
	}

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.ProductName),
	}
	if req.Description != "" {
		product.Description = stripe.String(req.Description)
	}
	if req.ImageURL != "" {
		product.Images = stripe.StringSlice([]string{req.ImageURL})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(currency),
					ProductData: product,
					UnitAmount:  stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.config.successURL()),
		CancelURL:  stripe.String(g.config.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: maps.Clone(req.Metadata),
		},
	}
	params.Context = ctx
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := session.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe checkout session",
			zap.String("customer_id", req.CustomerID),
			zap.Int64("amount", req.AmountCents),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	out := &paymentapp.CheckoutSession{
		ID:  sess.ID,
		URL: sess.URL,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	if sess.ExpiresAt > 0 {
		out.ExpiresAt = unixTime(sess.ExpiresAt)
	}

	g.logger.Info("Created Stripe checkout session",
		zap.String("session_id", sess.ID),
		zap.String("customer_id", req.CustomerID))
	return out, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event
// object into a gateway-neutral form. Unknown event types come back with
// only ID and Type set.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*paymentapp.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		g.logger.Warn("Rejected Stripe webhook", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", paymentapp.ErrInvalidSignature, err)
	}

	out := &paymentapp.WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case paymentapp.EventCheckoutCompleted,
		paymentapp.EventCheckoutExpired,
		paymentapp.EventCheckoutAsyncPaymentFailed,
		paymentapp.EventCheckoutAsyncPaymentSucceed:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("stripe: failed to parse checkout session: %w", err)
		}
		out.SessionID = sess.ID
		out.PaymentStatus = string(sess.PaymentStatus)
		out.Metadata = sess.Metadata
		if sess.PaymentIntent != nil {
			out.PaymentIntentID = sess.PaymentIntent.ID
			if len(sess.PaymentIntent.PaymentMethodTypes) > 0 {
				out.PaymentMethod = sess.PaymentIntent.PaymentMethodTypes[0]
			}
		}
		if out.Type == paymentapp.EventCheckoutExpired {
			out.FailureReason = "checkout session expired"
		} else if out.Type == paymentapp.EventCheckoutAsyncPaymentFailed {
			out.FailureReason = "asynchronous payment failed"
		}

	case paymentapp.EventPaymentIntentSucceeded, paymentapp.EventPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("stripe: failed to parse payment intent: %w", err)
		}
		out.PaymentIntentID = pi.ID
		out.PaymentStatus = string(pi.Status)
		out.Metadata = pi.Metadata
		if len(pi.PaymentMethodTypes) > 0 {
			out.PaymentMethod = pi.PaymentMethodTypes[0]
		}
		if pi.LatestCharge != nil {
			out.ReceiptURL = pi.LatestCharge.ReceiptURL
		}
		if pi.LastPaymentError != nil {
			out.FailureReason = pi.LastPaymentError.Msg
		}
	}

	return out, nil
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
