package billing

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
)

// sessionIDPlaceholder is substituted by Stripe with the checkout session id
const sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// StripeConfig holds configuration for the Stripe Checkout integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// PublishableKey is handed to the frontend
	PublishableKey string `json:"publishable_key" mapstructure:"publishable_key"`

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// IsTestMode indicates if using Stripe test mode
	IsTestMode bool `json:"is_test_mode" mapstructure:"is_test_mode"`

	// Currency of every checkout session
	Currency string `json:"currency" mapstructure:"currency"`

	// SuccessURL is the URL to redirect after successful checkout
	SuccessURL string `json:"success_url" mapstructure:"success_url"`

	// CancelURL is the URL to redirect after cancelled checkout
	CancelURL string `json:"cancel_url" mapstructure:"cancel_url"`
}

// NewStripeConfig builds the gateway configuration from application config.
// Test mode follows the secret key prefix.
func NewStripeConfig(cfg config.StripeConfig) *StripeConfig {
	return &StripeConfig{
		SecretKey:      cfg.SecretKey,
		PublishableKey: cfg.PublishableKey,
		WebhookSecret:  cfg.WebhookSecret,
		IsTestMode:     !strings.HasPrefix(cfg.SecretKey, "sk_live"),
		Currency:       "eur",
		SuccessURL:     cfg.SuccessURL,
		CancelURL:      cfg.CancelURL,
	}
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}

	// Validate key format
	if c.IsTestMode {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_test" {
			return fmt.Errorf("stripe: test mode enabled but secret key is not a test key")
		}
	} else {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_live" {
			return fmt.Errorf("stripe: live mode enabled but secret key is not a live key")
		}
	}

	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe: webhook secret is required")
	}
	if c.Currency == "" {
		return fmt.Errorf("stripe: currency is required")
	}
	if c.SuccessURL == "" || c.CancelURL == "" {
		return fmt.Errorf("stripe: success and cancel URLs are required")
	}

	return nil
}

// successURL makes sure Stripe appends the session id to the success redirect
func (c *StripeConfig) successURL() string {
	if strings.Contains(c.SuccessURL, sessionIDPlaceholder) {
		return c.SuccessURL
	}
	sep := "?"
	if strings.Contains(c.SuccessURL, "?") {
		sep = "&"
	}
	return c.SuccessURL + sep + "session_id=" + sessionIDPlaceholder
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
