package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	catalogapp "github.com/thirdhand/marketplace/internal/application/catalog"
	paymentapp "github.com/thirdhand/marketplace/internal/application/payment"
	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/cache"
	"go.uber.org/zap/zaptest"
)

// stubGateway accepts the signature "valid" and answers with event
type stubGateway struct {
	event *paymentapp.WebhookEvent
}

func (g *stubGateway) EnsureCustomer(context.Context, paymentapp.CustomerInfo) (string, error) {
	return "cus_test", nil
}

func (g *stubGateway) CreateCheckoutSession(context.Context, paymentapp.CheckoutRequest) (*paymentapp.CheckoutSession, error) {
	return nil, errors.New("not used")
}

func (g *stubGateway) ParseWebhook(payload []byte, signature string) (*paymentapp.WebhookEvent, error) {
	if signature != "valid" {
		return nil, paymentapp.ErrInvalidSignature
	}
	if !json.Valid(payload) {
		return nil, errors.New("malformed event")
	}
	return g.event, nil
}

type failingStore struct{ shared.IdempotencyStore }

func (failingStore) MarkProcessed(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func newWebhookRouter(t *testing.T, gateway *stubGateway, store shared.IdempotencyStore) http.Handler {
	t.Helper()
	mem := cache.NewInMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	if store == nil {
		s := cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = s.Close() })
		store = s
	}

	logger := zaptest.NewLogger(t)
	scope := appshared.NewNoOpTransactionScope(appshared.Repositories{})
	webhooks := paymentapp.NewWebhookService(scope, gateway, store, catalogapp.NewArtworkCache(mem, logger), nil, logger)
	h := NewPaymentHandler(nil, webhooks)

	router := newRouter()
	router.POST("/payments/webhook", h.Webhook)
	return router
}

func postWebhook(router http.Handler, body, signature string) (*httptest.ResponseRecorder, WebhookResponse) {
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp WebhookResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestPaymentHandler_WebhookRejections(t *testing.T) {
	router := newWebhookRouter(t, &stubGateway{}, nil)

	w, resp := postWebhook(router, `{}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Received)
	assert.Contains(t, resp.Message, SignatureHeader)

	w, _ = postWebhook(router, `{"pad":"`+strings.Repeat("x", MaxWebhookPayloadSize)+`"}`, "valid")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w, resp = postWebhook(router, `{}`, "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid webhook signature", resp.Message)

	w, _ = postWebhook(router, `not json`, "valid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_WebhookAcknowledges(t *testing.T) {
	gateway := &stubGateway{event: &paymentapp.WebhookEvent{ID: "evt_1", Type: "customer.created"}}
	router := newWebhookRouter(t, gateway, nil)

	w, resp := postWebhook(router, `{}`, "valid")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Received)
	assert.Equal(t, "evt_1", resp.EventID)
	assert.Equal(t, paymentapp.OutcomeIgnored, resp.Outcome)

	w, resp = postWebhook(router, `{}`, "valid")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, paymentapp.OutcomeDuplicate, resp.Outcome)
}

func TestPaymentHandler_WebhookAsksForRetry(t *testing.T) {
	gateway := &stubGateway{event: &paymentapp.WebhookEvent{ID: "evt_2", Type: paymentapp.EventCheckoutCompleted}}
	router := newWebhookRouter(t, gateway, failingStore{})

	w, resp := postWebhook(router, `{}`, "valid")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Received)
	assert.Equal(t, "Webhook processing failed", resp.Message)
}

func TestPaymentHistoryRequest_Validation(t *testing.T) {
	h := NewPaymentHandler(nil, nil)
	router := newRouter()
	router.GET("/payments/history", h.History)

	w := serve(router, http.MethodGet, "/payments/history?type=gift", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = serve(router, http.MethodGet, "/payments/history?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
