package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	catalogapp "github.com/thirdhand/marketplace/internal/application/catalog"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/provenance"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/cache"
	"go.uber.org/zap/zaptest"
)

type webhookFixture struct {
	*paymentFixture
	store   *cache.InMemoryIdempotencyStore
	mem     *cache.InMemoryCache
	webhook *WebhookService
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		paymentFixture: newPaymentFixture(t),
		store:          cache.NewInMemoryIdempotencyStore(),
		mem:            cache.NewInMemoryCache(),
	}
	t.Cleanup(func() {
		_ = f.store.Close()
		_ = f.mem.Close()
	})
	logger := zaptest.NewLogger(t)
	f.webhook = NewWebhookService(f.scope, f.gateway, f.store,
		catalogapp.NewArtworkCache(f.mem, logger), f.metrics, logger)
	return f
}

func (f *webhookFixture) deliver(t *testing.T, event *WebhookEvent) (*WebhookResult, error) {
	t.Helper()
	f.gateway.event = event
	return f.webhook.ProcessWebhook(context.Background(), []byte(`{}`), "valid")
}

func completedEvent(id, sessionID string) *WebhookEvent {
	return &WebhookEvent{
		ID:              id,
		Type:            EventCheckoutCompleted,
		SessionID:       sessionID,
		PaymentIntentID: "pi_123",
		PaymentStatus:   "paid",
		ReceiptURL:      "https://pay.example.com/receipt",
		PaymentMethod:   "card",
	}
}

func TestWebhookService_InvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)
	_, err := f.webhook.ProcessWebhook(context.Background(), []byte(`{}`), "forged")
	assertCode(t, err, "INVALID_SIGNATURE")
	assert.Equal(t, []string{OutcomeInvalidSignature}, f.metrics.outcomes)
}

func TestWebhookService_ListingFeeCompleted(t *testing.T) {
	f := newWebhookFixture(t)
	artwork := f.newArtwork(t, false)
	tx, err := payment.NewListingFeeTransaction(f.artist.ID, artwork.ID, "cs_fee")
	require.NoError(t, err)
	lp, err := payment.NewListingPayment(f.artist.ID, artwork.ID, "cs_fee")
	require.NoError(t, err)

	f.transactions.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_fee").Return(tx, nil)
	f.listingPayments.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_fee").Return(lp, nil)
	f.listingPayments.On("Update", mock.Anything, lp).Return(nil).Once()
	f.artworks.On("FindByIDForUpdate", mock.Anything, artwork.ID).Return(artwork, nil)
	f.artworks.On("Update", mock.Anything, artwork).Return(nil).Once()
	f.transactions.On("Update", mock.Anything, tx).Return(nil).Once()

	result, err := f.deliver(t, completedEvent("evt_1", "cs_fee"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)

	assert.Equal(t, payment.TransactionStatusCompleted, tx.Status)
	assert.Equal(t, "pi_123", tx.PaymentIntentID)
	assert.Equal(t, "https://pay.example.com/receipt", tx.ReceiptURL)
	assert.Equal(t, payment.ListingPaymentCompleted, lp.Status)
	assert.NotNil(t, lp.PaidAt)
	assert.Equal(t, catalog.ListingFeePaid, artwork.ListingFeeStatus)
	assert.Equal(t, catalog.ArtworkStatusPending, artwork.Status)
	assert.Equal(t, []string{payment.EventTypePaymentCompleted}, f.recorder.Types())
	assert.Equal(t, []int64{payment.ListingFeeAmount}, f.metrics.completed)

	// the same delivery again is acknowledged without touching the ledger
	result, err = f.deliver(t, completedEvent("evt_1", "cs_fee"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, result.Outcome)
	f.transactions.AssertNumberOfCalls(t, "FindByCheckoutSessionForUpdate", 1)
	assert.Len(t, f.recorder.Recorded, 1)
}

func TestWebhookService_SaleCompleted(t *testing.T) {
	f := newWebhookFixture(t)
	artwork := f.newArtwork(t, true)
	tx, err := payment.NewSaleTransaction(f.buyer.ID, f.artist.ID, artwork.ID, "cs_sale", artwork.PriceCents())
	require.NoError(t, err)
	created, err := provenance.NewRecord(artwork.ID, f.artist.ID, f.artist.ID, provenance.TransactionTypeCreated, nil, nil)
	require.NoError(t, err)

	require.NoError(t, f.mem.Set(context.Background(), "artworks:item:"+artwork.ID.String(), "stale", time.Minute))

	f.transactions.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_sale").Return(tx, nil)
	f.artworks.On("FindByIDForUpdate", mock.Anything, artwork.ID).Return(artwork, nil)
	f.artworks.On("Update", mock.Anything, artwork).Return(nil)
	f.records.On("Latest", mock.Anything, artwork.ID).Return(created, nil)
	var sold *provenance.Record
	f.records.On("Append", mock.Anything, mock.AnythingOfType("*provenance.Record")).
		Run(func(args mock.Arguments) { sold = args.Get(1).(*provenance.Record) }).
		Return(nil)
	f.transactions.On("Update", mock.Anything, tx).Return(nil)

	result, err := f.deliver(t, completedEvent("evt_2", "cs_sale"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)

	assert.True(t, tx.IsCompleted())
	assert.True(t, artwork.IsSold())
	assert.Equal(t, f.buyer.ID, artwork.CurrentOwnerID)

	require.NotNil(t, sold)
	assert.Equal(t, provenance.TransactionTypeSold, sold.TransactionType)
	assert.Equal(t, f.artist.ID, sold.FromUserID)
	assert.Equal(t, f.buyer.ID, sold.ToUserID)
	assert.Equal(t, created.TransactionHash, sold.PreviousHash)
	assert.Equal(t, tx.ID.String(), sold.AdditionalData["transactionId"])

	assert.ElementsMatch(t, []string{payment.EventTypePaymentCompleted, catalog.EventTypeArtworkSold}, f.recorder.Types())
	assert.Zero(t, f.mem.Len())
}

func TestWebhookService_ReplayOfCompletedTransaction(t *testing.T) {
	f := newWebhookFixture(t)
	artwork := f.newArtwork(t, true)
	tx, err := payment.NewSaleTransaction(f.buyer.ID, f.artist.ID, artwork.ID, "cs_sale", 5000)
	require.NoError(t, err)
	_, err = tx.Complete("pi_123", "", "card", time.Now())
	require.NoError(t, err)
	tx.PullDomainEvents()

	// payment_intent.succeeded after checkout.session.completed has a new event id
	f.transactions.On("FindByPaymentIntentForUpdate", mock.Anything, "pi_123").Return(tx, nil)
	result, err := f.deliver(t, &WebhookEvent{ID: "evt_3", Type: EventPaymentIntentSucceeded, PaymentIntentID: "pi_123"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeProcessed, result.Outcome)
	assert.Equal(t, "Transaction already completed", result.Message)
	f.transactions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.artworks.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
	assert.Empty(t, f.recorder.Recorded)
	assert.Empty(t, f.metrics.completed)
}

func TestWebhookService_SaleOfUnavailableArtworkRequiresRefund(t *testing.T) {
	f := newWebhookFixture(t)
	artwork := f.newArtwork(t, true)
	require.NoError(t, artwork.MarkSold(uuid.New(), artwork.Price, time.Now()))
	artwork.PullDomainEvents()
	tx, err := payment.NewSaleTransaction(f.buyer.ID, f.artist.ID, artwork.ID, "cs_late", 5000)
	require.NoError(t, err)

	f.transactions.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_late").Return(tx, nil)
	f.artworks.On("FindByIDForUpdate", mock.Anything, artwork.ID).Return(artwork, nil)
	f.transactions.On("Update", mock.Anything, tx).Return(nil)

	result, err := f.deliver(t, completedEvent("evt_4", "cs_late"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefundRequired, result.Outcome)

	// the money was collected, so the ledger still shows the payment
	assert.True(t, tx.IsCompleted())
	assert.True(t, tx.NeedsRefund())
	assert.Equal(t, "ARTWORK_SOLD", tx.Metadata[payment.MetadataRefundReason])
	assert.NotEqual(t, f.buyer.ID, artwork.CurrentOwnerID)
	f.artworks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.records.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)

	assert.Equal(t, []string{payment.EventTypeRefundRequired}, f.recorder.Types())
	refund, ok := f.recorder.Recorded[0].(*payment.RefundRequiredEvent)
	require.True(t, ok)
	assert.Equal(t, "ARTWORK_SOLD", refund.Reason)
	assert.Equal(t, f.buyer.ID, refund.Payer())
	assert.Equal(t, int64(5000), refund.Amount)
	assert.Empty(t, f.metrics.completed)
}

func TestWebhookService_SecondCheckoutOfSameBuyerRequiresRefund(t *testing.T) {
	f := newWebhookFixture(t)
	artwork := f.newArtwork(t, true)
	require.NoError(t, artwork.MarkSold(f.buyer.ID, artwork.Price, time.Now()))
	artwork.PullDomainEvents()
	tx, err := payment.NewSaleTransaction(f.buyer.ID, f.artist.ID, artwork.ID, "cs_again", artwork.PriceCents())
	require.NoError(t, err)

	f.transactions.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_again").Return(tx, nil)
	f.artworks.On("FindByIDForUpdate", mock.Anything, artwork.ID).Return(artwork, nil)
	f.transactions.On("Update", mock.Anything, tx).Return(nil)

	result, err := f.deliver(t, completedEvent("evt_6", "cs_again"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefundRequired, result.Outcome)
	assert.Equal(t, "ALREADY_OWNED", tx.Metadata[payment.MetadataRefundReason])
	assert.Equal(t, []string{payment.EventTypeRefundRequired}, f.recorder.Types())
	f.records.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestWebhookService_SaleOfDeletedArtworkRequiresRefund(t *testing.T) {
	f := newWebhookFixture(t)
	artworkID := uuid.New()
	tx, err := payment.NewSaleTransaction(f.buyer.ID, f.artist.ID, artworkID, "cs_gone", 5000)
	require.NoError(t, err)

	f.transactions.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_gone").Return(tx, nil)
	f.artworks.On("FindByIDForUpdate", mock.Anything, artworkID).Return(nil, shared.ErrNotFound)
	f.transactions.On("Update", mock.Anything, tx).Return(nil)

	result, err := f.deliver(t, completedEvent("evt_7", "cs_gone"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefundRequired, result.Outcome)
	assert.Equal(t, "ARTWORK_DELETED", tx.Metadata[payment.MetadataRefundReason])
	assert.Equal(t, []string{payment.EventTypeRefundRequired}, f.recorder.Types())
}

func TestWebhookService_ListingFeePaidTwiceRequiresRefund(t *testing.T) {
	f := newWebhookFixture(t)
	artwork := f.newArtwork(t, false)
	artwork.MarkListingFeePaid("pi_first", time.Now())
	tx, err := payment.NewListingFeeTransaction(f.artist.ID, artwork.ID, "cs_fee_2")
	require.NoError(t, err)
	lp, err := payment.NewListingPayment(f.artist.ID, artwork.ID, "cs_fee_2")
	require.NoError(t, err)

	f.transactions.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_fee_2").Return(tx, nil)
	f.listingPayments.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_fee_2").Return(lp, nil)
	f.listingPayments.On("Update", mock.Anything, lp).Return(nil)
	f.artworks.On("FindByIDForUpdate", mock.Anything, artwork.ID).Return(artwork, nil)
	f.transactions.On("Update", mock.Anything, tx).Return(nil)

	result, err := f.deliver(t, completedEvent("evt_8", "cs_fee_2"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefundRequired, result.Outcome)

	assert.Equal(t, "pi_first", artwork.ListingFeePaymentIntent)
	assert.Equal(t, catalog.ListingFeePaid, artwork.ListingFeeStatus)
	f.artworks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.Equal(t, "ALREADY_PAID", tx.Metadata[payment.MetadataRefundReason])
	assert.Equal(t, []string{payment.EventTypeRefundRequired}, f.recorder.Types())
	assert.Empty(t, f.metrics.completed)
}

func TestWebhookService_ListingFeeFailed(t *testing.T) {
	f := newWebhookFixture(t)
	artwork := f.newArtwork(t, false)
	require.NoError(t, artwork.MarkListingFeePending())
	tx, err := payment.NewListingFeeTransaction(f.artist.ID, artwork.ID, "cs_fee")
	require.NoError(t, err)
	lp, err := payment.NewListingPayment(f.artist.ID, artwork.ID, "cs_fee")
	require.NoError(t, err)

	f.transactions.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_fee").Return(tx, nil)
	f.listingPayments.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_fee").Return(lp, nil)
	f.listingPayments.On("Update", mock.Anything, lp).Return(nil)
	f.artworks.On("FindByIDForUpdate", mock.Anything, artwork.ID).Return(artwork, nil)
	f.artworks.On("Update", mock.Anything, artwork).Return(nil)
	f.transactions.On("Update", mock.Anything, tx).Return(nil)

	result, err := f.deliver(t, &WebhookEvent{ID: "evt_5", Type: EventCheckoutExpired, SessionID: "cs_fee"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)

	assert.Equal(t, payment.TransactionStatusFailed, tx.Status)
	assert.Equal(t, "checkout session expired", tx.FailureReason)
	assert.Equal(t, payment.ListingPaymentFailed, lp.Status)
	assert.Equal(t, catalog.ListingFeeFailed, artwork.ListingFeeStatus)
	assert.Equal(t, []string{payment.EventTypePaymentFailed}, f.recorder.Types())
}

func TestWebhookService_FailureAfterCompletionIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	tx, err := payment.NewSaleTransaction(f.buyer.ID, f.artist.ID, uuid.New(), "cs_sale", 5000)
	require.NoError(t, err)
	_, err = tx.Complete("pi_123", "", "", time.Now())
	require.NoError(t, err)
	tx.PullDomainEvents()

	f.transactions.On("FindByPaymentIntentForUpdate", mock.Anything, "pi_123").Return(tx, nil)
	result, err := f.deliver(t, &WebhookEvent{
		ID:              "evt_6",
		Type:            EventPaymentIntentFailed,
		PaymentIntentID: "pi_123",
		FailureReason:   "card_declined",
	})
	require.NoError(t, err)
	assert.Equal(t, "Transaction is no longer pending", result.Message)
	assert.True(t, tx.IsCompleted())
	assert.Empty(t, f.recorder.Recorded)
}

func TestWebhookService_ReleasesEventOnFailure(t *testing.T) {
	f := newWebhookFixture(t)
	tx, err := payment.NewSaleTransaction(f.buyer.ID, f.artist.ID, uuid.New(), "cs_sale", 5000)
	require.NoError(t, err)

	f.transactions.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_sale").
		Return(nil, errors.New("connection refused")).Once()
	_, err = f.deliver(t, &WebhookEvent{ID: "evt_7", Type: EventCheckoutAsyncPaymentFailed, SessionID: "cs_sale"})
	require.Error(t, err)

	processed, err := f.store.IsProcessed(context.Background(), "webhook:evt_7")
	require.NoError(t, err)
	assert.False(t, processed)

	// the gateway retry goes through
	f.transactions.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_sale").Return(tx, nil).Once()
	f.transactions.On("Update", mock.Anything, tx).Return(nil)
	result, err := f.deliver(t, &WebhookEvent{ID: "evt_7", Type: EventCheckoutAsyncPaymentFailed, SessionID: "cs_sale"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)
	assert.Equal(t, payment.TransactionStatusFailed, tx.Status)
	assert.Equal(t, []string{OutcomeFailed, OutcomeProcessed}, f.metrics.outcomes)
}

func TestWebhookService_IgnoredEvents(t *testing.T) {
	tests := []struct {
		name  string
		event *WebhookEvent
		setup func(f *webhookFixture)
	}{
		{
			name:  "unhandled type",
			event: &WebhookEvent{ID: "evt_a", Type: "customer.created"},
		},
		{
			name:  "checkout awaiting async payment",
			event: &WebhookEvent{ID: "evt_b", Type: EventCheckoutCompleted, SessionID: "cs_x", PaymentStatus: "unpaid"},
		},
		{
			name:  "unknown session",
			event: completedEvent("evt_c", "cs_foreign"),
			setup: func(f *webhookFixture) {
				f.transactions.On("FindByCheckoutSessionForUpdate", mock.Anything, "cs_foreign").
					Return(nil, shared.ErrNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWebhookFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			result, err := f.deliver(t, tt.event)
			require.NoError(t, err)
			assert.Equal(t, OutcomeIgnored, result.Outcome)
			assert.Empty(t, f.recorder.Recorded)
		})
	}
}
