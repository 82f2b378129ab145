package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	catalogapp "github.com/thirdhand/marketplace/internal/application/catalog"
	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/provenance"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// WebhookIdempotencyTTL is how long a processed gateway event id is remembered
	WebhookIdempotencyTTL = 24 * time.Hour

	webhookKeyPrefix  = "webhook:"
	paymentStatusPaid = "paid"
)

// Refund reasons recorded on payments that could not be fulfilled
const (
	refundArtworkDeleted = "ARTWORK_DELETED"
	refundAlreadyPaid    = "ALREADY_PAID"
	refundAlreadyOwned   = "ALREADY_OWNED"
	refundNoBuyer        = "NO_BUYER"
)

var tracer = otel.Tracer("github.com/thirdhand/marketplace/internal/application/payment")

// WebhookService reconciles gateway notifications with the ledger
type WebhookService struct {
	txScope     appshared.TransactionScope
	gateway     Gateway
	idempotency shared.IdempotencyStore
	cache       *catalogapp.ArtworkCache
	metrics     Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(
	txScope appshared.TransactionScope,
	gateway Gateway,
	idempotency shared.IdempotencyStore,
	cache *catalogapp.ArtworkCache,
	metrics Metrics,
	logger *zap.Logger,
) *WebhookService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &WebhookService{
		txScope:     txScope,
		gateway:     gateway,
		idempotency: idempotency,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// reconciliation is what one handled event changed
type reconciliation struct {
	outcome     string
	message     string
	transaction *payment.Transaction
	completed   bool
	artworkID   *uuid.UUID
}

// ProcessWebhook verifies, deduplicates and applies a gateway notification.
// A returned error means the gateway should retry the delivery.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "payment.webhook", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			s.logger.Warn("Rejected webhook with invalid signature")
			s.metrics.WebhookHandled(ctx, "unknown", OutcomeInvalidSignature, time.Since(start))
			span.SetStatus(codes.Error, "invalid signature")
			return nil, shared.WrapDomainError("INVALID_SIGNATURE", "Invalid webhook signature", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid payload")
		return nil, shared.WrapDomainError("INVALID_PAYLOAD", "Invalid webhook payload", err)
	}
	span.SetAttributes(
		attribute.String("payment.event_id", event.ID),
		attribute.String("payment.event_type", event.Type),
		attribute.String("payment.session_id", event.SessionID),
	)
	logger := s.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type))

	result := &WebhookResult{EventID: event.ID, EventType: event.Type}

	key := webhookKeyPrefix + event.ID
	claimed, err := s.idempotency.MarkProcessed(ctx, key, WebhookIdempotencyTTL)
	if err != nil {
		logger.Error("Failed to claim webhook event", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "idempotency store")
		s.metrics.WebhookHandled(ctx, event.Type, OutcomeFailed, time.Since(start))
		return nil, err
	}
	if !claimed {
		logger.Info("Duplicate webhook event acknowledged")
		result.Outcome = OutcomeDuplicate
		result.Message = "Event already processed"
		span.SetAttributes(attribute.String("payment.outcome", result.Outcome))
		s.metrics.WebhookHandled(ctx, event.Type, OutcomeDuplicate, time.Since(start))
		return result, nil
	}

	rec, err := s.dispatch(ctx, event)
	if err != nil {
		if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
			logger.Error("Failed to release webhook event", zap.Error(releaseErr))
		}
		logger.Error("Webhook processing failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "processing failed")
		s.metrics.WebhookHandled(ctx, event.Type, OutcomeFailed, time.Since(start))
		return nil, err
	}

	if rec.artworkID != nil {
		s.cache.Invalidate(ctx, *rec.artworkID)
	}
	if rec.completed && rec.transaction != nil {
		s.metrics.PaymentCompleted(ctx, rec.transaction.Type, rec.transaction.Amount)
	}

	result.Outcome = rec.outcome
	result.Message = rec.message
	span.SetAttributes(attribute.String("payment.outcome", rec.outcome))
	s.metrics.WebhookHandled(ctx, event.Type, rec.outcome, time.Since(start))
	logger.Info("Webhook handled", zap.String("outcome", rec.outcome), zap.String("message", rec.message))
	return result, nil
}

func (s *WebhookService) dispatch(ctx context.Context, event *WebhookEvent) (*reconciliation, error) {
	switch event.Type {
	case EventCheckoutCompleted:
		if event.PaymentStatus != paymentStatusPaid {
			// async methods settle later through async_payment_succeeded
			return ignored("Checkout completed without payment yet"), nil
		}
		return s.handleSuccess(ctx, event)
	case EventCheckoutAsyncPaymentSucceed, EventPaymentIntentSucceeded:
		return s.handleSuccess(ctx, event)
	case EventCheckoutExpired, EventCheckoutAsyncPaymentFailed, EventPaymentIntentFailed:
		return s.handleFailure(ctx, event)
	default:
		return ignored("Unhandled event type"), nil
	}
}

func (s *WebhookService) handleSuccess(ctx context.Context, event *WebhookEvent) (*reconciliation, error) {
	ctx, span := tracer.Start(ctx, "payment.webhook.complete")
	defer span.End()

	rec := &reconciliation{outcome: OutcomeProcessed}
	now := s.now()

	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		tx, err := findTransaction(ctx, repos, event)
		if err != nil {
			return err
		}
		if tx == nil {
			*rec = *ignored("No transaction for this payment")
			return nil
		}
		rec.transaction = tx
		span.SetAttributes(
			attribute.String("payment.transaction_id", tx.ID.String()),
			attribute.String("payment.transaction_type", string(tx.Type)))

		changed, err := tx.Complete(event.PaymentIntentID, event.ReceiptURL, event.PaymentMethod, now)
		if de, ok := shared.AsDomainError(err); ok {
			// refunded transactions stay refunded
			*rec = *ignored(de.Message)
			return nil
		}
		if err != nil {
			return err
		}
		if !changed {
			rec.message = "Transaction already completed"
			return nil
		}
		rec.completed = true

		var (
			events []shared.DomainEvent
			refund string
		)
		switch tx.Type {
		case payment.TransactionTypeListingFee:
			if refund, err = s.completeListingFee(ctx, repos, tx, now); err != nil {
				return err
			}
			rec.message = "Listing fee paid"
		case payment.TransactionTypeSale:
			if events, refund, err = s.completeSale(ctx, repos, tx, now); err != nil {
				return err
			}
			rec.artworkID = &tx.ArtworkID
			rec.message = "Sale completed"
		}
		if refund != "" {
			tx.RequireRefund(refund)
			rec.completed = false
			rec.outcome = OutcomeRefundRequired
			rec.message = "Payment collected but not fulfilled, refund required"
			span.SetAttributes(attribute.String("payment.refund_reason", refund))
		}

		if err := repos.Transactions().Update(ctx, tx); err != nil {
			return err
		}
		events = append(tx.PullDomainEvents(), events...)
		return repos.Events().Record(ctx, events...)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rec, nil
}

// completeListingFee marks the fee paid. It returns a refund reason when the
// artwork is gone or its fee was already paid through another checkout.
func (s *WebhookService) completeListingFee(ctx context.Context, repos appshared.TransactionalRepositories, tx *payment.Transaction, now time.Time) (string, error) {
	logger := s.logger.With(
		zap.String("transaction_id", tx.ID.String()),
		zap.String("artwork_id", tx.ArtworkID.String()))

	lp, err := repos.ListingPayments().FindByCheckoutSessionForUpdate(ctx, tx.CheckoutSessionID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		logger.Warn("Listing payment missing for completed listing fee",
			zap.String("session_id", tx.CheckoutSessionID))
	case err != nil:
		return "", err
	default:
		if lp.Complete(tx.PaymentIntentID, now) {
			if err := repos.ListingPayments().Update(ctx, lp); err != nil {
				return "", err
			}
		}
	}

	artwork, err := repos.Artworks().FindByIDForUpdate(ctx, tx.ArtworkID)
	if errors.Is(err, shared.ErrNotFound) {
		logger.Error("Listing fee paid for a deleted artwork, refund required")
		return refundArtworkDeleted, nil
	}
	if err != nil {
		return "", err
	}
	if artwork.ListingFeeStatus == catalog.ListingFeePaid && artwork.ListingFeePaymentIntent != tx.PaymentIntentID {
		logger.Error("Listing fee paid twice, refund required",
			zap.String("paid_with", artwork.ListingFeePaymentIntent))
		return refundAlreadyPaid, nil
	}
	// the artwork stays pending until moderation
	artwork.MarkListingFeePaid(tx.PaymentIntentID, now)
	return "", repos.Artworks().Update(ctx, artwork)
}

// completeSale transfers the artwork to the buyer and extends its chain.
// Money already collected is never rejected here: when the artwork can no
// longer be sold it returns a refund reason and the payment still completes.
func (s *WebhookService) completeSale(ctx context.Context, repos appshared.TransactionalRepositories, tx *payment.Transaction, now time.Time) ([]shared.DomainEvent, string, error) {
	logger := s.logger.With(
		zap.String("transaction_id", tx.ID.String()),
		zap.String("artwork_id", tx.ArtworkID.String()))
	if tx.BuyerID == nil {
		logger.Error("Sale transaction without buyer")
		return nil, refundNoBuyer, nil
	}
	buyerID := *tx.BuyerID

	artwork, err := repos.Artworks().FindByIDForUpdate(ctx, tx.ArtworkID)
	if errors.Is(err, shared.ErrNotFound) {
		logger.Error("Sale paid for a deleted artwork, refund required")
		return nil, refundArtworkDeleted, nil
	}
	if err != nil {
		return nil, "", err
	}
	if artwork.IsSold() && artwork.CurrentOwnerID == buyerID {
		// a second checkout of the same buyer; the first one already transferred it
		logger.Error("Buyer paid twice for the same artwork, refund required")
		return nil, refundAlreadyOwned, nil
	}

	seller := artwork.CurrentOwnerID
	if err := artwork.MarkSold(buyerID, tx.AmountEuros(), now); err != nil {
		if de, ok := shared.AsDomainError(err); ok {
			logger.Error("Sale paid for an unavailable artwork, refund required", zap.String("reason", de.Code))
			return nil, de.Code, nil
		}
		return nil, "", err
	}
	if err := repos.Artworks().Update(ctx, artwork); err != nil {
		return nil, "", err
	}

	previous, err := repos.Provenance().Latest(ctx, artwork.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, "", err
		}
		previous = nil
	}
	record, err := provenance.NewRecord(artwork.ID, seller, buyerID, provenance.TransactionTypeSold, previous, map[string]any{
		"price":             tx.AmountEuros().InexactFloat64(),
		"transactionId":     tx.ID.String(),
		"checkoutSessionId": tx.CheckoutSessionID,
	})
	if err != nil {
		return nil, "", err
	}
	if err := repos.Provenance().Append(ctx, record); err != nil {
		return nil, "", err
	}

	logger.Info("Artwork sold",
		zap.String("buyer_id", buyerID.String()),
		zap.String("traceability_hash", record.TransactionHash))
	return artwork.PullDomainEvents(), "", nil
}

func (s *WebhookService) handleFailure(ctx context.Context, event *WebhookEvent) (*reconciliation, error) {
	ctx, span := tracer.Start(ctx, "payment.webhook.fail")
	defer span.End()

	rec := &reconciliation{outcome: OutcomeProcessed}
	now := s.now()
	reason := event.FailureReason
	if reason == "" && event.Type == EventCheckoutExpired {
		reason = "checkout session expired"
	}

	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		tx, err := findTransaction(ctx, repos, event)
		if err != nil {
			return err
		}
		if tx == nil {
			*rec = *ignored("No transaction for this payment")
			return nil
		}
		rec.transaction = tx
		if !tx.Fail(reason, now) {
			rec.message = "Transaction is no longer pending"
			return nil
		}

		if tx.Type == payment.TransactionTypeListingFee {
			if err := s.failListingFee(ctx, repos, tx); err != nil {
				return err
			}
		}
		if err := repos.Transactions().Update(ctx, tx); err != nil {
			return err
		}
		rec.message = "Payment marked failed"
		return repos.Events().Record(ctx, tx.PullDomainEvents()...)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return rec, nil
}

func (s *WebhookService) failListingFee(ctx context.Context, repos appshared.TransactionalRepositories, tx *payment.Transaction) error {
	lp, err := repos.ListingPayments().FindByCheckoutSessionForUpdate(ctx, tx.CheckoutSessionID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if lp != nil && lp.Fail() {
		if err := repos.ListingPayments().Update(ctx, lp); err != nil {
			return err
		}
	}

	artwork, err := repos.Artworks().FindByIDForUpdate(ctx, tx.ArtworkID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	artwork.MarkListingFeeFailed()
	return repos.Artworks().Update(ctx, artwork)
}

// findTransaction locks the transaction of an event, by session first.
// A nil transaction means the payment is not ours or not recorded yet.
func findTransaction(ctx context.Context, repos appshared.TransactionalRepositories, event *WebhookEvent) (*payment.Transaction, error) {
	var (
		tx  *payment.Transaction
		err error
	)
	switch {
	case event.SessionID != "":
		tx, err = repos.Transactions().FindByCheckoutSessionForUpdate(ctx, event.SessionID)
	case event.PaymentIntentID != "":
		tx, err = repos.Transactions().FindByPaymentIntentForUpdate(ctx, event.PaymentIntentID)
	default:
		return nil, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return tx, err
}

func ignored(message string) *reconciliation {
	return &reconciliation{outcome: OutcomeIgnored, message: message}
}
