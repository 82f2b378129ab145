package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// JobArtworkCleanup is the name of the cleanup job
const JobArtworkCleanup = "artwork-cleanup"

// ArtworkCleanupHandler handles ArtworkDeletedEvent: stored images and
// unfinished listing payments of the artwork are removed. Every step is
// idempotent so a retried job repeats the whole run.
type ArtworkCleanupHandler struct {
	storage         ImageStorage
	listingPayments payment.ListingPaymentRepository
	cache           *ArtworkCache
	logger          *zap.Logger
}

// NewArtworkCleanupHandler creates a new ArtworkCleanupHandler
func NewArtworkCleanupHandler(
	storage ImageStorage,
	listingPayments payment.ListingPaymentRepository,
	cache *ArtworkCache,
	logger *zap.Logger,
) *ArtworkCleanupHandler {
	return &ArtworkCleanupHandler{
		storage:         storage,
		listingPayments: listingPayments,
		cache:           cache,
		logger:          logger,
	}
}

// Name returns the job name
func (h *ArtworkCleanupHandler) Name() string { return JobArtworkCleanup }

// EventTypes returns the event types this handler is interested in
func (h *ArtworkCleanupHandler) EventTypes() []string {
	return []string{catalog.EventTypeArtworkDeleted}
}

// Handle processes an ArtworkDeletedEvent
func (h *ArtworkCleanupHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	deleted, ok := event.(*catalog.ArtworkDeletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", catalog.EventTypeArtworkDeleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			catalog.EventTypeArtworkDeleted, event.EventType())
	}
	artworkID := deleted.AggregateID()

	var errs []error
	removed := 0
	for _, url := range deleted.Images {
		key, ok := h.storage.KeyFromURL(url)
		if !ok {
			// hosted elsewhere
			continue
		}
		if err := h.storage.DeleteObject(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete image %s: %w", key, err))
			continue
		}
		removed++
	}

	payments, err := h.listingPayments.DeleteUnfinishedByArtwork(ctx, artworkID)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete listing payments: %w", err))
	}

	h.cache.Invalidate(ctx, artworkID)

	if err := errors.Join(errs...); err != nil {
		h.logger.Warn("Artwork cleanup incomplete",
			zap.String("artwork_id", artworkID.String()),
			zap.Error(err))
		return err
	}
	h.logger.Info("Artwork cleanup completed",
		zap.String("artwork_id", artworkID.String()),
		zap.Int("images_removed", removed),
		zap.Int64("listing_payments_removed", payments))
	return nil
}
