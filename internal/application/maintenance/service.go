// Package maintenance holds the periodic housekeeping jobs of the marketplace.
package maintenance

import (
	"context"
	"errors"
	"time"

	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// expiryBatchSize bounds how many stale transactions one run expires
const expiryBatchSize = 200

// OutboxCounter reports outbox entry counts by status
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// Config holds the maintenance thresholds
type Config struct {
	// PresenceTimeout is how long an online user may stay silent
	PresenceTimeout time.Duration
}

// Service expires abandoned checkouts, clears stale presence and watches
// the outbox dead letters
type Service struct {
	txScope      appshared.TransactionScope
	transactions payment.TransactionRepository
	users        identity.UserRepository
	outbox       OutboxCounter
	config       Config
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a new maintenance service
func NewService(
	txScope appshared.TransactionScope,
	transactions payment.TransactionRepository,
	users identity.UserRepository,
	outbox OutboxCounter,
	config Config,
	logger *zap.Logger,
) *Service {
	if config.PresenceTimeout <= 0 {
		config.PresenceTimeout = 5 * time.Minute
	}
	return &Service{
		txScope:      txScope,
		transactions: transactions,
		users:        users,
		outbox:       outbox,
		config:       config,
		logger:       logger,
		now:          time.Now,
	}
}

// ExpireStalePayments fails pending transactions whose checkout session
// outlived its lifetime. Listing fee expiries also fail the listing payment
// and the artwork's fee status. No failure email is sent.
func (s *Service) ExpireStalePayments(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.transactions.FindPendingBefore(ctx, now.Add(-payment.SessionLifetime), expiryBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for _, t := range stale {
		changed, err := s.expire(ctx, t.CheckoutSessionID, now)
		if err != nil {
			s.logger.Error("Failed to expire transaction",
				zap.String("transaction_id", t.ID.String()),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if changed {
			expired++
		}
	}

	if expired > 0 {
		s.logger.Info("Expired stale checkout sessions", zap.Int("count", expired))
	}
	return expired, errors.Join(errs...)
}

func (s *Service) expire(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	changed := false
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		t, err := repos.Transactions().FindByCheckoutSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		// The webhook may have settled it since the scan
		if !t.Expire(now) {
			return nil
		}
		if err := repos.Transactions().Update(ctx, t); err != nil {
			return err
		}
		changed = true

		if t.Type != payment.TransactionTypeListingFee {
			return nil
		}
		lp, err := repos.ListingPayments().FindByCheckoutSessionForUpdate(ctx, sessionID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
		case err != nil:
			return err
		case lp.Fail():
			if err := repos.ListingPayments().Update(ctx, lp); err != nil {
				return err
			}
		}

		artwork, err := repos.Artworks().FindByIDForUpdate(ctx, t.ArtworkID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		artwork.MarkListingFeeFailed()
		return repos.Artworks().Update(ctx, artwork)
	})
	return changed, err
}

// SweepPresence marks users offline that were not seen within the presence timeout
func (s *Service) SweepPresence(ctx context.Context) (int64, error) {
	n, err := s.users.MarkStaleOffline(ctx, s.now().Add(-s.config.PresenceTimeout))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("Marked stale users offline", zap.Int64("count", n))
	}
	return n, nil
}

// ReportDeadLetters logs the number of outbox entries that exhausted their retries
func (s *Service) ReportDeadLetters(ctx context.Context) (int64, error) {
	counts, err := s.outbox.CountByStatus(ctx)
	if err != nil {
		return 0, err
	}
	dead := counts[shared.OutboxStatusDead]
	if dead > 0 {
		s.logger.Warn("Outbox has dead letter entries",
			zap.Int64("dead", dead),
			zap.Int64("failed", counts[shared.OutboxStatusFailed]),
			zap.Int64("pending", counts[shared.OutboxStatusPending]))
	}
	return dead, nil
}
