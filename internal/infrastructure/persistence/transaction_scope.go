package persistence

import (
	"context"

	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/provenance"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Events recorded inside the scope are written to the outbox in the same transaction.
type GormTransactionScope struct {
	db    *gorm.DB
	saver shared.OutboxEventSaver
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, saver shared.OutboxEventSaver) *GormTransactionScope {
	return &GormTransactionScope{db: db, saver: saver}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appshared.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, saver: s.saver})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx    *gorm.DB
	saver shared.OutboxEventSaver
}

func (r *gormTransactionalRepositories) Users() identity.UserRepository {
	return NewGormUserRepository(r.tx)
}

func (r *gormTransactionalRepositories) Artworks() catalog.ArtworkRepository {
	return NewGormArtworkRepository(r.tx)
}

func (r *gormTransactionalRepositories) Provenance() provenance.RecordRepository {
	return NewGormProvenanceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Transactions() payment.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) ListingPayments() payment.ListingPaymentRepository {
	return NewGormListingPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Events() appshared.EventRecorder {
	return outboxRecorder{tx: r.tx, saver: r.saver}
}

// outboxRecorder binds the outbox saver to the current transaction
type outboxRecorder struct {
	tx    *gorm.DB
	saver shared.OutboxEventSaver
}

func (o outboxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 || o.saver == nil {
		return nil
	}
	return o.saver.SaveEvents(ctx, o.tx, events...)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appshared.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appshared.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
