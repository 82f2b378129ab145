// Package shared holds ports used by more than one application service.
package shared

import (
	"context"

	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/provenance"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// TransactionScope provides transactional access to the marketplace repositories.
// All repository operations executed inside Execute are part of one database
// transaction and are committed or rolled back atomically, together with the
// outbox entries recorded through Events.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// EventRecorder writes domain events to the outbox of the current transaction
type EventRecorder interface {
	Record(ctx context.Context, events ...shared.DomainEvent) error
}

// TransactionalRepositories provides access to the repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	Users() identity.UserRepository
	Artworks() catalog.ArtworkRepository
	Provenance() provenance.RecordRepository
	Transactions() payment.TransactionRepository
	ListingPayments() payment.ListingPaymentRepository
	Events() EventRecorder
}

// Repositories is the set of repositories handed to a NoOpTransactionScope
type Repositories struct {
	UserRepo           identity.UserRepository
	ArtworkRepo        catalog.ArtworkRepository
	ProvenanceRepo     provenance.RecordRepository
	TransactionRepo    payment.TransactionRepository
	ListingPaymentRepo payment.ListingPaymentRepository
	Recorder           EventRecorder
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	if repos.Recorder == nil {
		repos.Recorder = &CollectingRecorder{}
	}
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Users returns the user repository.
func (s *NoOpTransactionScope) Users() identity.UserRepository { return s.repos.UserRepo }

// Artworks returns the artwork repository.
func (s *NoOpTransactionScope) Artworks() catalog.ArtworkRepository { return s.repos.ArtworkRepo }

// Provenance returns the traceability record repository.
func (s *NoOpTransactionScope) Provenance() provenance.RecordRepository {
	return s.repos.ProvenanceRepo
}

// Transactions returns the payment transaction repository.
func (s *NoOpTransactionScope) Transactions() payment.TransactionRepository {
	return s.repos.TransactionRepo
}

// ListingPayments returns the listing payment repository.
func (s *NoOpTransactionScope) ListingPayments() payment.ListingPaymentRepository {
	return s.repos.ListingPaymentRepo
}

// Events returns the event recorder.
func (s *NoOpTransactionScope) Events() EventRecorder { return s.repos.Recorder }

// CollectingRecorder keeps recorded events in memory
type CollectingRecorder struct {
	Recorded []shared.DomainEvent
}

// Record appends the events
func (r *CollectingRecorder) Record(_ context.Context, events ...shared.DomainEvent) error {
	r.Recorded = append(r.Recorded, events...)
	return nil
}

// Types returns the event types recorded so far, in order
func (r *CollectingRecorder) Types() []string {
	types := make([]string, len(r.Recorded))
	for i, e := range r.Recorded {
		types[i] = e.EventType()
	}
	return types
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
