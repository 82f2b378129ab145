package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/messaging"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/provenance"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*identity.User, error) {
	args := m.Called(ctx, hash, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) FindOnline(ctx context.Context, role *identity.Role) ([]*identity.User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	args := m.Called(ctx, email, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) SetPresence(ctx context.Context, id uuid.UUID, online bool, at time.Time) error {
	args := m.Called(ctx, id, online, at)
	return args.Error(0)
}

func (m *MockUserRepository) RecordMessage(ctx context.Context, senderID, receiverID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, senderID, receiverID, at)
	return args.Error(0)
}

func (m *MockUserRepository) MarkStaleOffline(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Stats(ctx context.Context, since time.Time) (*identity.UserStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.UserStats), args.Error(1)
}

// MockArtworkRepository is a mock implementation of catalog.ArtworkRepository
type MockArtworkRepository struct {
	mock.Mock
}

func (m *MockArtworkRepository) Create(ctx context.Context, artwork *catalog.Artwork) error {
	args := m.Called(ctx, artwork)
	return args.Error(0)
}

func (m *MockArtworkRepository) Update(ctx context.Context, artwork *catalog.Artwork) error {
	args := m.Called(ctx, artwork)
	return args.Error(0)
}

func (m *MockArtworkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockArtworkRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Artwork, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Artwork), args.Error(1)
}

func (m *MockArtworkRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Artwork, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Artwork), args.Error(1)
}

func (m *MockArtworkRepository) FindAll(ctx context.Context, filter catalog.ArtworkFilter) ([]*catalog.Artwork, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*catalog.Artwork), args.Get(1).(int64), args.Error(2)
}

func (m *MockArtworkRepository) Stats(ctx context.Context, artistID *uuid.UUID) (*catalog.ArtworkStats, error) {
	args := m.Called(ctx, artistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ArtworkStats), args.Error(1)
}

func (m *MockArtworkRepository) TopArtists(ctx context.Context, since *time.Time, limit int) ([]catalog.ArtistSales, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).([]catalog.ArtistSales), args.Error(1)
}

func (m *MockArtworkRepository) TopArtworks(ctx context.Context, since *time.Time, medium string, limit int) ([]*catalog.Artwork, error) {
	args := m.Called(ctx, since, medium, limit)
	return args.Get(0).([]*catalog.Artwork), args.Error(1)
}

func (m *MockArtworkRepository) TopCategories(ctx context.Context, since *time.Time, limit int) ([]catalog.CategorySales, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).([]catalog.CategorySales), args.Error(1)
}

// MockRecordRepository is a mock implementation of provenance.RecordRepository
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) Append(ctx context.Context, record *provenance.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRecordRepository) ListByArtwork(ctx context.Context, artworkID uuid.UUID) ([]*provenance.Record, error) {
	args := m.Called(ctx, artworkID)
	return args.Get(0).([]*provenance.Record), args.Error(1)
}

func (m *MockRecordRepository) FindByHash(ctx context.Context, hash string) (*provenance.Record, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provenance.Record), args.Error(1)
}

func (m *MockRecordRepository) Latest(ctx context.Context, artworkID uuid.UUID) (*provenance.Record, error) {
	args := m.Called(ctx, artworkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provenance.Record), args.Error(1)
}

// MockTransactionRepository is a mock implementation of payment.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, t *payment.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransactionRepository) Update(ctx context.Context, t *payment.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByCheckoutSessionForUpdate(ctx context.Context, sessionID string) (*payment.Transaction, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByPaymentIntentForUpdate(ctx context.Context, paymentIntentID string) (*payment.Transaction, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAll(ctx context.Context, filter payment.TransactionFilter) ([]*payment.Transaction, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*payment.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]*payment.Transaction, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]*payment.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) HasOpenSale(ctx context.Context, artworkID, exceptBuyerID uuid.UUID, since time.Time) (bool, error) {
	args := m.Called(ctx, artworkID, exceptBuyerID, since)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) StatsForUser(ctx context.Context, userID uuid.UUID) (*payment.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.UserStats), args.Error(1)
}

func (m *MockTransactionRepository) PlatformRevenue(ctx context.Context) (*payment.RevenueSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RevenueSummary), args.Error(1)
}

// MockListingPaymentRepository is a mock implementation of payment.ListingPaymentRepository
type MockListingPaymentRepository struct {
	mock.Mock
}

func (m *MockListingPaymentRepository) Create(ctx context.Context, p *payment.ListingPayment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockListingPaymentRepository) Update(ctx context.Context, p *payment.ListingPayment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockListingPaymentRepository) FindByCheckoutSessionForUpdate(ctx context.Context, sessionID string) (*payment.ListingPayment, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ListingPayment), args.Error(1)
}

func (m *MockListingPaymentRepository) HasCompleted(ctx context.Context, artworkID uuid.UUID) (bool, error) {
	args := m.Called(ctx, artworkID)
	return args.Bool(0), args.Error(1)
}

func (m *MockListingPaymentRepository) DeleteUnfinishedByArtwork(ctx context.Context, artworkID uuid.UUID) (int64, error) {
	args := m.Called(ctx, artworkID)
	return args.Get(0).(int64), args.Error(1)
}

// MockMessageRepository is a mock implementation of messaging.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *messaging.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) ListConversation(ctx context.Context, conversationID string, opts shared.ListOptions) ([]*messaging.Message, int64, error) {
	args := m.Called(ctx, conversationID, opts)
	return args.Get(0).([]*messaging.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessageRepository) Conversations(ctx context.Context, userID uuid.UUID) ([]messaging.Conversation, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]messaging.Conversation), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, senderID, receiverID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, senderID, receiverID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockOutboxRepository is a mock implementation of shared.OutboxRepository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]*shared.OutboxEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[shared.OutboxStatus]int64), args.Error(1)
}

var (
	_ shared.OutboxRepository          = (*MockOutboxRepository)(nil)
	_ identity.UserRepository          = (*MockUserRepository)(nil)
	_ catalog.ArtworkRepository        = (*MockArtworkRepository)(nil)
	_ provenance.RecordRepository      = (*MockRecordRepository)(nil)
	_ payment.TransactionRepository    = (*MockTransactionRepository)(nil)
	_ payment.ListingPaymentRepository = (*MockListingPaymentRepository)(nil)
	_ messaging.MessageRepository      = (*MockMessageRepository)(nil)
)
