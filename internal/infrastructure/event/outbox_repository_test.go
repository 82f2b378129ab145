package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.OutboxEntryModel{}))
	return db
}

func saveTestEntry(t *testing.T, repo *GormOutboxRepository, eventType string) *shared.OutboxEntry {
	t.Helper()
	entry := shared.NewOutboxEntry(newTestEvent(eventType), []byte(`{"data":"test data"}`))
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func TestGormOutboxRepository_SaveAndFind(t *testing.T) {
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx))

	entry := saveTestEntry(t, repo, "TestEvent")

	found, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.EventID, found.EventID)
	assert.Equal(t, "TestEvent", found.EventType)
	assert.Equal(t, shared.DefaultBaseBackoff, found.BaseBackoff)
	assert.JSONEq(t, `{"data":"test data"}`, string(found.Payload))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entry.ID, pending[0].ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOutboxRepository_MarkProcessing(t *testing.T) {
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	ctx := context.Background()

	first := saveTestEntry(t, repo, "TestEvent")
	second := saveTestEntry(t, repo, "TestEvent")
	second.MarkSent()
	require.NoError(t, repo.Update(ctx, second))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, first.ID, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{first.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "entries already processing cannot be claimed twice")

	none, err := repo.MarkProcessing(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormOutboxRepository_RetryAndDeadLetters(t *testing.T) {
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	ctx := context.Background()

	retrying := saveTestEntry(t, repo, "TestEvent")
	retrying.MarkFailed("temporary")
	require.NoError(t, repo.Update(ctx, retrying))

	dead := saveTestEntry(t, repo, "TestEvent")
	for !dead.IsDead() {
		dead.MarkFailed("permanent")
	}
	require.NoError(t, repo.Update(ctx, dead))

	due, err := repo.FindRetryable(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, retrying.ID, due[0].ID)

	notYet, err := repo.FindRetryable(ctx, time.Now().UTC().Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, notYet)

	deadEntries, total, err := repo.FindDead(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, deadEntries, 1)
	assert.Equal(t, "permanent", deadEntries[0].LastError)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
}

func TestGormOutboxRepository_DeleteOlderThan(t *testing.T) {
	repo := NewGormOutboxRepository(setupOutboxDB(t))
	ctx := context.Background()

	sent := saveTestEntry(t, repo, "TestEvent")
	sent.MarkSent()
	old := sent.ProcessedAt.UTC().Add(-8 * 24 * time.Hour)
	sent.ProcessedAt = &old
	require.NoError(t, repo.Update(ctx, sent))
	saveTestEntry(t, repo, "TestEvent")

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestGormOutboxRepository_WithTx(t *testing.T) {
	db := setupOutboxDB(t)
	repo := NewGormOutboxRepository(db)

	newRepo := repo.WithTx(db)

	assert.NotNil(t, newRepo)
	assert.NotSame(t, repo, newRepo)
}
