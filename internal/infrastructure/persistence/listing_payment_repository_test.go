package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/payment"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

func TestGormListingPaymentRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormListingPaymentRepository(db)
	ctx := context.Background()
	artist := createTestUser(t, db, "painter", identity.RoleArtist)
	artwork := createTestArtwork(t, db, artist.ID, "Still Life", "60")

	failed, err := payment.NewListingPayment(artist.ID, artwork.ID, "cs_first")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, failed))
	require.True(t, failed.Fail())
	require.NoError(t, repo.Update(ctx, failed))

	paid, err := payment.NewListingPayment(artist.ID, artwork.ID, "cs_second")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, paid))

	done, err := repo.HasCompleted(ctx, artwork.ID)
	require.NoError(t, err)
	assert.False(t, done)

	locked, err := repo.FindByCheckoutSessionForUpdate(ctx, "cs_second")
	require.NoError(t, err)
	require.True(t, locked.Complete("pi_123", time.Now().UTC()))
	require.NoError(t, repo.Update(ctx, locked))

	done, err = repo.HasCompleted(ctx, artwork.ID)
	require.NoError(t, err)
	assert.True(t, done)

	reloaded, err := repo.FindByCheckoutSessionForUpdate(ctx, "cs_second")
	require.NoError(t, err)
	assert.Equal(t, payment.ListingPaymentCompleted, reloaded.Status)
	assert.Equal(t, "pi_123", reloaded.PaymentIntentID)
	assert.Equal(t, payment.ListingFeeAmount, reloaded.Amount)
	assert.NotNil(t, reloaded.PaidAt)

	removed, err := repo.DeleteUnfinishedByArtwork(ctx, artwork.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.FindByCheckoutSessionForUpdate(ctx, "cs_first")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
