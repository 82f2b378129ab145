package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/shared"
)

func TestGormUserRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "painter", identity.RoleArtist)

	t.Run("finds by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "painter", found.Username)
		assert.Equal(t, identity.RoleArtist, found.Role)
		assert.False(t, found.IsVerified)
		assert.NotEmpty(t, found.VerificationOTPHash)
		assert.Empty(t, found.BlockedUsers)
	})

	t.Run("finds by email case-insensitively", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "PAINTER@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByEmail(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		dup, _, err := identity.NewUser("painter2", "painter@example.com", "password123", identity.RoleBuyer)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("exists by email or username", func(t *testing.T) {
		exists, err := repo.ExistsByEmailOrUsername(ctx, "other@example.com", "Painter")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByEmailOrUsername(ctx, "other@example.com", "other")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestGormUserRepository_UpdateBlockList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "collector", identity.RoleBuyer)
	spammer := createTestUser(t, db, "spammer", identity.RoleArtist)
	troll := createTestUser(t, db, "troll", identity.RoleArtist)

	require.NoError(t, user.Block(spammer.ID))
	require.NoError(t, user.Block(troll.ID))
	require.NoError(t, user.UpdateProfile(identity.Profile{Bio: "I collect things"}))
	require.NoError(t, repo.Update(ctx, user))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{spammer.ID, troll.ID}, found.BlockedUsers)
	assert.Equal(t, "I collect things", found.Profile.Bio)

	found.Unblock(spammer.ID)
	require.NoError(t, repo.Update(ctx, found))

	again, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{troll.ID}, again.BlockedUsers)

	t.Run("update of unknown user fails", func(t *testing.T) {
		ghost, _, err := identity.NewUser("ghost", "ghost@example.com", "password123", identity.RoleBuyer)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Update(ctx, ghost), shared.ErrNotFound)
	})
}

func TestGormUserRepository_StaleUpdateIsRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "gallery", identity.RoleBuyer)
	artist := createTestUser(t, db, "pest", identity.RoleArtist)

	stale, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)

	fresh, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, fresh.Block(artist.ID))
	require.NoError(t, fresh.ChangePassword("password123", "N3w-password!"))
	require.NoError(t, repo.Update(ctx, fresh))

	require.NoError(t, stale.UpdateProfile(identity.Profile{Bio: "old tab"}))
	assert.ErrorIs(t, repo.Update(ctx, stale), shared.ErrConcurrencyConflict)

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, found.IsBlocked(artist.ID))
	assert.True(t, found.VerifyPassword("N3w-password!"))
	assert.False(t, found.VerifyPassword("password123"))
}

func TestGormUserRepository_RecordMessage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	buyer := createTestUser(t, db, "reader", identity.RoleBuyer)
	artist := createTestUser(t, db, "writer", identity.RoleArtist)

	// the receiver changes their account after the sender loaded it
	receiver, err := repo.FindByID(ctx, artist.ID)
	require.NoError(t, err)
	require.NoError(t, receiver.Block(buyer.ID))
	require.NoError(t, receiver.ChangePassword("password123", "An0ther-pass!"))
	require.NoError(t, repo.Update(ctx, receiver))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.RecordMessage(ctx, buyer.ID, artist.ID, at))
	require.NoError(t, repo.RecordMessage(ctx, buyer.ID, artist.ID, at))

	sender, err := repo.FindByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sender.MessageStats.TotalSent)
	require.NotNil(t, sender.MessageStats.LastMessageAt)
	assert.WithinDuration(t, at, *sender.MessageStats.LastMessageAt, time.Second)

	got, err := repo.FindByID(ctx, artist.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageStats.TotalReceived)
	assert.True(t, got.IsBlocked(buyer.ID))
	assert.True(t, got.VerifyPassword("An0ther-pass!"))
	assert.Equal(t, receiver.Version, got.Version)
}

func TestGormUserRepository_FindByResetTokenHash(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "forgetful", identity.RoleBuyer)
	now := time.Now().UTC()
	token, err := user.IssuePasswordReset(now)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, user))

	found, err := repo.FindByResetTokenHash(ctx, identity.HashSecret(token), now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByResetTokenHash(ctx, identity.HashSecret(token), now.Add(identity.PasswordResetTTL+time.Minute))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormUserRepository_FindAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	createTestUser(t, db, "alice_artist", identity.RoleArtist)
	createTestUser(t, db, "bob_artist", identity.RoleArtist)
	createTestUser(t, db, "carol", identity.RoleBuyer)

	artist := identity.RoleArtist
	users, total, err := repo.FindAll(ctx, identity.UserFilter{Role: &artist})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	users, total, err = repo.FindAll(ctx, identity.UserFilter{
		Search:      "CAROL",
		ListOptions: shared.ListOptions{Sort: shared.Sort{Field: "username", Direction: shared.SortAsc}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "carol", users[0].Username)

	verified := true
	_, total, err = repo.FindAll(ctx, identity.UserFilter{IsVerified: &verified})
	require.NoError(t, err)
	assert.Zero(t, total)

	users, total, err = repo.FindAll(ctx, identity.UserFilter{
		ListOptions: shared.ListOptions{Page: 2, Limit: 2, Sort: shared.Sort{Field: "username", Direction: shared.SortAsc}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username)
}

func TestGormUserRepository_Presence(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	artist := createTestUser(t, db, "online_artist", identity.RoleArtist)
	buyer := createTestUser(t, db, "online_buyer", identity.RoleBuyer)
	now := time.Now().UTC()

	require.NoError(t, repo.SetPresence(ctx, artist.ID, true, now))
	require.NoError(t, repo.SetPresence(ctx, buyer.ID, true, now.Add(-10*time.Minute)))
	assert.ErrorIs(t, repo.SetPresence(ctx, uuid.New(), true, now), shared.ErrNotFound)

	role := identity.RoleArtist
	online, err := repo.FindOnline(ctx, &role)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, artist.ID, online[0].ID)

	changed, err := repo.MarkStaleOffline(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	online, err = repo.FindOnline(ctx, nil)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, artist.ID, online[0].ID)
}

func TestGormUserRepository_Stats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	createTestUser(t, db, "artist_one", identity.RoleArtist)
	verifiedBuyer := createTestUser(t, db, "buyer_one", identity.RoleBuyer)
	createTestUser(t, db, "buyer_two", identity.RoleBuyer)

	otp, err := verifiedBuyer.ReissueVerificationOTP(time.Now())
	require.NoError(t, err)
	require.NoError(t, verifiedBuyer.Verify(otp, time.Now()))
	require.NoError(t, repo.Update(ctx, verifiedBuyer))

	since := time.Now().UTC().Add(-30 * 24 * time.Hour)
	stats, err := repo.Stats(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.ByRole[identity.RoleArtist])
	assert.Equal(t, int64(2), stats.ByRole[identity.RoleBuyer])
	assert.Equal(t, int64(0), stats.ByRole[identity.RoleAdmin])
	assert.Equal(t, int64(1), stats.Verified)
	assert.Equal(t, int64(3), stats.NewSince)
}
