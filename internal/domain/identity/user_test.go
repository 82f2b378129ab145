package identity

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func newTestUser(t *testing.T) (*User, string) {
	t.Helper()
	user, otp, err := NewUser("painter", "Painter@Example.com", "password123", RoleArtist)
	require.NoError(t, err)
	return user, otp
}

func TestNewUser(t *testing.T) {
	t.Run("creates unverified user with otp", func(t *testing.T) {
		user, otp := newTestUser(t)

		assert.Equal(t, "painter", user.Username)
		assert.Equal(t, "painter@example.com", user.Email)
		assert.Equal(t, RoleArtist, user.Role)
		assert.False(t, user.IsVerified)
		assert.Len(t, otp, 6)
		assert.Equal(t, HashSecret(otp), user.VerificationOTPHash)
		require.NotNil(t, user.VerificationOTPExpiresAt)
		assert.WithinDuration(t, time.Now().Add(OTPTTL), *user.VerificationOTPExpiresAt, time.Second)
		assert.True(t, user.VerifyPassword("password123"))

		events := user.GetDomainEvents()
		require.Len(t, events, 1)
		registered, ok := events[0].(*UserRegisteredEvent)
		require.True(t, ok)
		assert.Equal(t, otp, registered.OTP)
		assert.Equal(t, user.ID, registered.AggregateID())
	})

	t.Run("defaults role to buyer", func(t *testing.T) {
		user, _, err := NewUser("collector", "c@example.com", "password123", "")
		require.NoError(t, err)
		assert.Equal(t, RoleBuyer, user.Role)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		tests := []struct {
			name, username, email, password string
			role                            Role
			code                            string
		}{
			{"short username", "ab", "a@b.co", "password123", RoleBuyer, "INVALID_USERNAME"},
			{"long username", "a123456789012345678901234567890", "a@b.co", "password123", RoleBuyer, "INVALID_USERNAME"},
			{"bad email", "valid", "not-an-email", "password123", RoleBuyer, "INVALID_EMAIL"},
			{"short password", "valid", "a@b.co", "short", RoleBuyer, "INVALID_PASSWORD"},
			{"unknown role", "valid", "a@b.co", "password123", Role("curator"), "INVALID_ROLE"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := NewUser(tt.username, tt.email, tt.password, tt.role)
				require.Error(t, err)
				assert.Equal(t, tt.code, errCode(err))
			})
		}
	})
}

func TestUser_Verify(t *testing.T) {
	t.Run("verifies with the issued code", func(t *testing.T) {
		user, otp := newTestUser(t)
		user.ClearDomainEvents()

		require.NoError(t, user.Verify(otp, time.Now()))
		assert.True(t, user.IsVerified)
		assert.Empty(t, user.VerificationOTPHash)
		assert.Nil(t, user.VerificationOTPExpiresAt)
		require.Len(t, user.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeUserVerified, user.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects wrong code", func(t *testing.T) {
		user, _ := newTestUser(t)
		assert.Equal(t, "INVALID_OTP", errCode(user.Verify("000000", time.Now())))
		assert.False(t, user.IsVerified)
	})

	t.Run("rejects expired code", func(t *testing.T) {
		user, otp := newTestUser(t)
		assert.Equal(t, "OTP_EXPIRED", errCode(user.Verify(otp, time.Now().Add(OTPTTL+time.Second))))
	})

	t.Run("rejects already verified", func(t *testing.T) {
		user, otp := newTestUser(t)
		require.NoError(t, user.Verify(otp, time.Now()))
		assert.Equal(t, "ALREADY_VERIFIED", errCode(user.Verify(otp, time.Now())))
	})

	t.Run("reissued code replaces the old one", func(t *testing.T) {
		user, first := newTestUser(t)
		second, err := user.ReissueVerificationOTP(time.Now())
		require.NoError(t, err)
		if first != second {
			assert.Equal(t, "INVALID_OTP", errCode(user.Verify(first, time.Now())))
		}
		assert.NoError(t, user.Verify(second, time.Now()))
	})
}

func TestUser_PasswordReset(t *testing.T) {
	user, _ := newTestUser(t)
	user.ClearDomainEvents()

	token, err := user.IssuePasswordReset(time.Now())
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Equal(t, HashSecret(token), user.PasswordResetTokenHash)

	events := user.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, token, events[0].(*PasswordResetRequestedEvent).Token)

	t.Run("rejects wrong token", func(t *testing.T) {
		assert.Equal(t, "INVALID_RESET_TOKEN", errCode(user.ResetPassword("nope", "newpassword1", time.Now())))
	})

	t.Run("rejects expired token", func(t *testing.T) {
		later := time.Now().Add(PasswordResetTTL + time.Minute)
		assert.Equal(t, "INVALID_RESET_TOKEN", errCode(user.ResetPassword(token, "newpassword1", later)))
	})

	t.Run("resets with valid token once", func(t *testing.T) {
		require.NoError(t, user.ResetPassword(token, "newpassword1", time.Now()))
		assert.True(t, user.VerifyPassword("newpassword1"))
		assert.Empty(t, user.PasswordResetTokenHash)
		assert.Error(t, user.ResetPassword(token, "another-pass", time.Now()))
	})
}

func TestUser_ChangePassword(t *testing.T) {
	user, _ := newTestUser(t)

	assert.Equal(t, "INVALID_PASSWORD", errCode(user.ChangePassword("wrong", "newpassword1")))
	require.NoError(t, user.ChangePassword("password123", "newpassword1"))
	assert.True(t, user.VerifyPassword("newpassword1"))
	assert.False(t, user.VerifyPassword("password123"))
}

func TestUser_Block(t *testing.T) {
	user, _ := newTestUser(t)
	other := uuid.New()

	assert.Equal(t, "CANNOT_BLOCK_SELF", errCode(user.Block(user.ID)))

	require.NoError(t, user.Block(other))
	require.NoError(t, user.Block(other))
	assert.Len(t, user.BlockedUsers, 1)
	assert.True(t, user.IsBlocked(other))

	user.Unblock(other)
	assert.False(t, user.IsBlocked(other))
	assert.Empty(t, user.BlockedUsers)
}

func TestUser_PresenceAndMessages(t *testing.T) {
	user, _ := newTestUser(t)
	now := time.Now()

	user.SetOnline(now)
	assert.True(t, user.IsOnline)
	user.SetOffline(now.Add(time.Minute))
	assert.False(t, user.IsOnline)
	assert.Equal(t, now.Add(time.Minute), user.LastSeen)

	user.RecordMessageSent(now)
	user.RecordMessageReceived(now)
	user.RecordMessageReceived(now)
	assert.Equal(t, 1, user.MessageStats.TotalSent)
	assert.Equal(t, 2, user.MessageStats.TotalReceived)
	require.NotNil(t, user.MessageStats.LastMessageAt)
}

func TestUser_UpdateProfile(t *testing.T) {
	user, _ := newTestUser(t)
	version := user.GetVersion()

	require.NoError(t, user.UpdateProfile(Profile{
		Bio:         "  Oil on canvas  ",
		SocialLinks: SocialLinks{Instagram: "@painter"},
	}))
	assert.Equal(t, "Oil on canvas", user.Profile.Bio)
	assert.Equal(t, "@painter", user.Profile.SocialLinks.Instagram)
	assert.Greater(t, user.GetVersion(), version)
}
