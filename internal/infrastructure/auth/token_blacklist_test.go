package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist_Logout(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "jti-logout", time.Hour))

	revoked, err := blacklist.IsBlacklisted(ctx, "jti-logout")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = blacklist.IsBlacklisted(ctx, "jti-other")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_EntryExpiresWithToken(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	blacklist.now = func() time.Time { return now }

	require.NoError(t, blacklist.AddToBlacklist(ctx, "jti-short", time.Minute))

	now = now.Add(2 * time.Minute)
	revoked, err := blacklist.IsBlacklisted(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Empty(t, blacklist.jtis)
}

func TestInMemoryTokenBlacklist_NonPositiveTTLIsIgnored(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	require.NoError(t, blacklist.AddToBlacklist(context.Background(), "jti-expired", 0))
	assert.Empty(t, blacklist.jtis)
}

func TestInMemoryTokenBlacklist_UserTokenInvalidation(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()
	resetAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	blacklist.now = func() time.Time { return resetAt }

	invalidated, err := blacklist.IsUserTokenInvalidated(ctx, "user-1", resetAt.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, invalidated)

	require.NoError(t, blacklist.AddUserTokensToBlacklist(ctx, "user-1", time.Hour))

	tests := []struct {
		name     string
		user     string
		issuedAt time.Time
		want     bool
	}{
		{"issued before reset", "user-1", resetAt.Add(-time.Hour), true},
		{"issued in the reset second", "user-1", resetAt.Add(300 * time.Millisecond), false},
		{"issued after reset", "user-1", resetAt.Add(time.Minute), false},
		{"other user", "user-2", resetAt.Add(-time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := blacklist.IsUserTokenInvalidated(ctx, tt.user, tt.issuedAt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
