package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"THIRDHAND_APP_NAME",
	"THIRDHAND_APP_ENV",
	"THIRDHAND_APP_PORT",
	"THIRDHAND_DATABASE_HOST",
	"THIRDHAND_DATABASE_PORT",
	"THIRDHAND_DATABASE_PASSWORD",
	"THIRDHAND_DATABASE_SSLMODE",
	"THIRDHAND_DATABASE_MAX_OPEN_CONNS",
	"THIRDHAND_DATABASE_MAX_IDLE_CONNS",
	"THIRDHAND_JWT_SECRET",
	"THIRDHAND_STRIPE_SECRET_KEY",
	"THIRDHAND_STRIPE_WEBHOOK_SECRET",
	"THIRDHAND_STORAGE_PROVIDER",
	"THIRDHAND_STORAGE_BUCKET",
	"THIRDHAND_FRONTEND_URL",
	"THIRDHAND_HTTP_CORS_ALLOW_ORIGINS",
}

// isolateEnv clears the keys for the duration of the test and restores them afterwards
func isolateEnv(t *testing.T) {
	t.Helper()
	saved := make(map[string]string, len(envKeys))
	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok {
			saved[k] = v
		}
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range envKeys {
			os.Unsetenv(k)
			if v, ok := saved[k]; ok {
				os.Setenv(k, v)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "thirdhand-marketplace", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "5000", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "thirdhand", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, int64(64<<10), cfg.HTTP.WebhookMaxBodySize)
		assert.Equal(t, 24*time.Hour, cfg.Event.IdempotencyTTL)
		assert.Equal(t, 5*time.Minute, cfg.Scheduler.PresenceTimeout)
		assert.Equal(t, "memory", cfg.Storage.Provider)
		assert.Equal(t, 500, cfg.Storage.MinImageWidth)
		assert.Equal(t, 10*time.Minute, cfg.Cache.ArtworkTTL)
		assert.Equal(t, 5*time.Minute, cfg.Cache.ArtworkListTTL)
		assert.Equal(t, "http://localhost:3000/payment/success?session_id={CHECKOUT_SESSION_ID}", cfg.Stripe.SuccessURL)
	})

	t.Run("loads values from environment variables with THIRDHAND prefix", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("THIRDHAND_APP_PORT", "9000")
		os.Setenv("THIRDHAND_DATABASE_HOST", "db.internal")
		os.Setenv("THIRDHAND_DATABASE_PORT", "5433")
		os.Setenv("THIRDHAND_STRIPE_SECRET_KEY", "sk_test_123")
		os.Setenv("THIRDHAND_FRONTEND_URL", "https://thirdhand.art")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "sk_test_123", cfg.Stripe.SecretKey)
		assert.Equal(t, "https://thirdhand.art/payment/cancel", cfg.Stripe.CancelURL)
	})

	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("THIRDHAND_DATABASE_MAX_OPEN_CONNS", "5")
		os.Setenv("THIRDHAND_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("requires bucket for s3 storage", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("THIRDHAND_STORAGE_PROVIDER", "s3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func() {
		os.Setenv("THIRDHAND_APP_ENV", "production")
		os.Setenv("THIRDHAND_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		os.Setenv("THIRDHAND_DATABASE_PASSWORD", "secure-password")
		os.Setenv("THIRDHAND_DATABASE_SSLMODE", "require")
		os.Setenv("THIRDHAND_STRIPE_SECRET_KEY", "sk_live_123")
		os.Setenv("THIRDHAND_STRIPE_WEBHOOK_SECRET", "whsec_123")
	}

	tests := []struct {
		name    string
		mutate  func()
		wantErr string
	}{
		{"requires jwt secret", func() { os.Unsetenv("THIRDHAND_JWT_SECRET") }, "jwt.secret is required"},
		{"rejects default jwt secret", func() { os.Setenv("THIRDHAND_JWT_SECRET", defaultJWTSecret) }, "jwt.secret is required"},
		{"requires long jwt secret", func() { os.Setenv("THIRDHAND_JWT_SECRET", "short-secret") }, "at least 32 characters"},
		{"requires database password", func() { os.Unsetenv("THIRDHAND_DATABASE_PASSWORD") }, "database.password"},
		{"requires ssl", func() { os.Setenv("THIRDHAND_DATABASE_SSLMODE", "disable") }, "sslmode"},
		{"requires stripe key", func() { os.Unsetenv("THIRDHAND_STRIPE_SECRET_KEY") }, "stripe.secret_key"},
		{"requires webhook secret", func() { os.Unsetenv("THIRDHAND_STRIPE_WEBHOOK_SECRET") }, "stripe.webhook_secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			setValidProductionBase()
			tt.mutate()

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.App.IsProduction())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "user", Password: "pass@word#123", DBName: "db", SSLMode: "disable"}
		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
