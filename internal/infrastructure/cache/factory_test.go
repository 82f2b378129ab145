package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
)

// unreachableRedis points at a port nothing listens on
func unreachableRedis() config.RedisConfig {
	return config.RedisConfig{Host: "127.0.0.1", Port: 1}
}

func TestFactory_FallsBackToMemory(t *testing.T) {
	f := NewFactory(unreachableRedis())
	require.NoError(t, f.Connect())
	defer f.Close()

	assert.Nil(t, f.Client())

	store := f.IdempotencyStore()
	defer store.Close()
	_, ok := store.(*InMemoryIdempotencyStore)
	assert.True(t, ok)

	c := f.ResponseCache()
	_, ok = c.(*InMemoryCache)
	assert.True(t, ok)
	require.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))
}

func TestFactory_RequireRedis(t *testing.T) {
	f := NewFactory(unreachableRedis(), WithInMemoryFallback(false))
	err := f.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis required but unavailable")
}
