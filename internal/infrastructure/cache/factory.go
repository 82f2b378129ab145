package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory builds the Redis-backed stores of the server from one shared
// client, or in-memory stand-ins when Redis is unavailable and fallback
// is allowed
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether in-memory stores are used when
// Redis cannot be reached. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect dials Redis once. With fallback allowed a connection failure is
// logged and the factory hands out in-memory stores.
func (f *Factory) Connect() error {
	client, err := NewRedisClient(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.client = client
		f.logger.Info("connected to Redis", zap.String("addr", f.redisConfig.Addr()))
		return nil
	}
	if !f.allowInMemoryFallback {
		return fmt.Errorf("redis required but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
		"Webhook deduplication and the token blacklist will not be shared between instances.",
		zap.Error(err),
	)
	return nil
}

// Client returns the shared Redis client, nil when running in memory
func (f *Factory) Client() *redis.Client {
	return f.client
}

// IdempotencyStore returns the store used for webhook and event handler dedup
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client != nil {
		return NewRedisIdempotencyStoreWithClient(f.client, defaultIdempotencyPrefix)
	}
	return NewInMemoryIdempotencyStore()
}

// JSONCache is implemented by RedisCache and InMemoryCache
type JSONCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// ResponseCache returns the cache used for artwork reads
func (f *Factory) ResponseCache() JSONCache {
	if f.client != nil {
		return NewRedisCache(f.client, "thirdhand:cache:", f.logger)
	}
	return NewInMemoryCache()
}

var (
	_ JSONCache = (*RedisCache)(nil)
	_ JSONCache = (*InMemoryCache)(nil)
)

// Close closes the shared client
func (f *Factory) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
