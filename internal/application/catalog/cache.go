package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	listCachePrefix = "artworks:list:"
	itemCachePrefix = "artworks:item:"

	// ListCacheTTL is how long a page of public listings is cached
	ListCacheTTL = 5 * time.Minute
	// ItemCacheTTL is how long the public view of one artwork is cached
	ItemCacheTTL = 10 * time.Minute
)

// ArtworkCache caches public artwork reads. Cache failures are logged and
// never fail the request. A nil cache disables caching.
type ArtworkCache struct {
	cache  Cache
	logger *zap.Logger
}

// NewArtworkCache wraps cache. cache may be nil.
func NewArtworkCache(cache Cache, logger *zap.Logger) *ArtworkCache {
	return &ArtworkCache{cache: cache, logger: logger}
}

func (c *ArtworkCache) getList(ctx context.Context, key string) (*ArtworkPage, bool) {
	var page ArtworkPage
	if !c.get(ctx, key, &page) {
		return nil, false
	}
	return &page, true
}

func (c *ArtworkCache) getItem(ctx context.Context, id uuid.UUID) (*ArtworkResponse, bool) {
	var resp ArtworkResponse
	if !c.get(ctx, itemCachePrefix+id.String(), &resp) {
		return nil, false
	}
	return &resp, true
}

func (c *ArtworkCache) setList(ctx context.Context, key string, page *ArtworkPage) {
	c.set(ctx, key, page, ListCacheTTL)
}

func (c *ArtworkCache) setItem(ctx context.Context, resp *ArtworkResponse) {
	c.set(ctx, itemCachePrefix+resp.ID.String(), resp, ItemCacheTTL)
}

// Invalidate drops the cached view of an artwork and every cached listing
func (c *ArtworkCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c == nil || c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, itemCachePrefix+id.String()); err != nil {
		c.logger.Warn("Failed to invalidate artwork cache", zap.String("artwork_id", id.String()), zap.Error(err))
	}
	c.InvalidateLists(ctx)
}

// InvalidateLists drops every cached listing page
func (c *ArtworkCache) InvalidateLists(ctx context.Context) {
	if c == nil || c.cache == nil {
		return
	}
	if err := c.cache.DeletePrefix(ctx, listCachePrefix); err != nil {
		c.logger.Warn("Failed to invalidate artwork list cache", zap.Error(err))
	}
}

func (c *ArtworkCache) get(ctx context.Context, key string, dst any) bool {
	if c == nil || c.cache == nil {
		return false
	}
	ok, err := c.cache.Get(ctx, key, dst)
	if err != nil {
		c.logger.Warn("Artwork cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (c *ArtworkCache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("Artwork cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// listCacheKey derives the key of a normalized query. Equal queries map
// to equal keys because the struct encodes in field order.
func listCacheKey(q ListArtworksQuery) string {
	raw, _ := json.Marshal(q)
	sum := sha256.Sum256(raw)
	return listCachePrefix + hex.EncodeToString(sum[:16])
}
