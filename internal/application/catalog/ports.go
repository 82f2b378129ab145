// Package catalog implements artwork listings: creation, browsing, updates,
// image uploads and the cleanup job that runs after a listing is deleted.
package catalog

import (
	"context"
	"time"
)

// ImageStorage stores artwork images. It is implemented by the
// infrastructure layer (S3 or in memory).
type ImageStorage interface {
	// Upload stores data under key
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// DeleteObject deletes an object from storage
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists checks if an object exists in storage
	ObjectExists(ctx context.Context, key string) (bool, error)

	// PublicURL returns the URL clients load the object from
	PublicURL(key string) string

	// KeyFromURL maps a URL produced by PublicURL back to its key.
	// It returns false for URLs that point elsewhere.
	KeyFromURL(url string) (string, bool)
}

// Cache is a JSON value cache with expiry
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
