package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedArtwork struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func TestInMemoryCache_GetSet(t *testing.T) {
	c := NewInMemoryCache()
	defer c.Close()
	ctx := context.Background()

	var got cachedArtwork
	hit, err := c.Get(ctx, "artwork:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := cachedArtwork{ID: "1", Title: "Harbour at dusk", Tags: []string{"oil"}}
	require.NoError(t, c.Set(ctx, "artwork:1", want, time.Minute))

	hit, err = c.Get(ctx, "artwork:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)

	// the cached copy is independent from the caller's value
	want.Tags[0] = "changed"
	var again cachedArtwork
	_, _ = c.Get(ctx, "artwork:1", &again)
	assert.Equal(t, []string{"oil"}, again.Tags)
}

func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "artwork:list:a", []string{"x"}, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	var got []string
	hit, err := c.Get(ctx, "artwork:list:a", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	c.removeExpired()
	assert.Equal(t, 0, c.Len())
}

func TestInMemoryCache_DeletePrefix(t *testing.T) {
	c := NewInMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "artworks:list:page=1", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "artworks:list:page=2", 2, time.Minute))
	require.NoError(t, c.Set(ctx, "artworks:detail:42", 42, time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, "artworks:list:"))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "artworks:detail:42"))
	assert.Equal(t, 0, c.Len())
}
