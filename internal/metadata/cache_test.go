package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduwatcheru/eduwatcheru/internal/config"
)

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(8, time.Minute)
	ctx := context.Background()

	listing := CategoryListing{Title: "Popular Movies", Items: []MediaItem{{ID: 1, Title: "A", MediaType: MediaMovie}}}
	require.NoError(t, c.Set(ctx, "k", listing))

	var got CategoryListing
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, listing, got)

	hit, err = c.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(8, 20*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1))

	require.Eventually(t, func() bool {
		var v int
		hit, _ := c.Get(ctx, "k", &v)
		return !hit
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_EvictsOldest(t *testing.T) {
	c := NewMemoryCache(2, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))
	require.NoError(t, c.Set(ctx, "c", 3))

	assert.Equal(t, 2, c.Len())
	var v int
	hit, _ := c.Get(ctx, "a", &v)
	assert.False(t, hit)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(8, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestNewResponseCache_Backends(t *testing.T) {
	c := NewResponseCache(config.CacheConfig{Enabled: false}, zerolog.Nop())
	require.NoError(t, c.Set(context.Background(), "k", 1))
	var v int
	hit, err := c.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	assert.False(t, hit, "disabled cache never hits")

	c = NewResponseCache(config.CacheConfig{Enabled: true, Backend: "memory", Size: 4}, zerolog.Nop())
	assert.IsType(t, &MemoryCache{}, c)
}
