package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedScore struct {
	Rank  int     `json:"rank"`
	Score float64 `json:"score"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "rank:1", cachedScore{Rank: 2, Score: 41.5}, time.Minute))

		var got cachedScore
		require.NoError(t, c.Get(ctx, "rank:1", &got))
		assert.Equal(t, cachedScore{Rank: 2, Score: 41.5}, got)
	})

	t.Run("miss", func(t *testing.T) {
		c := NewMemoryCache()
		var got cachedScore
		assert.ErrorIs(t, c.Get(ctx, "absent", &got), ErrCacheMiss)
	})

	t.Run("expiry", func(t *testing.T) {
		c := NewMemoryCache()
		now := time.Now()
		c.now = func() time.Time { return now }
		require.NoError(t, c.Set(ctx, "k", 1, time.Second))

		now = now.Add(2 * time.Second)
		var got int
		assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
	})

	t.Run("delete pattern", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "aggregate:core:t1", 1, 0))
		require.NoError(t, c.Set(ctx, "aggregate:wrapper:i1", 2, 0))
		require.NoError(t, c.Set(ctx, "instance:i1", 3, 0))

		require.NoError(t, c.DeletePattern(ctx, "aggregate:*"))

		var got int
		assert.ErrorIs(t, c.Get(ctx, "aggregate:core:t1", &got), ErrCacheMiss)
		assert.ErrorIs(t, c.Get(ctx, "aggregate:wrapper:i1", &got), ErrCacheMiss)
		assert.NoError(t, c.Get(ctx, "instance:i1", &got))
		assert.Equal(t, 3, got)
	})
}

func TestMemoryCache_SetNX(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	stored, err := c.SetNX(ctx, "k", cachedScore{Rank: 1}, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = c.SetNX(ctx, "k", cachedScore{Rank: 2}, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	var got cachedScore
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 1, got.Rank)

	now = now.Add(2 * time.Minute)
	stored, err = c.SetNX(ctx, "k", cachedScore{Rank: 3}, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestCacheOrExecute(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("runs once and serves from cache", func(t *testing.T) {
		c := NewMemoryCache()
		calls := 0
		load := func() (interface{}, error) {
			calls++
			return &cachedScore{Rank: 1, Score: 99}, nil
		}

		var first, second cachedScore
		require.NoError(t, CacheOrExecute(ctx, c, logger, "k", &first, time.Minute, load))
		require.NoError(t, CacheOrExecute(ctx, c, logger, "k", &second, time.Minute, load))

		assert.Equal(t, 1, calls)
		assert.Equal(t, cachedScore{Rank: 1, Score: 99}, first)
		assert.Equal(t, first, second)
	})

	t.Run("a write during the load is not overwritten", func(t *testing.T) {
		c := NewMemoryCache()

		var got cachedScore
		err := CacheOrExecute(ctx, c, logger, "aggregate:wrapper:inst-1", &got, time.Minute, func() (interface{}, error) {
			// A drain persists and writes through while this read is in flight.
			require.NoError(t, c.Set(ctx, "aggregate:wrapper:inst-1", cachedScore{Rank: 2, Score: 80}, time.Minute))
			return &cachedScore{Rank: 1, Score: 40}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, cachedScore{Rank: 1, Score: 40}, got)

		var cached cachedScore
		require.NoError(t, c.Get(ctx, "aggregate:wrapper:inst-1", &cached))
		assert.Equal(t, cachedScore{Rank: 2, Score: 80}, cached)
	})

	t.Run("loader errors are returned and not cached", func(t *testing.T) {
		c := NewMemoryCache()
		loadErr := errors.New("db down")

		var got cachedScore
		err := CacheOrExecute(ctx, c, logger, "k", &got, time.Minute, func() (interface{}, error) {
			return nil, loadErr
		})
		assert.ErrorIs(t, err, loadErr)
		assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
	})
}
