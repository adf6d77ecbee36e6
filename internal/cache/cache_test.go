package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pipline/treasury/model"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCache {
	mr := miniredis.RunT(t)
	return NewCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	balances := []model.DailyBalance{{
		Date:           "2025-09-03",
		PSP:            "Papara",
		ClosingBalance: decimal.RequireFromString("3982000.50"),
	}}
	require.NoError(t, c.Set(ctx, "balances", balances, time.Minute))

	var got []model.DailyBalance
	found, err := c.Get(ctx, "balances", &got)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, got, 1)
	assert.True(t, balances[0].ClosingBalance.Equal(got[0].ClosingBalance))
}

func TestGet_Miss(t *testing.T) {
	c := newTestCache(t)

	var got []model.DailyBalance
	found, err := c.Get(context.Background(), "missing", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))

	var got string
	found, err := c.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestKeyInvalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	before, err := c.Key(ctx, "balances", "Papara")
	require.NoError(t, err)
	assert.Equal(t, "balances:0:Papara", before)

	require.NoError(t, c.Invalidate(ctx, "balances"))

	after, err := c.Key(ctx, "balances", "Papara")
	require.NoError(t, err)
	assert.Equal(t, "balances:1:Papara", after)

	other, err := c.Key(ctx, "summaries", "all")
	require.NoError(t, err)
	assert.Equal(t, "summaries:0:all", other)
}
