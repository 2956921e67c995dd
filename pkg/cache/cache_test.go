package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Symbol string    `json:"symbol"`
	Values []float64 `json:"values"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "regimes:AAPL:1", payload{Symbol: "AAPL", Values: []float64{1, 2}}, time.Minute))

	var got payload
	require.NoError(t, mc.Get(ctx, "regimes:AAPL:1", &got))
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, []float64{1, 2}, got.Values)

	assert.ErrorIs(t, mc.Get(ctx, "missing", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, k := range []string{"bars:AAPL:1d", "regimes:AAPL:1d:3", "bars:MSFT:1d"} {
		require.NoError(t, mc.Set(ctx, k, k, time.Minute))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, "*:AAPL:*"))

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "bars:AAPL:1d", &s), ErrCacheMiss)
	assert.ErrorIs(t, mc.Get(ctx, "regimes:AAPL:1d:3", &s), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "bars:MSFT:1d", &s))

	assert.Error(t, mc.DeleteByPattern(ctx, "[unterminated"))
}

func TestRedisCacheGetSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "test")
	ctx := context.Background()

	data, _ := json.Marshal(payload{Symbol: "AAPL"})
	mock.ExpectSet("test:k", data, time.Minute).SetVal("OK")
	require.NoError(t, rc.Set(ctx, "k", payload{Symbol: "AAPL"}, time.Minute))

	mock.ExpectGet("test:k").SetVal(string(data))
	var got payload
	require.NoError(t, rc.Get(ctx, "k", &got))
	assert.Equal(t, "AAPL", got.Symbol)

	mock.ExpectGet("test:missing").RedisNil()
	assert.ErrorIs(t, rc.Get(ctx, "missing", &got), ErrCacheMiss)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheDeleteByPatternScans(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "test")
	ctx := context.Background()

	mock.ExpectScan(0, "test:*:AAPL:*", 100).SetVal([]string{"test:bars:AAPL:1d"}, 7)
	mock.ExpectUnlink("test:bars:AAPL:1d").SetVal(1)
	mock.ExpectScan(7, "test:*:AAPL:*", 100).SetVal([]string{"test:regimes:AAPL:1d:3"}, 0)
	mock.ExpectUnlink("test:regimes:AAPL:1d:3").SetVal(1)

	require.NoError(t, rc.DeleteByPattern(ctx, "*:AAPL:*"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredCachePromotesFromRedis(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lc := NewLayeredCache(NewRedisCacheFromClient(db, "test"))
	defer lc.memCache.Close()
	ctx := context.Background()

	data, _ := json.Marshal(payload{Symbol: "MSFT"})
	mock.ExpectGet("test:k").SetVal(string(data))

	var got payload
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, "MSFT", got.Symbol)

	// second read is served from memory; no further redis expectations
	got = payload{}
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, "MSFT", got.Symbol)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredCacheMemoryOnly(t *testing.T) {
	lc := NewLayeredCache(nil, WithLayeredMemorySize(10))
	defer lc.Close()
	ctx := context.Background()

	require.NoError(t, lc.Set(ctx, "k", "v", time.Minute))
	var s string
	require.NoError(t, lc.Get(ctx, "k", &s))
	assert.Equal(t, "v", s)
	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.NoError(t, lc.Ping(ctx))
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "regimes:AAPL:1d:3", GenerateKeyWithParams("regimes", "AAPL", "1d", 3))
	assert.Equal(t, "regimes*", BuildPattern("regimes"))
	assert.Len(t, HashKey("x"), 32)
}
