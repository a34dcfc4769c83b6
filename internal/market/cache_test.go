package market

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/quantbridge/mt5-bridge/internal/errors"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

type fakeSource struct {
	calls      map[string]int
	rates      map[string][]types.Candle
	ratesErr   error
	tick       *types.Tick
	tickErr    error
	account    *types.AccountSnapshot
	accountErr error
	connected  bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls:     make(map[string]int),
		rates:     make(map[string][]types.Candle),
		connected: true,
	}
}

func (s *fakeSource) GetRates(_ context.Context, symbol, timeframe string, count int) ([]types.Candle, error) {
	s.calls[symbol+"_"+timeframe]++
	if s.ratesErr != nil {
		return nil, s.ratesErr
	}
	return s.rates[symbol+"_"+timeframe], nil
}

func (s *fakeSource) GetSymbolTick(_ context.Context, symbol string) (*types.Tick, error) {
	if s.tickErr != nil {
		return nil, s.tickErr
	}
	return s.tick, nil
}

func (s *fakeSource) GetAccountInfo(_ context.Context) (*types.AccountSnapshot, error) {
	if s.accountErr != nil {
		return nil, s.accountErr
	}
	return s.account, nil
}

func (s *fakeSource) IsConnected() bool { return s.connected }

func candles(n int, base float64) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		out[i] = types.Candle{
			Time:   int64(1700000000 + i*300),
			Open:   base,
			High:   base + 0.0005,
			Low:    base - 0.0005,
			Close:  base + 0.0001,
			Volume: 100,
		}
	}
	return out
}

func TestCacheServesFromMemoryWithinTTL(t *testing.T) {
	source := newFakeSource()
	source.rates["EURUSD_M5"] = candles(50, 1.1000)
	cache := NewCache(source)

	first, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)
	require.Len(t, first, 50)

	second, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.calls["EURUSD_M5"])
}

func TestCacheIgnoresCountOnHit(t *testing.T) {
	source := newFakeSource()
	source.rates["EURUSD_M5"] = candles(50, 1.1000)
	cache := NewCache(source)

	_, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)

	// A different count within the TTL still hits the cached series.
	got, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 200)
	require.NoError(t, err)
	assert.Len(t, got, 50)
	assert.Equal(t, 1, source.calls["EURUSD_M5"])
}

func TestCacheRefetchesAfterTTL(t *testing.T) {
	source := newFakeSource()
	source.rates["EURUSD_M5"] = candles(50, 1.1000)
	cache := NewCache(source)

	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	_, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)

	clock = clock.Add(6 * time.Second)
	_, err = cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls["EURUSD_M5"])
}

func TestCacheKeysBySymbolAndTimeframe(t *testing.T) {
	source := newFakeSource()
	source.rates["EURUSD_M5"] = candles(50, 1.1000)
	source.rates["EURUSD_H1"] = candles(50, 1.1000)
	source.rates["GBPUSD_M5"] = candles(50, 1.2700)
	cache := NewCache(source)

	ctx := context.Background()
	_, err := cache.GetOHLC(ctx, "EURUSD", "M5", 50)
	require.NoError(t, err)
	_, err = cache.GetOHLC(ctx, "EURUSD", "H1", 50)
	require.NoError(t, err)
	_, err = cache.GetOHLC(ctx, "GBPUSD", "M5", 50)
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls["EURUSD_M5"])
	assert.Equal(t, 1, source.calls["EURUSD_H1"])
	assert.Equal(t, 1, source.calls["GBPUSD_M5"])
}

func TestCacheFailureLeavesEntryUntouched(t *testing.T) {
	source := newFakeSource()
	source.rates["EURUSD_M5"] = candles(50, 1.1000)
	cache := NewCache(source)

	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	_, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)

	// After the TTL expires the refetch fails; the error surfaces and
	// does not overwrite the stored series.
	clock = clock.Add(6 * time.Second)
	source.ratesErr = fmt.Errorf("terminal disconnected")
	_, err = cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CategoryData, pkgerrors.CategoryOf(err))

	// Once the source recovers the cache refills normally.
	source.ratesErr = nil
	got, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)
	assert.Len(t, got, 50)
}

func TestCacheEmptySeriesIsAnError(t *testing.T) {
	source := newFakeSource()
	cache := NewCache(source)

	_, err := cache.GetOHLC(context.Background(), "USDJPY", "M5", 50)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CategoryData, pkgerrors.CategoryOf(err))
}

func TestCacheReturnsCopies(t *testing.T) {
	source := newFakeSource()
	source.rates["EURUSD_M5"] = candles(50, 1.1000)
	cache := NewCache(source)

	first, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)
	first[0].Close = 9.9999

	second, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].Close, second[0].Close)
}

func TestCacheMultiOHLCPartialFailure(t *testing.T) {
	source := newFakeSource()
	source.rates["EURUSD_M5"] = candles(50, 1.1000)
	cache := NewCache(source)

	got, failed := cache.GetMultiOHLC(context.Background(), []string{"EURUSD", "USDJPY"}, "M5", 50)
	require.Len(t, got, 1)
	assert.Contains(t, got, "EURUSD")
	require.Len(t, failed, 1)
	assert.Equal(t, pkgerrors.CategoryData, pkgerrors.CategoryOf(failed["USDJPY"]))
}

func TestCacheTickPassesThrough(t *testing.T) {
	source := newFakeSource()
	source.tick = &types.Tick{Symbol: "EURUSD", Bid: 1.0999, Ask: 1.1001, Spread: 2}
	cache := NewCache(source)

	tick, err := cache.GetTick(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.0999, tick.Bid)

	source.tickErr = fmt.Errorf("no quote")
	_, err = cache.GetTick(context.Background(), "EURUSD")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CategoryData, pkgerrors.CategoryOf(err))
}

func TestCacheIngestExtendsSeries(t *testing.T) {
	source := newFakeSource()
	source.rates["EURUSD_M5"] = candles(50, 1.1000)
	cache := NewCache(source)

	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	first, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)
	last := first[len(first)-1]

	// A new bar appends; the TTL refreshes so no refetch happens.
	clock = clock.Add(6 * time.Second)
	cache.Ingest("EURUSD", "M5", types.Candle{Time: last.Time + 300, Close: 1.1010})
	got, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)
	assert.Len(t, got, 51)
	assert.Equal(t, 1, source.calls["EURUSD_M5"])

	// Same open time replaces the newest bar instead of appending.
	cache.Ingest("EURUSD", "M5", types.Candle{Time: last.Time + 300, Close: 1.1020})
	got, err = cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)
	assert.Len(t, got, 51)
	assert.Equal(t, 1.1020, got[len(got)-1].Close)

	// Ingest for a never-fetched key is dropped.
	cache.Ingest("USDJPY", "M5", types.Candle{Time: 1700000000, Close: 149.5})
	status := cache.MarketStatus(context.Background())
	assert.Equal(t, 2, status.CachedSeries)
}

func TestCacheClearAndStatus(t *testing.T) {
	source := newFakeSource()
	source.rates["EURUSD_M5"] = candles(50, 1.1000)
	source.account = &types.AccountSnapshot{Balance: 10000, Equity: 10050, FreeMargin: 9800, MarginLevel: 450}
	cache := NewCache(source)

	_, err := cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)

	status := cache.MarketStatus(context.Background())
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.CachedSeries)
	assert.Equal(t, 10000.0, status.Balance)
	assert.Equal(t, 10050.0, status.Equity)
	assert.Equal(t, 9800.0, status.FreeMargin)
	assert.Equal(t, 450.0, status.MarginLevel)

	// Account fetch failure leaves the figures zero but keeps the rest.
	source.accountErr = fmt.Errorf("wallet unavailable")
	status = cache.MarketStatus(context.Background())
	assert.True(t, status.Connected)
	assert.Zero(t, status.Balance)
	source.accountErr = nil

	cache.Clear()
	status = cache.MarketStatus(context.Background())
	assert.Equal(t, 0, status.CachedSeries)

	_, err = cache.GetOHLC(context.Background(), "EURUSD", "M5", 50)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls["EURUSD_M5"])
}
