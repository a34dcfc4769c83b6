package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantbridge/mt5-bridge/internal/errors"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// cacheTTL is how long a fetched candle series stays fresh. Within the
// TTL repeated requests for the same symbol and timeframe are answered
// from memory regardless of the requested count.
const cacheTTL = 5 * time.Second

// Source is the upstream the cache fetches candles and ticks from.
type Source interface {
	GetRates(ctx context.Context, symbol, timeframe string, count int) ([]types.Candle, error)
	GetSymbolTick(ctx context.Context, symbol string) (*types.Tick, error)
	GetAccountInfo(ctx context.Context) (*types.AccountSnapshot, error)
	IsConnected() bool
}

// Status is a point-in-time view of the upstream connection and the
// cache contents, with the account figures the upstream reports.
type Status struct {
	Connected    bool
	CachedSeries int
	Balance      float64
	Equity       float64
	FreeMargin   float64
	MarginLevel  float64
}

type entry struct {
	mu        sync.Mutex
	candles   []types.Candle
	fetchedAt time.Time
}

// Cache serves candle history with a short TTL in front of the broker.
// Each symbol and timeframe pair has its own entry and lock, so a slow
// fetch for one symbol never blocks reads for another.
type Cache struct {
	source Source

	mu      sync.Mutex
	entries map[string]*entry

	now func() time.Time
}

// NewCache wraps the source with a 5 second candle cache.
func NewCache(source Source) *Cache {
	return &Cache{
		source:  source,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func cacheKey(symbol, timeframe string) string {
	return fmt.Sprintf("%s_%s", symbol, timeframe)
}

func (c *Cache) entryFor(symbol, timeframe string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(symbol, timeframe)
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// GetOHLC returns up to count candles for the symbol and timeframe,
// oldest first. A fresh cached series is returned as-is even when its
// length differs from count. On upstream failure the cached entry is
// left untouched and a DATA_UNAVAILABLE error is returned.
func (c *Cache) GetOHLC(ctx context.Context, symbol, timeframe string, count int) ([]types.Candle, error) {
	e := c.entryFor(symbol, timeframe)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.candles != nil && c.now().Sub(e.fetchedAt) < cacheTTL {
		return copyCandles(e.candles), nil
	}

	candles, err := c.source.GetRates(ctx, symbol, timeframe, count)
	if err != nil {
		return nil, errors.DataUnavailable("market", "get_rates", err)
	}
	if len(candles) == 0 {
		return nil, errors.New(errors.CategoryData, "market", "get_rates",
			fmt.Sprintf("no candles returned for %s %s", symbol, timeframe))
	}

	e.candles = copyCandles(candles)
	e.fetchedAt = c.now()
	return candles, nil
}

// GetMultiOHLC fetches candles for several symbols in one call. Symbols
// that fail are omitted from the result; the error maps each failed
// symbol to its cause, or is nil when everything succeeded.
func (c *Cache) GetMultiOHLC(ctx context.Context, symbols []string, timeframe string, count int) (map[string][]types.Candle, map[string]error) {
	out := make(map[string][]types.Candle, len(symbols))
	var failed map[string]error
	for _, symbol := range symbols {
		candles, err := c.GetOHLC(ctx, symbol, timeframe, count)
		if err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[symbol] = err
			continue
		}
		out[symbol] = candles
	}
	return out, failed
}

// Ingest appends a streamed candle to the cached series for its symbol
// and timeframe and refreshes the entry. A candle with the same open
// time as the newest cached bar replaces it. Nothing happens when the
// key has never been fetched.
func (c *Cache) Ingest(symbol, timeframe string, candle types.Candle) {
	e := c.entryFor(symbol, timeframe)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.candles == nil {
		return
	}
	if n := len(e.candles); n > 0 && e.candles[n-1].Time == candle.Time {
		e.candles[n-1] = candle
	} else {
		e.candles = append(e.candles, candle)
	}
	e.fetchedAt = c.now()
}

// GetTick returns the current quote straight from the source. Ticks are
// never cached.
func (c *Cache) GetTick(ctx context.Context, symbol string) (*types.Tick, error) {
	tick, err := c.source.GetSymbolTick(ctx, symbol)
	if err != nil {
		return nil, errors.DataUnavailable("market", "get_tick", err)
	}
	return tick, nil
}

// MarketStatus reports whether the upstream connection is live, how
// many series are cached, and the account figures the upstream reports.
// An account fetch failure leaves the figures zero.
func (c *Cache) MarketStatus(ctx context.Context) Status {
	c.mu.Lock()
	cached := len(c.entries)
	c.mu.Unlock()

	status := Status{
		Connected:    c.source.IsConnected(),
		CachedSeries: cached,
	}
	if account, err := c.source.GetAccountInfo(ctx); err == nil && account != nil {
		status.Balance = account.Balance
		status.Equity = account.Equity
		status.FreeMargin = account.FreeMargin
		status.MarginLevel = account.MarginLevel
	}
	return status
}

// Clear drops every cached series. The next request per key goes to the
// source again.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func copyCandles(candles []types.Candle) []types.Candle {
	out := make([]types.Candle, len(candles))
	copy(out, candles)
	return out
}
