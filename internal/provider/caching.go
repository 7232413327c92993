package provider

import (
	"context"
	"sync"

	"valuescreen/pkg/model"
)

// memo is a mutex-guarded per-symbol cache
type memo[T any] struct {
	mu sync.Mutex
	m  map[string]T
}

func newMemo[T any]() *memo[T] {
	return &memo[T]{m: make(map[string]T)}
}

func (c *memo[T]) get(symbol string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[symbol]
	return v, ok
}

func (c *memo[T]) put(symbol string, v T) {
	c.mu.Lock()
	c.m[symbol] = v
	c.mu.Unlock()
}

// CachingProvider wraps a Provider with an in-memory cache.
// Used when the score and signal pipelines share one run, or when the
// scheduler re-screens the same universe within a process.
type CachingProvider struct {
	inner   Provider
	maxDays int

	candles      *memo[window]
	fundamentals *memo[*model.FundamentalSnapshot]
	markets      *memo[*model.MarketSnapshot]
	sentiments   *memo[*model.SentimentSnapshot]
}

// NewCachingProvider creates a caching wrapper. maxDays is the number of days
// to always fetch (use the screening history length so one fetch serves
// every caller).
func NewCachingProvider(inner Provider, maxDays int) *CachingProvider {
	return &CachingProvider{
		inner:        inner,
		maxDays:      maxDays,
		candles:      newMemo[window](),
		fundamentals: newMemo[*model.FundamentalSnapshot](),
		markets:      newMemo[*model.MarketSnapshot](),
		sentiments:   newMemo[*model.SentimentSnapshot](),
	}
}

func (p *CachingProvider) Name() string { return p.inner.Name() }

func (p *CachingProvider) Symbols(ctx context.Context) ([]model.Stock, error) {
	return p.inner.Symbols(ctx)
}

// window is a cached series and the number of days it was fetched with
type window struct {
	candles []model.Candle
	days    int
}

// GetDailyCandles serves from cache unless the request is longer than the
// cached fetch and that fetch came back full, in which case it refetches
func (p *CachingProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	if w, ok := p.candles.get(symbol); ok {
		if days <= w.days || len(w.candles) < w.days {
			return tail(w.candles, days), nil
		}
	}

	fetchDays := p.maxDays
	if days > fetchDays {
		fetchDays = days
	}

	candles, err := p.inner.GetDailyCandles(ctx, symbol, fetchDays)
	if err != nil {
		return nil, err
	}
	p.candles.put(symbol, window{candles: candles, days: fetchDays})
	return tail(candles, days), nil
}

func (p *CachingProvider) GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalSnapshot, error) {
	return cached(p.fundamentals, symbol, func() (*model.FundamentalSnapshot, error) {
		return p.inner.GetFundamentals(ctx, symbol)
	})
}

func (p *CachingProvider) GetMarket(ctx context.Context, symbol string) (*model.MarketSnapshot, error) {
	return cached(p.markets, symbol, func() (*model.MarketSnapshot, error) {
		return p.inner.GetMarket(ctx, symbol)
	})
}

func (p *CachingProvider) GetSentiment(ctx context.Context, symbol string) (*model.SentimentSnapshot, error) {
	return cached(p.sentiments, symbol, func() (*model.SentimentSnapshot, error) {
		return p.inner.GetSentiment(ctx, symbol)
	})
}

// cached only stores successful fetches; errors are retried on the next call
func cached[T any](c *memo[T], symbol string, fetch func() (T, error)) (T, error) {
	if v, ok := c.get(symbol); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.put(symbol, v)
	return v, nil
}

func tail(candles []model.Candle, days int) []model.Candle {
	if days >= 0 && len(candles) > days {
		return candles[len(candles)-days:]
	}
	return candles
}
