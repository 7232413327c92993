package provider

import (
	"context"

	"valuescreen/internal/ratelimit"
	"valuescreen/pkg/model"
)

// RateLimitedProvider waits on a limiter before every call and backs off
// when the inner provider reports a retryable error
type RateLimitedProvider struct {
	inner      Provider
	limiter    *ratelimit.Limiter
	maxRetries int
}

// NewRateLimitedProvider wraps inner with limiter. maxRetries bounds the
// number of extra attempts after a retryable error.
func NewRateLimitedProvider(inner Provider, limiter *ratelimit.Limiter, maxRetries int) *RateLimitedProvider {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RateLimitedProvider{inner: inner, limiter: limiter, maxRetries: maxRetries}
}

func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

func (p *RateLimitedProvider) Symbols(ctx context.Context) ([]model.Stock, error) {
	return limited(ctx, p, func() ([]model.Stock, error) { return p.inner.Symbols(ctx) })
}

func (p *RateLimitedProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	return limited(ctx, p, func() ([]model.Candle, error) {
		return p.inner.GetDailyCandles(ctx, symbol, days)
	})
}

func (p *RateLimitedProvider) GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalSnapshot, error) {
	return limited(ctx, p, func() (*model.FundamentalSnapshot, error) {
		return p.inner.GetFundamentals(ctx, symbol)
	})
}

func (p *RateLimitedProvider) GetMarket(ctx context.Context, symbol string) (*model.MarketSnapshot, error) {
	return limited(ctx, p, func() (*model.MarketSnapshot, error) {
		return p.inner.GetMarket(ctx, symbol)
	})
}

func (p *RateLimitedProvider) GetSentiment(ctx context.Context, symbol string) (*model.SentimentSnapshot, error) {
	return limited(ctx, p, func() (*model.SentimentSnapshot, error) {
		return p.inner.GetSentiment(ctx, symbol)
	})
}

func limited[T any](ctx context.Context, p *RateLimitedProvider, call func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		v, err := call()
		if err == nil {
			p.limiter.ResetBackoff()
			return v, nil
		}
		if !IsRetryable(err) || attempt >= p.maxRetries {
			return zero, err
		}
		p.limiter.SignalRateLimited()
		if err := p.limiter.Sleep(ctx); err != nil {
			return zero, err
		}
	}
}
