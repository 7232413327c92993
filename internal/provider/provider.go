package provider

import (
	"context"
	"errors"

	"valuescreen/pkg/model"
)

// ErrUnavailable is returned when a provider explicitly has no data for a symbol
var ErrUnavailable = errors.New("data unavailable")

// PriceProvider supplies daily price history
type PriceProvider interface {
	// GetDailyCandles returns up to days candles, oldest first. A short or
	// empty series is not an error.
	GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error)
}

// FundamentalsProvider supplies the latest financial ratios
type FundamentalsProvider interface {
	GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalSnapshot, error)
}

// MarketProvider supplies valuation ratios and the 52-week position
type MarketProvider interface {
	GetMarket(ctx context.Context, symbol string) (*model.MarketSnapshot, error)
}

// SentimentProvider supplies analyst and news sentiment
type SentimentProvider interface {
	GetSentiment(ctx context.Context, symbol string) (*model.SentimentSnapshot, error)
}

// Provider defines the interface for data providers
type Provider interface {
	PriceProvider
	FundamentalsProvider
	MarketProvider
	SentimentProvider

	// Name returns the provider name
	Name() string

	// Symbols returns every symbol the provider has data for
	Symbols(ctx context.Context) ([]model.Stock, error)
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err carries a retryable ProviderError
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// FallbackProvider tries multiple providers in order
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	return &FallbackProvider{providers: providers}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}

// firstOf calls each provider in order and returns the first success.
// A cancelled context stops the walk.
func firstOf[T any](ctx context.Context, providers []Provider, call func(Provider) (T, error)) (T, error) {
	var zero T
	lastErr := error(&ProviderError{Provider: "fallback", Err: ErrUnavailable})
	for _, p := range providers {
		v, err := call(p)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err
	}
	return zero, lastErr
}

// GetDailyCandles returns the first non-empty series. When every provider
// answers empty or fails, an empty answer wins over an error.
func (f *FallbackProvider) GetDailyCandles(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	var (
		empty   bool
		lastErr error = &ProviderError{Provider: "fallback", Err: ErrUnavailable}
	)
	for _, p := range f.providers {
		candles, err := p.GetDailyCandles(ctx, symbol, days)
		if err == nil && len(candles) > 0 {
			return candles, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			lastErr = err
		} else {
			empty = true
		}
	}
	if empty {
		return nil, nil
	}
	return nil, lastErr
}

// GetFundamentals tries each provider in order
func (f *FallbackProvider) GetFundamentals(ctx context.Context, symbol string) (*model.FundamentalSnapshot, error) {
	return firstOf(ctx, f.providers, func(p Provider) (*model.FundamentalSnapshot, error) {
		return p.GetFundamentals(ctx, symbol)
	})
}

// GetMarket tries each provider in order
func (f *FallbackProvider) GetMarket(ctx context.Context, symbol string) (*model.MarketSnapshot, error) {
	return firstOf(ctx, f.providers, func(p Provider) (*model.MarketSnapshot, error) {
		return p.GetMarket(ctx, symbol)
	})
}

// GetSentiment tries each provider in order
func (f *FallbackProvider) GetSentiment(ctx context.Context, symbol string) (*model.SentimentSnapshot, error) {
	return firstOf(ctx, f.providers, func(p Provider) (*model.SentimentSnapshot, error) {
		return p.GetSentiment(ctx, symbol)
	})
}

// Symbols merges the listings of every provider, first provider wins on
// duplicate symbols
func (f *FallbackProvider) Symbols(ctx context.Context) ([]model.Stock, error) {
	var (
		stocks  []model.Stock
		seen    = make(map[string]bool)
		lastErr error
		ok      bool
	)
	for _, p := range f.providers {
		list, err := p.Symbols(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		ok = true
		for _, s := range list {
			if seen[s.Symbol] {
				continue
			}
			seen[s.Symbol] = true
			stocks = append(stocks, s)
		}
	}
	if !ok && lastErr != nil {
		return nil, lastErr
	}
	return stocks, nil
}
