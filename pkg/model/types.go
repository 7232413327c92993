package model

import (
	"fmt"
	"time"
)

// Candle represents a single daily price point (OHLCV data)
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Stock represents basic stock information
type Stock struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// ValidateSeries checks that candles are ordered oldest to newest with
// strictly increasing dates.
func ValidateSeries(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].Time, candles[i].Time
		if cur.Equal(prev) {
			return fmt.Errorf("duplicate date %s at index %d", cur.Format("2006-01-02"), i)
		}
		if cur.Before(prev) {
			return fmt.Errorf("date %s at index %d is before %s", cur.Format("2006-01-02"), i, prev.Format("2006-01-02"))
		}
	}
	return nil
}

// SignalType classifies a single date of an indicator series
type SignalType string

const (
	SignalBuy         SignalType = "buy"
	SignalInterest    SignalType = "interest"
	SignalSellWarning SignalType = "sell-warning"
	SignalNeutral     SignalType = "neutral"
)

// SignalRecord is the signal computed for one date
type SignalRecord struct {
	Date   time.Time  `json:"date"`
	Signal SignalType `json:"signal"`
}

// SignalSummary aggregates the most recent signals of one symbol
type SignalSummary struct {
	Symbol           string     `json:"symbol"`
	Date             time.Time  `json:"date"`
	Latest           SignalType `json:"latest"`
	Window           int        `json:"window"`
	BuyCount         int        `json:"buy_count"`
	InterestCount    int        `json:"interest_count"`
	SellWarningCount int        `json:"sell_warning_count"`
	NeutralCount     int        `json:"neutral_count"`
	Score            int        `json:"score"` // 2*buy + interest
	Close            float64    `json:"close"`
	RSI              *float64   `json:"rsi,omitempty"`
	PriceVsMALong    *float64   `json:"price_vs_ma_long,omitempty"`
}
