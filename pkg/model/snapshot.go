package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// Opinion is the consensus analyst investment opinion
type Opinion string

const (
	OpinionBuy  Opinion = "buy"
	OpinionHold Opinion = "hold"
	OpinionSell Opinion = "sell"
)

// FundamentalSnapshot holds the fundamental ratios of a company, all in percent.
// A field that is not Valid was not reported by the provider.
type FundamentalSnapshot struct {
	ROE             null.Float `json:"roe"`
	DebtRatio       null.Float `json:"debt_ratio"`
	CurrentRatio    null.Float `json:"current_ratio"`
	OperatingMargin null.Float `json:"operating_margin"`
	RevenueGrowth   null.Float `json:"revenue_growth"`
}

// MarketSnapshot holds valuation and price-position data
type MarketSnapshot struct {
	PER            null.Float `json:"per"`
	PBR            null.Float `json:"pbr"`
	Week52Position null.Float `json:"week52_position"` // 0-100
	CurrentPrice   null.Float `json:"current_price"`
}

// SentimentSnapshot holds aggregated analyst and news sentiment
type SentimentSnapshot struct {
	AnalystUpside null.Float `json:"analyst_upside"` // percent
	Opinion       Opinion    `json:"investment_opinion"`
	NewsSentiment null.Float `json:"news_sentiment"` // -1..1
}

// Grade is the letter grade of a composite score
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
)

// CompositeScoreResult is the outcome of scoring one symbol.
// It is never modified after it is returned; re-scoring builds a new value.
type CompositeScoreResult struct {
	Symbol           string             `json:"symbol"`
	FundamentalScore float64            `json:"fundamental_score"`
	MarketScore      float64            `json:"market_score"`
	SentimentScore   float64            `json:"sentiment_score"`
	TotalScore       float64            `json:"total_score"`
	Grade            Grade              `json:"grade"`
	Recommendation   string             `json:"recommendation"`
	FloorApplied     bool               `json:"floor_applied"`
	Unanalyzable     bool               `json:"unanalyzable"`
	Missing          []string           `json:"missing,omitempty"`
	Breakdown        map[string]float64 `json:"breakdown"`
	Timestamp        time.Time          `json:"timestamp"`
}
