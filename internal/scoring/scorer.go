// Package scoring computes the 100-point composite score of a company from
// its fundamental (45), market (30) and sentiment (25) snapshots and maps
// the total to a grade.
//
// All functions are pure: no I/O, no shared state. Arithmetic is done in
// decimal so grade boundaries compare exactly.
package scoring

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"valuescreen/internal/criteria"
	"valuescreen/pkg/model"
)

// Snapshot part names reported in CompositeScoreResult.Missing
const (
	PartFundamental = "fundamental"
	PartMarket      = "market"
	PartSentiment   = "sentiment"
)

// Scorer computes composite scores with a fixed set of ladders
type Scorer struct {
	cfg criteria.Scoring
	now func() time.Time
}

// Option configures a Scorer
type Option func(*Scorer)

// WithClock sets the clock used to timestamp results
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer creates a scorer after validating c
func NewScorer(c criteria.Criteria, opts ...Option) (*Scorer, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("composite scorer: %w", err)
	}
	s := &Scorer{
		cfg: c.Clone().Scoring,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type breakdown map[string]decimal.Decimal

// Score computes the composite result for one symbol. A nil snapshot scores
// zero for its category and marks the result unanalyzable.
func (s *Scorer) Score(symbol string, f *model.FundamentalSnapshot, m *model.MarketSnapshot, st *model.SentimentSnapshot) model.CompositeScoreResult {
	terms := breakdown{}
	var missing []string

	fundamental := decimal.Zero
	if f != nil {
		fundamental = s.fundamental(f, terms)
	} else {
		missing = append(missing, PartFundamental)
	}

	market := decimal.Zero
	if m != nil {
		market = s.market(m, terms)
	} else {
		missing = append(missing, PartMarket)
	}

	sentiment := decimal.Zero
	if st != nil {
		sentiment = s.sentiment(st, terms)
	} else {
		missing = append(missing, PartSentiment)
	}

	total := fundamental.Add(market).Add(sentiment)

	tier := s.grade(total)
	floorApplied := fundamental.LessThan(decimal.NewFromFloat(s.cfg.FundamentalFloor))
	if floorApplied {
		tier = s.cfg.FloorOverride
	}

	result := model.CompositeScoreResult{
		Symbol:           symbol,
		FundamentalScore: fundamental.InexactFloat64(),
		MarketScore:      market.InexactFloat64(),
		SentimentScore:   sentiment.InexactFloat64(),
		TotalScore:       total.InexactFloat64(),
		Grade:            tier.Grade,
		Recommendation:   tier.Recommendation,
		FloorApplied:     floorApplied,
		Unanalyzable:     len(missing) > 0,
		Missing:          missing,
		Breakdown:        make(map[string]float64, len(terms)),
		Timestamp:        s.now(),
	}
	for name, v := range terms {
		result.Breakdown[name] = v.InexactFloat64()
	}
	return result
}

// fundamental scores ROE, debt ratio, current ratio, operating margin and
// revenue growth, capped at FundamentalCap
func (s *Scorer) fundamental(f *model.FundamentalSnapshot, terms breakdown) decimal.Decimal {
	terms["roe"] = atLeast(f.ROE, s.cfg.ROE)
	terms["debt_ratio"] = s.debtTerm(f)
	terms["current_ratio"] = atLeast(f.CurrentRatio, s.cfg.CurrentRatio)
	terms["operating_margin"] = atLeast(f.OperatingMargin, s.cfg.OperatingMargin)
	terms["revenue_growth"] = atLeast(f.RevenueGrowth, s.cfg.RevenueGrowth)

	sum := terms["roe"].Add(terms["debt_ratio"]).Add(terms["current_ratio"]).
		Add(terms["operating_margin"]).Add(terms["revenue_growth"])
	return clamp(sum, s.cfg.FundamentalCap)
}

// debtTerm is DebtBase - DebtRatio/ceiling*DebtSlope for ratios at or under
// the ceiling, zero above it, and never outside [0, DebtBase].
func (s *Scorer) debtTerm(f *model.FundamentalSnapshot) decimal.Decimal {
	d, ok := toDecimal(f.DebtRatio)
	ceiling := decimal.NewFromFloat(s.cfg.DebtRatioCeiling)
	if !ok || d.GreaterThan(ceiling) {
		return decimal.Zero
	}
	base := decimal.NewFromFloat(s.cfg.DebtBase)
	term := base.Sub(d.Div(ceiling).Mul(decimal.NewFromFloat(s.cfg.DebtSlope)))
	return clamp(term, s.cfg.DebtBase)
}

// market scores PER, PBR and the 52-week position, capped at MarketCap
func (s *Scorer) market(m *model.MarketSnapshot, terms breakdown) decimal.Decimal {
	terms["per"] = atMost(m.PER, s.cfg.PER)
	terms["pbr"] = atMost(m.PBR, s.cfg.PBR)
	terms["week52_position"] = atMost(m.Week52Position, s.cfg.Week52Position)

	sum := terms["per"].Add(terms["pbr"]).Add(terms["week52_position"])
	return clamp(sum, s.cfg.MarketCap)
}

// sentiment scores analyst upside (weighted by opinion when the upside is
// strong) and news sentiment, capped at SentimentCap
func (s *Scorer) sentiment(st *model.SentimentSnapshot, terms breakdown) decimal.Decimal {
	upside, ok := toDecimal(st.AnalystUpside)
	if ok && upside.GreaterThanOrEqual(decimal.NewFromFloat(s.cfg.StrongUpside)) {
		terms["analyst_upside"] = decimal.NewFromFloat(s.opinionPoints(st.Opinion))
	} else {
		terms["analyst_upside"] = atLeast(st.AnalystUpside, s.cfg.Upside)
	}
	terms["news_sentiment"] = atLeast(st.NewsSentiment, s.cfg.NewsSentiment)

	sum := terms["analyst_upside"].Add(terms["news_sentiment"])
	return clamp(sum, s.cfg.SentimentCap)
}

// opinionPoints falls back to the sell points for a missing or unknown opinion
func (s *Scorer) opinionPoints(o model.Opinion) float64 {
	switch o {
	case model.OpinionBuy:
		return s.cfg.OpinionBuy
	case model.OpinionHold:
		return s.cfg.OpinionHold
	default:
		return s.cfg.OpinionSell
	}
}
