// Package signal classifies indicator rows into buy, interest, sell-warning
// or neutral using an ordered rule table.
package signal

import (
	"fmt"

	"github.com/guregu/null/v6"

	"valuescreen/internal/criteria"
	"valuescreen/internal/indicator"
	"valuescreen/pkg/model"
)

// Rule pairs a signal with the predicate that selects it
type Rule struct {
	Signal model.SignalType
	Match  func(row indicator.Row) bool
}

// Evaluator applies the rule table to indicator rows. It keeps no state
// between rows.
type Evaluator struct {
	cfg   criteria.Signals
	rules []Rule
}

// NewEvaluator creates an evaluator after validating c
func NewEvaluator(c criteria.Criteria) (*Evaluator, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("signal evaluator: %w", err)
	}
	e := &Evaluator{cfg: c.Signals}
	e.rules = e.buildRules()
	return e, nil
}

// Rules returns the rule table in precedence order. The first matching rule
// wins; neutral applies when none match.
func (e *Evaluator) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

func (e *Evaluator) buildRules() []Rule {
	cfg := e.cfg
	return []Rule{
		{
			Signal: model.SignalBuy,
			Match: func(r indicator.Row) bool {
				return below(r.RSI, cfg.RSIOversold) &&
					below(r.BBPosition, cfg.BollingerLowerTouch) &&
					above(r.PriceVsMALong, cfg.BuyMinPriceVsMALong) &&
					above(r.VolumeRatio, cfg.VolumeSurge)
			},
		},
		{
			Signal: model.SignalInterest,
			Match: func(r indicator.Row) bool {
				return below(r.RSI, cfg.RSIOversold) &&
					above(r.PriceVsMALong, cfg.InterestMinPriceVsMALong)
			},
		},
		{
			Signal: model.SignalSellWarning,
			Match: func(r indicator.Row) bool {
				return above(r.RSI, cfg.RSIOverbought) ||
					(r.MALong.Valid && r.Close < cfg.SellBelowMALongRatio*r.MALong.Float64) ||
					(r.GoldenCross.Valid && !r.GoldenCross.Bool)
			},
		},
	}
}

// Evaluate classifies a single row
func (e *Evaluator) Evaluate(row indicator.Row) model.SignalType {
	for _, rule := range e.rules {
		if rule.Match(row) {
			return rule.Signal
		}
	}
	return model.SignalNeutral
}

// EvaluateSet classifies every row of set independently
func (e *Evaluator) EvaluateSet(set *indicator.Set) []model.SignalRecord {
	records := make([]model.SignalRecord, set.Len())
	for i := range records {
		row := set.Row(i)
		records[i] = model.SignalRecord{Date: row.Date, Signal: e.Evaluate(row)}
	}
	return records
}

// below and above treat an undefined value as failing the comparison
func below(v null.Float, threshold float64) bool {
	return v.Valid && v.Float64 < threshold
}

func above(v null.Float, threshold float64) bool {
	return v.Valid && v.Float64 > threshold
}
