package scoring

import (
	"math"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"valuescreen/internal/criteria"
)

// toDecimal converts a reported value; missing, NaN and infinite values are
// reported as not ok so the caller falls through to the worst case.
func toDecimal(v null.Float) (decimal.Decimal, bool) {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v.Float64), true
}

// atLeast returns the points of the first rung whose bound v reaches
func atLeast(v null.Float, tiers []criteria.Tier) decimal.Decimal {
	d, ok := toDecimal(v)
	if !ok {
		return decimal.Zero
	}
	for _, t := range tiers {
		if d.GreaterThanOrEqual(decimal.NewFromFloat(t.Bound)) {
			return decimal.NewFromFloat(t.Points)
		}
	}
	return decimal.Zero
}

// atMost returns the points of the first rung whose bound v does not exceed
func atMost(v null.Float, tiers []criteria.Tier) decimal.Decimal {
	d, ok := toDecimal(v)
	if !ok {
		return decimal.Zero
	}
	for _, t := range tiers {
		if d.LessThanOrEqual(decimal.NewFromFloat(t.Bound)) {
			return decimal.NewFromFloat(t.Points)
		}
	}
	return decimal.Zero
}

// clamp bounds v to [0, limit]
func clamp(v decimal.Decimal, limit float64) decimal.Decimal {
	return decimal.Max(decimal.Zero, decimal.Min(v, decimal.NewFromFloat(limit)))
}
