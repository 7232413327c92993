package indicator

import (
	"github.com/guregu/null/v6"

	"valuescreen/pkg/model"
)

// RSI calculates the Relative Strength Index from simple averages of the
// trailing period price changes. The first defined entry is at index period.
//
// A window without losses is 100 and one without gains is 0, so flat and
// one-directional series never divide by zero.
func RSI(closes []float64, period int) []null.Float {
	out := make([]null.Float, len(closes))
	if period <= 0 {
		return out
	}

	for i := period; i < len(closes); i++ {
		var gains, losses float64
		for j := i - period + 1; j <= i; j++ {
			change := closes[j] - closes[j-1]
			if change > 0 {
				gains += change
			} else {
				losses -= change
			}
		}

		avgGain := gains / float64(period)
		avgLoss := losses / float64(period)

		switch {
		case avgLoss == 0:
			out[i] = null.FloatFrom(100)
		case avgGain == 0:
			out[i] = null.FloatFrom(0)
		default:
			rs := avgGain / avgLoss
			out[i] = null.FloatFrom(100 - (100 / (1 + rs)))
		}
	}
	return out
}

// Stochastic calculates %K over window and %D as the SMA of %K over smooth.
// %K is undefined where the window's high equals its low.
func Stochastic(candles []model.Candle, window, smooth int) (k, d []null.Float) {
	highs := HighestHigh(candles, window)
	lows := LowestLow(candles, window)

	k = make([]null.Float, len(candles))
	for i, c := range candles {
		if !highs[i].Valid || !lows[i].Valid {
			continue
		}
		rng := highs[i].Float64 - lows[i].Float64
		if rng == 0 {
			continue
		}
		k[i] = null.FloatFrom(100 * (c.Close - lows[i].Float64) / rng)
	}

	return k, SMAOf(k, smooth)
}

// Bands holds Bollinger Band series
type Bands struct {
	Upper    []null.Float
	Middle   []null.Float
	Lower    []null.Float
	Position []null.Float
}

// Bollinger calculates Bollinger Bands of closes. Position is
// (close-lower)/(upper-lower) and is left unclamped: it goes above 1 or below
// 0 when price pierces a band.
func Bollinger(closes []float64, window int, k float64) Bands {
	middle := SMA(closes, window)
	std := RollingStdDev(closes, window, middle)

	b := Bands{
		Upper:    make([]null.Float, len(closes)),
		Middle:   middle,
		Lower:    make([]null.Float, len(closes)),
		Position: make([]null.Float, len(closes)),
	}

	for i := range closes {
		if !middle[i].Valid || !std[i].Valid {
			continue
		}
		upper := middle[i].Float64 + std[i].Float64*k
		lower := middle[i].Float64 - std[i].Float64*k
		b.Upper[i] = null.FloatFrom(upper)
		b.Lower[i] = null.FloatFrom(lower)
		if upper != lower {
			b.Position[i] = null.FloatFrom((closes[i] - lower) / (upper - lower))
		}
	}
	return b
}

// OBV folds On-Balance-Volume over candles from oldest to newest into a new
// slice. OBV[0] is 0.
func OBV(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		out[i] = OBVStep(out[i-1], candles[i-1], candles[i])
	}
	return out
}

// OBVStep advances the running OBV total by one candle
func OBVStep(prev float64, before, cur model.Candle) float64 {
	switch {
	case cur.Close > before.Close:
		return prev + float64(cur.Volume)
	case cur.Close < before.Close:
		return prev - float64(cur.Volume)
	default:
		return prev
	}
}
