package indicator

import (
	"math"

	"github.com/guregu/null/v6"

	"valuescreen/pkg/model"
)

// SMA calculates the Simple Moving Average series for the given window.
// Entries before the window fills are left undefined.
func SMA(values []float64, window int) []null.Float {
	out := make([]null.Float, len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		var sum float64
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = null.FloatFrom(sum / float64(window))
	}
	return out
}

// SMAOf averages a series that may itself contain undefined entries.
// A window touching an undefined entry is undefined.
func SMAOf(values []null.Float, window int) []null.Float {
	out := make([]null.Float, len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		var sum float64
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if !values[j].Valid {
				ok = false
				break
			}
			sum += values[j].Float64
		}
		if ok {
			out[i] = null.FloatFrom(sum / float64(window))
		}
	}
	return out
}

// RollingStdDev calculates the population standard deviation of values over
// the window ending at each index, around the supplied mean series.
func RollingStdDev(values []float64, window int, mean []null.Float) []null.Float {
	out := make([]null.Float, len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		if !mean[i].Valid {
			continue
		}
		var sumSquares float64
		for j := i - window + 1; j <= i; j++ {
			diff := values[j] - mean[i].Float64
			sumSquares += diff * diff
		}
		out[i] = null.FloatFrom(math.Sqrt(sumSquares / float64(window)))
	}
	return out
}

// HighestHigh returns the highest high of the trailing window at each index
func HighestHigh(candles []model.Candle, window int) []null.Float {
	out := make([]null.Float, len(candles))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(candles); i++ {
		high := candles[i-window+1].High
		for j := i - window + 2; j <= i; j++ {
			if candles[j].High > high {
				high = candles[j].High
			}
		}
		out[i] = null.FloatFrom(high)
	}
	return out
}

// LowestLow returns the lowest low of the trailing window at each index
func LowestLow(candles []model.Candle, window int) []null.Float {
	out := make([]null.Float, len(candles))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(candles); i++ {
		low := candles[i-window+1].Low
		for j := i - window + 2; j <= i; j++ {
			if candles[j].Low < low {
				low = candles[j].Low
			}
		}
		out[i] = null.FloatFrom(low)
	}
	return out
}

// PriceVsMA returns (close/ma - 1) * 100 where ma is defined and non-zero
func PriceVsMA(closes []float64, ma []null.Float) []null.Float {
	out := make([]null.Float, len(closes))
	for i := range closes {
		if !ma[i].Valid || ma[i].Float64 == 0 {
			continue
		}
		out[i] = null.FloatFrom((closes[i]/ma[i].Float64 - 1) * 100)
	}
	return out
}

// GoldenCross reports short > mid > long. It stays undefined until all three
// averages are defined.
func GoldenCross(short, mid, long []null.Float) []null.Bool {
	out := make([]null.Bool, len(short))
	for i := range short {
		if !short[i].Valid || !mid[i].Valid || !long[i].Valid {
			continue
		}
		out[i] = null.BoolFrom(short[i].Float64 > mid[i].Float64 && mid[i].Float64 > long[i].Float64)
	}
	return out
}

// VolumeRatio divides each volume by its trailing average volume
func VolumeRatio(candles []model.Candle, window int) []null.Float {
	avg := SMA(volumes(candles), window)
	out := make([]null.Float, len(candles))
	for i, c := range candles {
		if !avg[i].Valid || avg[i].Float64 == 0 {
			continue
		}
		out[i] = null.FloatFrom(float64(c.Volume) / avg[i].Float64)
	}
	return out
}

func closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func volumes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = float64(c.Volume)
	}
	return out
}
