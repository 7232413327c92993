package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuescreen/internal/criteria"
	"valuescreen/pkg/model"
)

// makeCandles builds a daily series where high/low sit one unit around close
func makeCandles(closes []float64, volume int64) []model.Candle {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: volume,
		}
	}
	return candles
}

func wavySeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/7) + float64(i)*0.1
	}
	return out
}

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(criteria.Default())
	require.NoError(t, err)
	return calc
}

func TestCalculate_MALongIsMeanOfLastWindow(t *testing.T) {
	closes := wavySeries(260)
	set := newCalculator(t).Calculate(makeCandles(closes, 1000))

	var sum float64
	for _, c := range closes[len(closes)-200:] {
		sum += c
	}

	last, ok := set.Latest()
	require.True(t, ok)
	require.True(t, last.MALong.Valid)
	assert.InDelta(t, sum/200, last.MALong.Float64, 1e-9)
}

func TestCalculate_WindowsStayUndefinedUntilFilled(t *testing.T) {
	set := newCalculator(t).Calculate(makeCandles(wavySeries(210), 1000))

	assert.False(t, set.MAShort[18].Valid)
	assert.True(t, set.MAShort[19].Valid)
	assert.False(t, set.MAMid[58].Valid)
	assert.True(t, set.MAMid[59].Valid)
	assert.False(t, set.MALong[198].Valid)
	assert.True(t, set.MALong[199].Valid)

	assert.False(t, set.PriceVsMALong[198].Valid)
	assert.True(t, set.PriceVsMALong[199].Valid)
	assert.False(t, set.GoldenCross[198].Valid)
	assert.True(t, set.GoldenCross[199].Valid)

	assert.False(t, set.RSI[13].Valid)
	assert.True(t, set.RSI[14].Valid)
	assert.False(t, set.StochD[14].Valid)
	assert.True(t, set.StochD[15].Valid)
}

func TestCalculate_ShortSeriesDoesNotFail(t *testing.T) {
	calc := newCalculator(t)

	empty := calc.Calculate(nil)
	assert.Equal(t, 0, empty.Len())
	_, ok := empty.Latest()
	assert.False(t, ok)

	set := calc.Calculate(makeCandles(wavySeries(50), 1000))
	require.Equal(t, 50, set.Len())
	for i := 0; i < set.Len(); i++ {
		assert.False(t, set.MALong[i].Valid, "MALong at %d", i)
		assert.False(t, set.GoldenCross[i].Valid, "GoldenCross at %d", i)
	}
	last, _ := set.Latest()
	assert.True(t, last.MAShort.Valid)
	assert.True(t, last.RSI.Valid)
	assert.True(t, last.BBPosition.Valid)
	assert.True(t, last.VolumeRatio.Valid)
}

func TestCalculate_PriceVsMALong(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100
	}
	closes[199] = 119.9 // mean becomes 100.0995

	set := newCalculator(t).Calculate(makeCandles(closes, 1000))
	last, _ := set.Latest()
	expected := (119.9/last.MALong.Float64 - 1) * 100
	assert.InDelta(t, expected, last.PriceVsMALong.Float64, 1e-12)
}

func TestCalculate_GoldenCrossInUptrend(t *testing.T) {
	closes := make([]float64, 220)
	for i := range closes {
		closes[i] = 50 + float64(i)
	}
	set := newCalculator(t).Calculate(makeCandles(closes, 1000))

	last, _ := set.Latest()
	require.True(t, last.GoldenCross.Valid)
	assert.True(t, last.GoldenCross.Bool)

	for i := range closes {
		closes[i] = 300 - float64(i)
	}
	set = newCalculator(t).Calculate(makeCandles(closes, 1000))
	last, _ = set.Latest()
	require.True(t, last.GoldenCross.Valid)
	assert.False(t, last.GoldenCross.Bool)
}

func TestRSI_KnownValue(t *testing.T) {
	rsi := RSI([]float64{10, 11, 10.5}, 2)
	require.True(t, rsi[2].Valid)
	// avg gain 0.5, avg loss 0.25, RS 2
	assert.InDelta(t, 100-100/3.0, rsi[2].Float64, 1e-12)
}

func TestRSI_AlwaysWithinBounds(t *testing.T) {
	up := make([]float64, 40)
	down := make([]float64, 40)
	flat := make([]float64, 40)
	zigzag := make([]float64, 40)
	for i := range up {
		up[i] = 10 + float64(i)
		down[i] = 100 - float64(i)
		flat[i] = 42
		zigzag[i] = 50 + float64((i%3)*7) - float64((i%5)*4)
	}

	tests := []struct {
		name   string
		closes []float64
		exact  *float64
	}{
		{"monotonic up", up, ptr(100)},
		{"monotonic down", down, ptr(0)},
		{"flat", flat, ptr(100)},
		{"zigzag", zigzag, nil},
		{"wavy", wavySeries(300), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsi := RSI(tt.closes, 14)
			for i, v := range rsi {
				if !v.Valid {
					assert.Less(t, i, 14)
					continue
				}
				assert.GreaterOrEqual(t, v.Float64, 0.0)
				assert.LessOrEqual(t, v.Float64, 100.0)
				if tt.exact != nil {
					assert.Equal(t, *tt.exact, v.Float64)
				}
			}
		})
	}
}

func TestStochastic(t *testing.T) {
	t.Run("flat market is undefined", func(t *testing.T) {
		candles := make([]model.Candle, 20)
		for i := range candles {
			candles[i] = model.Candle{Time: time.Unix(int64(i)*86400, 0), Open: 10, High: 10, Low: 10, Close: 10}
		}
		k, d := Stochastic(candles, 14, 3)
		for i := range k {
			assert.False(t, k[i].Valid)
			assert.False(t, d[i].Valid)
		}
	})

	t.Run("close at top of range", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = float64(i)
		}
		k, d := Stochastic(makeCandles(closes, 100), 14, 3)
		// window [6..19]: low 5, high 20, close 19
		assert.InDelta(t, 100*(19.0-5)/(20-5), k[19].Float64, 1e-12)
		expectedD := (k[17].Float64 + k[18].Float64 + k[19].Float64) / 3
		assert.InDelta(t, expectedD, d[19].Float64, 1e-12)
	})
}

func TestBollinger_PositionIsNotClamped(t *testing.T) {
	base := make([]float64, 25)
	for i := range base {
		base[i] = 100 + float64(i%2)
	}

	above := append(append([]float64(nil), base...), 120)
	bands := Bollinger(above, 20, 2)
	last := len(above) - 1
	require.True(t, bands.Position[last].Valid)
	assert.Greater(t, above[last], bands.Upper[last].Float64)
	assert.Greater(t, bands.Position[last].Float64, 1.0)

	below := append(append([]float64(nil), base...), 80)
	bands = Bollinger(below, 20, 2)
	require.True(t, bands.Position[last].Valid)
	assert.Less(t, below[last], bands.Lower[last].Float64)
	assert.Less(t, bands.Position[last].Float64, 0.0)
}

func TestBollinger_FlatSeriesHasNoPosition(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 50
	}
	bands := Bollinger(flat, 20, 2)
	assert.True(t, bands.Middle[29].Valid)
	assert.Equal(t, 50.0, bands.Upper[29].Float64)
	assert.False(t, bands.Position[29].Valid)
}

func TestOBV_IsAPureFold(t *testing.T) {
	candles := makeCandles([]float64{10, 11, 11, 9, 12, 12, 8}, 0)
	for i := range candles {
		candles[i].Volume = int64(100 * (i + 1))
	}

	first := OBV(candles)
	second := OBV(candles)
	assert.Equal(t, first, second)
	assert.Equal(t, []float64{0, 200, 200, -200, 300, 300, -400}, first)

	for i := 1; i < len(candles); i++ {
		assert.Equal(t, first[i], OBVStep(first[i-1], candles[i-1], candles[i]), "index %d", i)
	}

	// extending the series never rewrites earlier entries
	extended := append(append([]model.Candle(nil), candles...), model.Candle{Close: 20, Volume: 50})
	assert.Equal(t, first, OBV(extended)[:len(candles)])
}

func TestVolumeRatio(t *testing.T) {
	candles := makeCandles(wavySeries(25), 1000)
	candles[24].Volume = 3000

	ratio := VolumeRatio(candles, 20)
	assert.False(t, ratio[18].Valid)
	assert.InDelta(t, 1.0, ratio[19].Float64, 1e-12)
	assert.InDelta(t, 3000/1100.0, ratio[24].Float64, 1e-12)

	zero := VolumeRatio(makeCandles(wavySeries(25), 0), 20)
	assert.False(t, zero[24].Valid)
}

func TestNewCalculator_RejectsInvalidCriteria(t *testing.T) {
	c := criteria.Default()
	c.Indicators.MAShort = 0
	_, err := NewCalculator(c)
	assert.ErrorIs(t, err, criteria.ErrInvalid)
}

func ptr(v float64) *float64 { return &v }
