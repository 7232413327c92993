package signal

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuescreen/internal/criteria"
	"valuescreen/internal/indicator"
	"valuescreen/pkg/model"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(criteria.Default())
	require.NoError(t, err)
	return e
}

// healthyRow is an uptrending row that matches no rule
func healthyRow() indicator.Row {
	return indicator.Row{
		Close:         110,
		MAShort:       null.FloatFrom(108),
		MAMid:         null.FloatFrom(105),
		MALong:        null.FloatFrom(100),
		PriceVsMALong: null.FloatFrom(10),
		GoldenCross:   null.BoolFrom(true),
		RSI:           null.FloatFrom(55),
		BBPosition:    null.FloatFrom(0.6),
		VolumeRatio:   null.FloatFrom(1.0),
	}
}

func TestRulesOrder(t *testing.T) {
	rules := newEvaluator(t).Rules()
	require.Len(t, rules, 3)
	assert.Equal(t, model.SignalBuy, rules[0].Signal)
	assert.Equal(t, model.SignalInterest, rules[1].Signal)
	assert.Equal(t, model.SignalSellWarning, rules[2].Signal)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *indicator.Row)
		want   model.SignalType
	}{
		{
			name:   "healthy uptrend is neutral",
			modify: func(r *indicator.Row) {},
			want:   model.SignalNeutral,
		},
		{
			name: "oversold at lower band on volume surge is buy",
			modify: func(r *indicator.Row) {
				r.RSI = null.FloatFrom(25)
				r.BBPosition = null.FloatFrom(0.01)
				r.PriceVsMALong = null.FloatFrom(-5)
				r.VolumeRatio = null.FloatFrom(2)
			},
			want: model.SignalBuy,
		},
		{
			name: "buy wins over sell-warning",
			modify: func(r *indicator.Row) {
				r.Close = 85
				r.RSI = null.FloatFrom(22)
				r.BBPosition = null.FloatFrom(-0.1)
				r.PriceVsMALong = null.FloatFrom(-15)
				r.VolumeRatio = null.FloatFrom(1.8)
				r.GoldenCross = null.BoolFrom(false)
			},
			want: model.SignalBuy,
		},
		{
			name: "oversold without volume surge is interest",
			modify: func(r *indicator.Row) {
				r.RSI = null.FloatFrom(25)
				r.BBPosition = null.FloatFrom(0.01)
				r.PriceVsMALong = null.FloatFrom(-5)
				r.VolumeRatio = null.FloatFrom(1.5)
			},
			want: model.SignalInterest,
		},
		{
			name: "oversold far below long average is not interest",
			modify: func(r *indicator.Row) {
				r.Close = 80
				r.RSI = null.FloatFrom(25)
				r.PriceVsMALong = null.FloatFrom(-20)
			},
			want: model.SignalSellWarning,
		},
		{
			name: "rsi exactly at oversold threshold is not oversold",
			modify: func(r *indicator.Row) {
				r.RSI = null.FloatFrom(30)
				r.PriceVsMALong = null.FloatFrom(-5)
			},
			want: model.SignalNeutral,
		},
		{
			name:   "overbought is sell-warning",
			modify: func(r *indicator.Row) { r.RSI = null.FloatFrom(71) },
			want:   model.SignalSellWarning,
		},
		{
			name:   "lost golden cross is sell-warning",
			modify: func(r *indicator.Row) { r.GoldenCross = null.BoolFrom(false) },
			want:   model.SignalSellWarning,
		},
		{
			name: "close under ninety percent of long average is sell-warning",
			modify: func(r *indicator.Row) {
				r.Close = 89
				r.PriceVsMALong = null.FloatFrom(-11)
			},
			want: model.SignalSellWarning,
		},
		{
			name: "undefined golden cross does not warn",
			modify: func(r *indicator.Row) {
				r.GoldenCross = null.Bool{}
				r.MALong = null.Float{}
				r.PriceVsMALong = null.Float{}
			},
			want: model.SignalNeutral,
		},
		{
			name: "undefined rsi disables buy and interest",
			modify: func(r *indicator.Row) {
				r.RSI = null.Float{}
				r.BBPosition = null.FloatFrom(0.01)
				r.VolumeRatio = null.FloatFrom(3)
			},
			want: model.SignalNeutral,
		},
	}

	e := newEvaluator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := healthyRow()
			tt.modify(&row)
			assert.Equal(t, tt.want, e.Evaluate(row))
		})
	}
}

func TestEvaluate_EmptyRowIsNeutral(t *testing.T) {
	assert.Equal(t, model.SignalNeutral, newEvaluator(t).Evaluate(indicator.Row{}))
}

func TestEvaluateSetAndSummarize(t *testing.T) {
	calc, err := indicator.NewCalculator(criteria.Default())
	require.NoError(t, err)

	// steady decline: RSI pinned at 0 and price sliding below the long average
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, 240)
	for i := range candles {
		price := 300 - float64(i)
		candles[i] = model.Candle{Time: start.AddDate(0, 0, i), Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 1000}
	}
	set := calc.Calculate(candles)

	e := newEvaluator(t)
	records := e.EvaluateSet(set)
	require.Len(t, records, len(candles))
	for i, rec := range records {
		assert.Equal(t, candles[i].Time, rec.Date)
		assert.Equal(t, e.Evaluate(set.Row(i)), rec.Signal)
	}

	summary := Summarize("DOWN", set, records, 20)
	assert.Equal(t, "DOWN", summary.Symbol)
	assert.Equal(t, 20, summary.BuyCount+summary.InterestCount+summary.SellWarningCount+summary.NeutralCount)
	assert.Equal(t, 2*summary.BuyCount+summary.InterestCount, summary.Score)
	assert.Equal(t, records[len(records)-1].Signal, summary.Latest)
	assert.Equal(t, candles[len(candles)-1].Close, summary.Close)
	require.NotNil(t, summary.RSI)
	assert.Equal(t, 0.0, *summary.RSI)
}

func TestSummarize_CountsWindowOnly(t *testing.T) {
	records := []model.SignalRecord{
		{Signal: model.SignalBuy},
		{Signal: model.SignalBuy},
		{Signal: model.SignalInterest},
		{Signal: model.SignalBuy},
		{Signal: model.SignalSellWarning},
		{Signal: model.SignalInterest},
	}

	summary := Summarize("X", &indicator.Set{}, records, 4)
	assert.Equal(t, 1, summary.BuyCount)
	assert.Equal(t, 2, summary.InterestCount)
	assert.Equal(t, 1, summary.SellWarningCount)
	assert.Equal(t, 4, summary.Score)
	assert.Equal(t, model.SignalInterest, summary.Latest)

	empty := Summarize("Y", &indicator.Set{}, nil, 20)
	assert.Equal(t, model.SignalNeutral, empty.Latest)
	assert.Zero(t, empty.Score)
}
