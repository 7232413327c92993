package signal

import (
	"valuescreen/internal/indicator"
	"valuescreen/pkg/model"
)

// Summarize counts the signals of the last window records. The summary score
// weights a buy twice as much as an interest signal.
func Summarize(symbol string, set *indicator.Set, records []model.SignalRecord, window int) model.SignalSummary {
	summary := model.SignalSummary{
		Symbol: symbol,
		Window: window,
		Latest: model.SignalNeutral,
	}
	if len(records) == 0 {
		return summary
	}

	start := len(records) - window
	if start < 0 {
		start = 0
	}
	for _, rec := range records[start:] {
		switch rec.Signal {
		case model.SignalBuy:
			summary.BuyCount++
		case model.SignalInterest:
			summary.InterestCount++
		case model.SignalSellWarning:
			summary.SellWarningCount++
		default:
			summary.NeutralCount++
		}
	}
	summary.Score = 2*summary.BuyCount + summary.InterestCount

	last := records[len(records)-1]
	summary.Latest = last.Signal
	summary.Date = last.Date

	if row, ok := set.Latest(); ok {
		summary.Close = row.Close
		summary.RSI = row.RSI.Ptr()
		summary.PriceVsMALong = row.PriceVsMALong.Ptr()
	}
	return summary
}
