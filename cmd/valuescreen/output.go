package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guregu/null/v6"
	"github.com/olekukonko/tablewriter"

	"valuescreen/internal/indicator"
	"valuescreen/pkg/model"
)

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeScoreTable(w io.Writer, r *model.ScoreRanking) error {
	if len(r.Ranked) == 0 {
		fmt.Fprintln(w, "No symbols could be scored.")
	} else {
		table := tablewriter.NewTable(w,
			tablewriter.WithHeader([]string{"#", "Symbol", "Fund", "Market", "Sent", "Total", "Grade", "Recommendation"}),
		)
		for _, s := range r.Ranked {
			rec := s.Recommendation
			if s.FloorApplied {
				rec += " *"
			}
			table.Append([]string{
				fmt.Sprintf("%d", s.Rank),
				s.Symbol,
				fmt.Sprintf("%.2f", s.FundamentalScore),
				fmt.Sprintf("%.2f", s.MarketScore),
				fmt.Sprintf("%.2f", s.SentimentScore),
				fmt.Sprintf("%.2f", s.TotalScore),
				string(s.Grade),
				rec,
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(w, "* fundamental score below floor")
	}

	writeFooter(w, r.TotalScanned, r.Skipped, r.ScanTime)
	return nil
}

func writeSignalTable(w io.Writer, r *model.SignalRanking) error {
	if len(r.Ranked) == 0 {
		fmt.Fprintln(w, "No symbols had enough history.")
	} else {
		table := tablewriter.NewTable(w,
			tablewriter.WithHeader([]string{"#", "Symbol", "Latest", "Buy", "Interest", "Sell", "Score", "Close", "RSI", "vs MA200"}),
		)
		for _, s := range r.Ranked {
			table.Append([]string{
				fmt.Sprintf("%d", s.Rank),
				s.Symbol,
				string(s.Latest),
				fmt.Sprintf("%d", s.BuyCount),
				fmt.Sprintf("%d", s.InterestCount),
				fmt.Sprintf("%d", s.SellWarningCount),
				fmt.Sprintf("%d", s.Score),
				humanize.CommafWithDigits(s.Close, 2),
				ptrString(s.RSI, "%.1f"),
				ptrString(s.PriceVsMALong, "%+.1f%%"),
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	writeFooter(w, r.TotalScanned, r.Skipped, r.ScanTime)
	return nil
}

func writeFooter(w io.Writer, scanned int, skipped []model.SkipRecord, elapsed time.Duration) {
	if len(skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped %s:\n", humanize.Comma(int64(len(skipped))))
		for i, s := range skipped {
			if i == 10 {
				fmt.Fprintf(w, "  ... and %d more\n", len(skipped)-i)
				break
			}
			fmt.Fprintf(w, "  %-10s %s\n", s.Symbol, s.Reason)
		}
	}
	fmt.Fprintf(w, "\nScanned %s symbols in %s\n", humanize.Comma(int64(scanned)), elapsed.Round(time.Millisecond))
}

// lastRows returns the indices of the n most recent dates
func lastRows(set *indicator.Set, n int) (int, int) {
	end := set.Len()
	start := end - n
	if n <= 0 || start < 0 {
		start = 0
	}
	return start, end
}

type indicatorRow struct {
	indicator.Row
	Signal model.SignalType `json:"signal"`
}

func writeIndicatorsJSON(w io.Writer, symbol string, set *indicator.Set, records []model.SignalRecord, n int) error {
	start, end := lastRows(set, n)
	rows := make([]indicatorRow, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, indicatorRow{Row: set.Row(i), Signal: records[i].Signal})
	}
	return writeJSON(w, map[string]any{"symbol": symbol, "rows": rows})
}

func writeIndicatorsTable(w io.Writer, symbol string, set *indicator.Set, records []model.SignalRecord, n int) error {
	fmt.Fprintf(w, "%s: %d dates\n\n", symbol, set.Len())

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Date", "Close", "MA20", "MA60", "MA200", "RSI", "%K", "%D", "BB Pos", "OBV", "Vol x", "Signal"}),
	)
	start, end := lastRows(set, n)
	for i := start; i < end; i++ {
		row := set.Row(i)
		table.Append([]string{
			row.Date.Format("2006-01-02"),
			humanize.CommafWithDigits(row.Close, 2),
			nullString(row.MAShort, "%.2f"),
			nullString(row.MAMid, "%.2f"),
			nullString(row.MALong, "%.2f"),
			nullString(row.RSI, "%.1f"),
			nullString(row.StochK, "%.1f"),
			nullString(row.StochD, "%.1f"),
			nullString(row.BBPosition, "%.2f"),
			humanize.Comma(int64(row.OBV)),
			nullString(row.VolumeRatio, "%.2f"),
			strings.ToUpper(string(records[i].Signal)),
		})
	}
	return table.Render()
}

func nullString(v null.Float, layout string) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf(layout, v.Float64)
}

func ptrString(v *float64, layout string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(layout, *v)
}
