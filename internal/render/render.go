// Package render formats tracker state as plain text for terminals.
package render

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 MST"

func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return price(*v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Snapshot writes one instrument's indicator set. A nil snap is reported as
// warming up.
func Snapshot(w io.Writer, symbol string, snap *model.IndicatorSnapshot) error {
	if snap == nil {
		_, err := fmt.Fprintf(w, "%s: warming up, not enough history for indicators\n", symbol)
		return err
	}

	fmt.Fprintf(w, "%s  %s  (%d samples, %s)\n", snap.Symbol, price(snap.Price), snap.Samples, snap.UpdatedAt.UTC().Format(timeLayout))
	tw := newTable(w)
	fmt.Fprintf(tw, "  SMA20\t%s\n", optional(snap.SMA20))
	fmt.Fprintf(tw, "  SMA50\t%s\n", optional(snap.SMA50))
	fmt.Fprintf(tw, "  EMA12\t%s\n", optional(snap.EMA12))
	fmt.Fprintf(tw, "  EMA26\t%s\n", optional(snap.EMA26))
	fmt.Fprintf(tw, "  RSI14\t%s\n", optional(snap.RSI14))
	if snap.MACD != nil {
		fmt.Fprintf(tw, "  MACD\t%s\n", price(snap.MACD.Line))
	} else {
		fmt.Fprintf(tw, "  MACD\t-\n")
	}
	if b := snap.Bollinger; b != nil {
		fmt.Fprintf(tw, "  Bollinger\t%s / %s / %s\n", price(b.Lower), price(b.Middle), price(b.Upper))
	} else {
		fmt.Fprintf(tw, "  Bollinger\t-\n")
	}
	fmt.Fprintf(tw, "  Volume\t%d (avg20 %s)\n", snap.Volume, optional(snap.VolumeSMA20))
	return tw.Flush()
}

// Report writes a performance summary.
func Report(w io.Writer, r model.PerformanceReport) error {
	fmt.Fprintf(w, "%s performance over %s (%d samples)\n", r.Symbol, r.Window, r.Samples)
	tw := newTable(w)
	fmt.Fprintf(tw, "  From\t%s\n", r.From.UTC().Format(timeLayout))
	fmt.Fprintf(tw, "  To\t%s\n", r.To.UTC().Format(timeLayout))
	fmt.Fprintf(tw, "  First\t%s\n", price(r.First))
	fmt.Fprintf(tw, "  Last\t%s\n", price(r.Last))
	fmt.Fprintf(tw, "  High\t%s\n", price(r.High))
	fmt.Fprintf(tw, "  Low\t%s\n", price(r.Low))
	fmt.Fprintf(tw, "  Return\t%s%%\n", decimal.NewFromFloat(r.TotalReturnPct).StringFixed(2))
	fmt.Fprintf(tw, "  Volatility\t%s%%\n", decimal.NewFromFloat(r.Volatility*100).StringFixed(2))
	return tw.Flush()
}

// Alerts writes one line per alert, oldest first.
func Alerts(w io.Writer, alerts []model.AlertEvent) error {
	if len(alerts) == 0 {
		_, err := fmt.Fprintln(w, "no alerts")
		return err
	}
	tw := newTable(w)
	for _, a := range alerts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Timestamp.UTC().Format(timeLayout), a.Symbol, a.Message)
	}
	return tw.Flush()
}

// Watchlist writes the tracked symbols and their alert targets.
func Watchlist(w io.Writer, entries []model.WatchlistEntry) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SYMBOL\tALERT\tADDED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Symbol, optional(e.AlertPrice), e.AddedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
