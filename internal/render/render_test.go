package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/model"
)

var ts = time.Date(2026, 6, 1, 14, 24, 0, 0, time.UTC)

func TestSnapshot_WarmingUp(t *testing.T) {
	var b strings.Builder
	require.NoError(t, Snapshot(&b, "AAPL", nil))
	assert.Equal(t, "AAPL: warming up, not enough history for indicators\n", b.String())
}

func TestSnapshot_Partial(t *testing.T) {
	snap := &model.IndicatorSnapshot{
		Symbol: "AAPL", Price: 189.5, Samples: 25, UpdatedAt: ts,
		SMA20: model.Float(188.123), EMA12: model.Float(189.01), RSI14: model.Float(61.6),
		Bollinger:   &model.Bands{Upper: 191.14, Middle: 188.12, Lower: 185.1},
		Volume:      1200,
		VolumeSMA20: model.Float(1145),
	}
	var b strings.Builder
	require.NoError(t, Snapshot(&b, "AAPL", snap))
	out := b.String()

	assert.True(t, strings.HasPrefix(out, "AAPL  189.50  (25 samples, 2026-06-01 14:24:00 UTC)\n"), out)
	assert.Regexp(t, `SMA20\s+188\.12\n`, out)
	assert.Regexp(t, `SMA50\s+-\n`, out)
	assert.Regexp(t, `RSI14\s+61\.60\n`, out)
	assert.Regexp(t, `MACD\s+-\n`, out)
	assert.Regexp(t, `Bollinger\s+185\.10 / 188\.12 / 191\.14\n`, out)
	assert.Regexp(t, `Volume\s+1200 \(avg20 1145\.00\)\n`, out)
}

func TestReport(t *testing.T) {
	r := model.PerformanceReport{
		Symbol: "MSFT", Window: time.Hour, From: ts.Add(-time.Hour), To: ts, Samples: 4,
		First: 100, Last: 105, High: 105, Low: 99, TotalReturnPct: 5, Volatility: 0.0412,
	}
	var b strings.Builder
	require.NoError(t, Report(&b, r))
	out := b.String()

	assert.Contains(t, out, "MSFT performance over 1h0m0s (4 samples)")
	assert.Regexp(t, `Return\s+5\.00%`, out)
	assert.Regexp(t, `Volatility\s+4\.12%`, out)
	assert.Regexp(t, `Low\s+99\.00`, out)
}

func TestAlerts(t *testing.T) {
	var b strings.Builder
	require.NoError(t, Alerts(&b, nil))
	assert.Equal(t, "no alerts\n", b.String())

	b.Reset()
	require.NoError(t, Alerts(&b, []model.AlertEvent{
		{Symbol: "AAPL", Timestamp: ts, Message: "AAPL at 189.50 is within 1% of target 190.00 (-0.26%)"},
		{Symbol: "TSLA", Timestamp: ts.Add(time.Minute), Message: "TSLA at 250.00 is within 1% of target 251.00 (-0.40%)"},
	}))
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "AAPL at 189.50")
	assert.Contains(t, lines[1], "2026-06-01 14:25:00 UTC")
}

func TestWatchlist(t *testing.T) {
	v := 190.0
	var b strings.Builder
	require.NoError(t, Watchlist(&b, []model.WatchlistEntry{
		{Symbol: "AAPL", AlertPrice: &v, AddedAt: ts},
		{Symbol: "MSFT", AddedAt: ts},
	}))
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 3)
	assert.Regexp(t, `^SYMBOL\s+ALERT\s+ADDED$`, lines[0])
	assert.Regexp(t, `^AAPL\s+190\.00\s+2026-06-01T14:24:00Z$`, lines[1])
	assert.Regexp(t, `^MSFT\s+-\s+`, lines[2])
}
