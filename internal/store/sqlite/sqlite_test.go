package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/model"
)

var t0 = time.Date(2026, 8, 3, 14, 0, 0, 123456789, time.UTC)

func openPair(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricewatch.db")
	w, err := New(WriterConfig{DBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	r, err := NewReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return w, r
}

func snapshotEvent(sym string, i int, price float64) model.Event {
	o := model.PriceObservation{
		Symbol: sym, Price: price, Open: price - 1, High: price + 1, Low: price - 2,
		Volume: int64(1000 + i), Timestamp: t0.Add(time.Duration(i) * time.Second),
	}
	return model.Event{Kind: model.EventSnapshot, Symbol: sym, Observation: &o}
}

func TestWriter_RunStoresObservationsAndAlerts(t *testing.T) {
	w, r := openPair(t)

	var committed int
	w.OnCommit = func(rows int, _ time.Duration) { committed += rows }

	events := make(chan model.Event, 300)
	for i := 0; i < 250; i++ {
		events <- snapshotEvent("AAPL", i, 100+float64(i)/10)
	}
	events <- snapshotEvent("MSFT", 0, 410.25)
	a := model.AlertEvent{ID: "a-1", Symbol: "AAPL", CurrentPrice: 100.5, AlertPrice: 100, Timestamp: t0, Message: "near"}
	events <- model.Event{Kind: model.EventAlert, Symbol: "AAPL", Alert: &a}
	events <- model.Event{Kind: model.EventAlert, Symbol: "AAPL", Alert: &a} // duplicate id
	events <- model.Event{Kind: model.EventSnapshot, Symbol: "AAPL"}          // no observation
	close(events)

	w.Run(context.Background(), events)
	assert.Equal(t, 254, committed)

	obs, err := r.ReadObservations("AAPL", 0)
	require.NoError(t, err)
	require.Len(t, obs, 250)
	assert.Equal(t, t0, obs[0].Timestamp, "nanosecond timestamps survive")
	assert.Equal(t, 100.0, obs[0].Price)
	assert.Equal(t, int64(1249), obs[249].Volume)

	last, err := r.ReadObservations("AAPL", 20)
	require.NoError(t, err)
	require.Len(t, last, 20)
	assert.Equal(t, obs[230], last[0])
	assert.Equal(t, obs[249], last[19])

	syms, err := r.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, syms)

	alerts, err := r.ReadAlerts("")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, a, alerts[0])

	none, err := r.ReadAlerts("MSFT")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWriter_RunFlushesOnCancel(t *testing.T) {
	w, r := openPair(t)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan model.Event, 4)
	done := make(chan struct{})
	go func() {
		w.Run(ctx, events)
		close(done)
	}()

	events <- snapshotEvent("TSLA", 0, 250)
	require.Eventually(t, func() bool {
		obs, err := r.ReadObservations("TSLA", 0)
		return err == nil && len(obs) == 1
	}, 2*time.Second, 20*time.Millisecond, "timer flush")

	events <- snapshotEvent("TSLA", 1, 251)
	cancel()
	<-done
	obs, err := r.ReadObservations("TSLA", 0)
	require.NoError(t, err)
	assert.Len(t, obs, 2)
}

func TestExports(t *testing.T) {
	w, r := openPair(t)

	data, err := r.ReadLatestExport()
	require.NoError(t, err)
	assert.Nil(t, data)

	for i := 0; i < exportsKept+5; i++ {
		require.NoError(t, w.SaveExport([]byte(fmt.Sprintf(`{"n":%d}`, i))))
	}

	data, err = r.ReadLatestExport()
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(`{"n":%d}`, exportsKept+4), string(data))

	var n int
	require.NoError(t, w.DB().QueryRow(`SELECT COUNT(*) FROM exports`).Scan(&n))
	assert.Equal(t, exportsKept, n)
}
