package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/model"
)

var ts = time.Date(2026, 5, 4, 13, 30, 0, 0, time.UTC)

func validSnapshot() Snapshot {
	target := 190.0
	return Snapshot{
		Version:    Version,
		ExportedAt: ts,
		Watchlist: []model.WatchlistEntry{
			{Symbol: "AAPL", AlertPrice: &target, AddedAt: ts},
			{Symbol: "MSFT", AddedAt: ts},
		},
		Histories: map[string][]model.PriceObservation{
			"AAPL": {
				{Symbol: "AAPL", Price: 189, Open: 188, High: 190, Low: 187, Volume: 100, Timestamp: ts},
				{Symbol: "AAPL", Price: 190, Open: 189, High: 191, Low: 189, Volume: 120, Timestamp: ts.Add(time.Minute)},
			},
		},
		Alerts: []model.AlertEvent{
			{ID: "a1", Symbol: "AAPL", CurrentPrice: 190, AlertPrice: 190, Timestamp: ts.Add(time.Minute), Message: "hit"},
		},
	}
}

func TestEncodeDecode(t *testing.T) {
	in := validSnapshot()
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in.Watchlist[0].Symbol, out.Watchlist[0].Symbol)
	assert.Equal(t, *in.Watchlist[0].AlertPrice, *out.Watchlist[0].AlertPrice)
	assert.Nil(t, out.Watchlist[1].AlertPrice)
	assert.Len(t, out.Histories["AAPL"], 2)
	assert.True(t, in.Histories["AAPL"][1].Timestamp.Equal(out.Histories["AAPL"][1].Timestamp))
	assert.Equal(t, in.Alerts[0].ID, out.Alerts[0].ID)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"version", func(s *Snapshot) { s.Version = 99 }},
		{"lowercase symbol", func(s *Snapshot) { s.Watchlist[1].Symbol = "msft" }},
		{"duplicate symbol", func(s *Snapshot) { s.Watchlist[1].Symbol = "AAPL" }},
		{"bad alert price", func(s *Snapshot) { p := -1.0; s.Watchlist[1].AlertPrice = &p }},
		{"orphan history", func(s *Snapshot) { s.Histories["TSLA"] = nil }},
		{"wrong symbol in history", func(s *Snapshot) { s.Histories["AAPL"][0].Symbol = "MSFT" }},
		{"non-positive price", func(s *Snapshot) { s.Histories["AAPL"][0].Price = 0 }},
		{"negative volume", func(s *Snapshot) { s.Histories["AAPL"][1].Volume = -1 }},
		{"time goes back", func(s *Snapshot) { s.Histories["AAPL"][1].Timestamp = ts.Add(-time.Hour) }},
		{"alert without symbol", func(s *Snapshot) { s.Alerts[0].Symbol = "" }},
		{"alert without time", func(s *Snapshot) { s.Alerts[0].Timestamp = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSnapshot()
			tt.mutate(&s)
			data, err := Encode(s)
			require.NoError(t, err)

			_, err = Decode(data)
			assert.ErrorIs(t, err, ErrMalformedData)
		})
	}
}

func TestDecode_Unparseable(t *testing.T) {
	for _, payload := range []string{
		``,
		`not json`,
		`{"version": "one"}`,
		`{"version": 1, "unexpected": true}`,
		`{"version": 1} {"version": 1}`,
	} {
		_, err := Decode([]byte(payload))
		assert.ErrorIs(t, err, ErrMalformedData, payload)
	}
}

func TestDecode_EmptyStateIsValid(t *testing.T) {
	_, err := Decode([]byte(`{"version": 1, "watchlist": [], "histories": {}, "alerts": []}`))
	assert.NoError(t, err)
}
