package pricesource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/model"
)

type memReader map[string][]model.PriceObservation

func (m memReader) ReadObservations(symbol string, _ int) ([]model.PriceObservation, error) {
	if symbol == "BROKEN" {
		return nil, errors.New("disk on fire")
	}
	return append([]model.PriceObservation(nil), m[symbol]...), nil
}

func recorded(symbol string, start time.Time, prices ...float64) []model.PriceObservation {
	out := make([]model.PriceObservation, len(prices))
	for i, p := range prices {
		out[i] = model.PriceObservation{Symbol: symbol, Price: p, Open: p, High: p, Low: p, Volume: 10, Timestamp: start.Add(time.Duration(i) * time.Minute)}
	}
	return out
}

func TestReplay_ServesInOrderAndRebases(t *testing.T) {
	recordedAt := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	now := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	r := NewReplay(memReader{"AAPL": recorded("AAPL", recordedAt, 100, 101, 99.5)})
	r.Now = func() time.Time { return now }
	ctx := context.Background()

	assert.Equal(t, -1, r.Remaining("AAPL"))

	var last *model.PriceObservation
	for i, want := range []float64{100, 101, 99.5} {
		obs, err := r.NextPrice(ctx, "AAPL", last)
		require.NoError(t, err)
		assert.Equal(t, want, obs.Price)
		assert.Equal(t, now.Add(time.Duration(i)*time.Minute), obs.Timestamp)
		require.NoError(t, obs.Validate())
		last = &obs
	}
	assert.Equal(t, 0, r.Remaining("AAPL"))

	_, err := r.NextPrice(ctx, "AAPL", last)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestReplay_NeverGoesBackInTime(t *testing.T) {
	recordedAt := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	now := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	r := NewReplay(memReader{"AAPL": recorded("AAPL", recordedAt, 100)})
	r.Now = func() time.Time { return now }

	ahead := model.PriceObservation{Symbol: "AAPL", Price: 98, Open: 98, High: 98, Low: 98, Timestamp: now.Add(time.Hour)}
	obs, err := r.NextPrice(context.Background(), "AAPL", &ahead)
	require.NoError(t, err)
	assert.Equal(t, ahead.Timestamp, obs.Timestamp)
}

func TestReplay_UnknownAndFailingSymbols(t *testing.T) {
	r := NewReplay(memReader{})
	_, err := r.NextPrice(context.Background(), "NONE", nil)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 0, r.Remaining("NONE"))

	_, err = r.NextPrice(context.Background(), "BROKEN", nil)
	assert.ErrorContains(t, err, "disk on fire")
	assert.Equal(t, -1, r.Remaining("BROKEN"), "failed loads are retried")
}

func TestReplay_RespectsCancelledContext(t *testing.T) {
	r := NewReplay(memReader{"AAPL": recorded("AAPL", time.Now(), 100)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.NextPrice(ctx, "AAPL", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
