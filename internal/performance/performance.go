// Package performance computes windowed return and volatility statistics
// over an instrument's history.
package performance

import (
	"errors"
	"fmt"
	"math"
	"time"

	"pricewatch/internal/history"
	"pricewatch/internal/model"
)

// ErrInsufficientData is returned when fewer than two observations fall
// inside the requested window.
var ErrInsufficientData = errors.New("insufficient data")

// Report summarises the observations of obs stamped strictly after
// now-window. Only that slice is used for every statistic.
func Report(obs []model.PriceObservation, window time.Duration, now time.Time) (model.PerformanceReport, error) {
	cutoff := now.Add(-window)
	in := history.Filter(obs, func(ts time.Time) bool { return ts.After(cutoff) })
	if len(in) < 2 {
		return model.PerformanceReport{}, fmt.Errorf("report over %s: %d observations: %w", window, len(in), ErrInsufficientData)
	}

	prices := history.PricesOf(in)
	first, last := prices[0], prices[len(prices)-1]
	high, low := first, first
	for _, p := range prices[1:] {
		high = math.Max(high, p)
		low = math.Min(low, p)
	}

	return model.PerformanceReport{
		Symbol:         in[0].Symbol,
		Window:         window,
		From:           in[0].Timestamp,
		To:             in[len(in)-1].Timestamp,
		Samples:        len(in),
		First:          first,
		Last:           last,
		High:           high,
		Low:            low,
		TotalReturnPct: (last - first) / first * 100,
		Volatility:     Volatility(prices),
	}, nil
}

// Volatility is the population standard deviation of the simple step
// returns of prices. Fewer than two prices give 0.
func Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}
