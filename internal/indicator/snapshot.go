package indicator

import (
	"pricewatch/internal/history"
	"pricewatch/internal/model"
)

// Compute derives the full indicator snapshot from an instrument's history
// (oldest first). Histories shorter than MinSnapshotSamples produce nil: no
// partial snapshot is ever returned.
func Compute(obs []model.PriceObservation) *model.IndicatorSnapshot {
	if len(obs) < MinSnapshotSamples {
		return nil
	}
	prices := history.PricesOf(obs)
	ema12, ok12 := EMAOf(prices, PeriodEMAFast)
	ema26, ok26 := EMAOf(prices, PeriodEMASlow)
	rsi, okRSI := RSIOf(prices, PeriodRSI)
	return compose(obs, prices, result{ema12, ok12}, result{ema26, ok26}, result{rsi, okRSI})
}

// Peek previews the snapshot that would follow if price were the next
// observation, without touching obs. capacity is the history bound, so the
// preview evicts exactly as a real append would.
func Peek(obs []model.PriceObservation, price float64, capacity int) *model.IndicatorSnapshot {
	if len(obs) == 0 {
		return nil
	}
	next := obs[len(obs)-1]
	next.Open = next.Price
	next.Price = price
	next.High = max(next.Open, price)
	next.Low = min(next.Open, price)

	preview := make([]model.PriceObservation, 0, len(obs)+1)
	preview = append(preview, obs...)
	preview = append(preview, next)
	if capacity > 0 && len(preview) > capacity {
		preview = preview[len(preview)-capacity:]
	}
	return Compute(preview)
}

type result struct {
	v  float64
	ok bool
}

func (r result) ptr() *float64 {
	if !r.ok {
		return nil
	}
	return model.Float(r.v)
}

// compose fills a snapshot from the window-based indicators (computed here)
// and the order-dependent ones supplied by the caller.
func compose(obs []model.PriceObservation, prices []float64, ema12, ema26, rsi result) *model.IndicatorSnapshot {
	last := obs[len(obs)-1]
	snap := &model.IndicatorSnapshot{
		Symbol:    last.Symbol,
		Price:     last.Price,
		EMA12:     ema12.ptr(),
		EMA26:     ema26.ptr(),
		RSI14:     rsi.ptr(),
		Volume:    last.Volume,
		Samples:   len(obs),
		UpdatedAt: last.Timestamp,
	}

	if v, ok := SMAOf(prices, PeriodSMAFast); ok {
		snap.SMA20 = model.Float(v)
	}
	if v, ok := SMAOf(prices, PeriodSMASlow); ok {
		snap.SMA50 = model.Float(v)
	}
	if ema12.ok && ema26.ok {
		snap.MACD = &model.MACD{Line: ema12.v - ema26.v, EMA12: ema12.v, EMA26: ema26.v}
	}
	if upper, middle, lower, ok := Bollinger(prices, PeriodBands, BandsK); ok {
		snap.Bollinger = &model.Bands{Upper: upper, Middle: middle, Lower: lower}
	}
	if v, ok := SMAOf(history.VolumesOf(obs), PeriodVolume); ok {
		snap.VolumeSMA20 = model.Float(v)
	}
	return snap
}
