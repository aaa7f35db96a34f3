package indicator

import (
	"pricewatch/internal/history"
	"pricewatch/internal/model"
)

// Incremental keeps the order-dependent indicators (EMA12, EMA26, RSI14) of
// one instrument up to date one observation at a time instead of rescanning
// the history on every tick. Its snapshots are identical to Compute over
// the same history.
//
// EMA and RSI are seeded from the first observations of the history, so
// once the bounded history starts evicting the carried state no longer
// describes the window and is rebuilt from it.
type Incremental struct {
	ema12 *EMA
	ema26 *EMA
	rsi   *RSI
	fed   int // observations folded into the state since the last reset

	rebuilds int
}

// NewIncremental creates an empty calculator.
func NewIncremental() *Incremental {
	return &Incremental{
		ema12: NewEMA(PeriodEMAFast),
		ema26: NewEMA(PeriodEMASlow),
		rsi:   NewRSI(PeriodRSI),
	}
}

// Reset clears all carried state.
func (c *Incremental) Reset() {
	c.ema12.Reset()
	c.ema26.Reset()
	c.rsi.Reset()
	c.fed = 0
}

// Rebuild resets the state and replays the whole history.
func (c *Incremental) Rebuild(obs []model.PriceObservation) {
	c.Reset()
	c.rebuilds++
	for i := range obs {
		c.feed(obs[i].Price)
	}
}

// Next folds the newest observation of obs into the state and returns the
// snapshot for obs. evicted must report whether the append that produced
// obs dropped the oldest observation.
func (c *Incremental) Next(obs []model.PriceObservation, evicted bool) *model.IndicatorSnapshot {
	if len(obs) == 0 {
		c.Reset()
		return nil
	}
	if evicted || c.fed != len(obs)-1 {
		c.Rebuild(obs)
	} else {
		c.feed(obs[len(obs)-1].Price)
	}
	return c.Snapshot(obs)
}

// Snapshot composes the snapshot for obs from the carried state. obs must
// be the history the state was built from.
func (c *Incremental) Snapshot(obs []model.PriceObservation) *model.IndicatorSnapshot {
	if len(obs) < MinSnapshotSamples {
		return nil
	}
	return compose(obs, history.PricesOf(obs),
		result{c.ema12.Value(), c.ema12.Ready()},
		result{c.ema26.Value(), c.ema26.Ready()},
		result{c.rsi.Value(), c.rsi.Ready()},
	)
}

// Rebuilds returns how many times the state was replayed from a history.
func (c *Incremental) Rebuilds() int { return c.rebuilds }

func (c *Incremental) feed(price float64) {
	c.ema12.Update(price)
	c.ema26.Update(price)
	c.rsi.Update(price)
	c.fed++
}
