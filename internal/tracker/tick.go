package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pricewatch/internal/alert"
	"pricewatch/internal/history"
	"pricewatch/internal/indicator"
	"pricewatch/internal/logger"
	"pricewatch/internal/model"
)

// TickResult summarises one tick.
type TickResult struct {
	Instruments int
	Updated     int
	Failed      int
	Alerts      int
	Duration    time.Duration
}

// Tick runs one update cycle over the whole watchlist. Instruments are
// fetched and updated in parallel, each bounded by FetchTimeout, and Tick
// returns once all of them are done. A failing instrument does not affect
// the others.
func (t *Tracker) Tick(ctx context.Context) TickResult {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()

	start := time.Now()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID("tick", start))
	entries := t.Entries()

	var updated, failed, fired atomic.Int64
	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e model.WatchlistEntry) {
			defer wg.Done()
			n, err := t.update(ctx, e)
			if err != nil {
				failed.Add(1)
				if t.metrics != nil {
					t.metrics.FetchErrorsTotal.WithLabelValues(e.Symbol).Inc()
				}
				slog.Warn("[tracker] update failed", append(logger.LogWithTrace(ctx), "symbol", e.Symbol, "error", err)...)
				return
			}
			updated.Add(1)
			fired.Add(int64(n))
		}(e)
	}
	wg.Wait()

	res := TickResult{
		Instruments: len(entries),
		Updated:     int(updated.Load()),
		Failed:      int(failed.Load()),
		Alerts:      int(fired.Load()),
		Duration:    time.Since(start),
	}
	if t.metrics != nil {
		t.metrics.TicksTotal.Inc()
		t.metrics.TickDuration.Observe(res.Duration.Seconds())
		for _, st := range t.bus.ChannelStats() {
			if st.Cap > 0 {
				t.metrics.ChannelSaturationPct.WithLabelValues(st.Name).Set(float64(st.Len) / float64(st.Cap) * 100)
			}
		}
	}
	if t.health != nil {
		t.health.RecordTick(t.now(), res.Instruments)
	}
	slog.Debug("[tracker] tick done", append(logger.LogWithTrace(ctx),
		"instruments", res.Instruments, "updated", res.Updated, "failed", res.Failed,
		"alerts", res.Alerts, "duration", res.Duration.String())...)
	return res
}

// update fetches, appends and recomputes one instrument, then evaluates its
// alert. It returns the number of alerts fired.
func (t *Tracker) update(ctx context.Context, e model.WatchlistEntry) (int, error) {
	in, ok := t.instrument(e.Symbol)
	if !ok {
		return 0, nil // removed since the tick started
	}

	var last *model.PriceObservation
	if obs, err := t.store.Latest(e.Symbol); err == nil {
		last = &obs
	} else if !errors.Is(err, history.ErrNoData) {
		return 0, err
	}

	obs, err := t.fetch(ctx, e.Symbol, last)
	if err != nil {
		return 0, err
	}
	if obs.Symbol != e.Symbol {
		return 0, fmt.Errorf("price source returned %q for %s", obs.Symbol, e.Symbol)
	}
	if err := obs.Validate(); err != nil {
		return 0, err
	}
	if last != nil && obs.Timestamp.Before(last.Timestamp) {
		return 0, fmt.Errorf("observation for %s goes back in time", e.Symbol)
	}

	snap, err := t.apply(in, obs)
	if errors.Is(err, history.ErrUnknownInstrument) {
		return 0, nil // removed while fetching
	}
	if err != nil {
		return 0, err
	}
	if t.metrics != nil {
		t.metrics.ObservationsTotal.WithLabelValues(e.Symbol).Inc()
	}
	t.bus.Publish(model.Event{Kind: model.EventSnapshot, Symbol: e.Symbol, Observation: &obs, Snapshot: snap})

	if !e.HasAlert() {
		return 0, nil
	}
	ev, fired := alert.Evaluate(e.Symbol, obs.Price, *e.AlertPrice, obs.Timestamp)
	if !fired {
		return 0, nil
	}
	t.alerts.Append(ev)
	if t.metrics != nil {
		t.metrics.AlertsTotal.WithLabelValues(e.Symbol).Inc()
	}
	slog.Info("[tracker] alert fired", append(logger.LogWithTrace(ctx), "symbol", e.Symbol, "price", ev.CurrentPrice, "target", ev.AlertPrice)...)
	t.bus.Publish(model.Event{Kind: model.EventAlert, Symbol: e.Symbol, Alert: &ev})
	return 1, nil
}

// apply appends obs and publishes the recomputed snapshot as one unit.
func (t *Tracker) apply(in *instrument, obs model.PriceObservation) (*model.IndicatorSnapshot, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	evicted, err := t.store.Append(obs.Symbol, obs)
	if err != nil {
		return nil, err
	}
	window, err := t.store.Observations(obs.Symbol)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var snap *model.IndicatorSnapshot
	if t.cfg.Incremental {
		before := in.calc.Rebuilds()
		snap = in.calc.Next(window, evicted)
		if t.metrics != nil && in.calc.Rebuilds() != before {
			t.metrics.IndicatorRebuilds.Inc()
		}
	} else {
		snap = indicator.Compute(window)
	}
	if t.metrics != nil {
		t.metrics.IndicatorComputeDur.Observe(time.Since(start).Seconds())
	}

	in.snap = snap
	return snap, nil
}

// fetch calls the price source with a deadline. A source that ignores its
// context is abandoned once the deadline passes.
func (t *Tracker) fetch(ctx context.Context, symbol string, last *model.PriceObservation) (model.PriceObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.FetchTimeout)
	defer cancel()

	type result struct {
		obs model.PriceObservation
		err error
	}
	ch := make(chan result, 1)
	start := time.Now()
	go func() {
		obs, err := t.source.NextPrice(ctx, symbol, last)
		ch <- result{obs, err}
	}()

	select {
	case r := <-ch:
		if t.metrics != nil {
			t.metrics.FetchDuration.Observe(time.Since(start).Seconds())
		}
		if r.err != nil {
			return model.PriceObservation{}, fmt.Errorf("fetch %s: %w", symbol, r.err)
		}
		return r.obs, nil
	case <-ctx.Done():
		return model.PriceObservation{}, fmt.Errorf("fetch %s: %w", symbol, ctx.Err())
	}
}
