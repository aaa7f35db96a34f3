// Package tracker owns the watchlist and drives the per-tick update cycle:
// fetch a price for every tracked instrument, append it to the history,
// recompute the indicator snapshot, evaluate alerts and broadcast the result.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pricewatch/internal/alert"
	"pricewatch/internal/bus"
	"pricewatch/internal/history"
	"pricewatch/internal/indicator"
	"pricewatch/internal/metrics"
	"pricewatch/internal/model"
	"pricewatch/internal/performance"
	"pricewatch/internal/pricesource"
)

var (
	// ErrInvalidSymbol is returned for symbols that are empty after normalisation.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidAlertPrice is returned for alert prices that are not positive.
	ErrInvalidAlertPrice = errors.New("alert price must be positive")
)

// State is the scheduler state of a tracker.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Config tunes a tracker.
type Config struct {
	HistoryMax   int           // per-instrument history bound
	TickInterval time.Duration // time between scheduled ticks
	FetchTimeout time.Duration // per-instrument price source deadline
	Incremental  bool          // carry EMA/RSI state between ticks instead of rescanning
	BusBuffer    int           // per-subscriber event buffer
}

func (c *Config) defaults() {
	if c.HistoryMax <= 0 {
		c.HistoryMax = history.DefaultCapacity
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 5 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 2 * time.Second
	}
	if c.BusBuffer <= 0 {
		c.BusBuffer = 1024
	}
}

// Option configures optional collaborators.
type Option func(*Tracker)

// WithMetrics records tracker metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithHealth reports tick progress and scheduler state to h.
func WithHealth(h *metrics.HealthStatus) Option {
	return func(t *Tracker) { t.health = h }
}

// WithClock replaces time.Now for watchlist and report timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// instrument is the per-symbol state updated as a unit under mu: the
// history append and the snapshot computed from it.
type instrument struct {
	mu   sync.Mutex
	calc *indicator.Incremental
	snap *model.IndicatorSnapshot
}

// Tracker is the watchlist orchestrator. All methods are safe for
// concurrent use.
type Tracker struct {
	cfg     Config
	source  pricesource.Source
	store   *history.Store
	alerts  *alert.Log
	bus     *bus.FanOut[model.Event]
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]model.WatchlistEntry
	inst    map[string]*instrument

	// tickMu serialises ticks, exports and imports.
	tickMu sync.Mutex

	stateMu sync.Mutex
	state   State
	sched   *cron.Cron
}

// New creates a stopped tracker with an empty watchlist.
func New(cfg Config, source pricesource.Source, opts ...Option) *Tracker {
	cfg.defaults()
	t := &Tracker{
		cfg:     cfg,
		source:  source,
		store:   history.NewStore(cfg.HistoryMax),
		alerts:  alert.NewLog(),
		bus:     bus.New[model.Event](cfg.BusBuffer),
		now:     time.Now,
		entries: make(map[string]model.WatchlistEntry),
		inst:    make(map[string]*instrument),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics != nil {
		m := t.metrics
		t.bus.OnDrop = func(subscriber string) {
			m.BusDropsTotal.WithLabelValues(subscriber).Inc()
		}
	}
	return t
}

// Add puts symbol on the watchlist, replacing any existing entry for it.
// The history of an existing entry is kept. alertPrice may be nil.
func (t *Tracker) Add(symbol string, alertPrice *float64) (model.WatchlistEntry, error) {
	sym := model.NormalizeSymbol(symbol)
	if sym == "" {
		return model.WatchlistEntry{}, ErrInvalidSymbol
	}
	var target *float64
	if alertPrice != nil {
		if !(*alertPrice > 0) {
			return model.WatchlistEntry{}, ErrInvalidAlertPrice
		}
		v := *alertPrice
		target = &v
	}

	entry := model.WatchlistEntry{Symbol: sym, AlertPrice: target, AddedAt: t.now().UTC()}

	t.mu.Lock()
	t.entries[sym] = entry
	if _, ok := t.inst[sym]; !ok {
		t.inst[sym] = &instrument{calc: indicator.NewIncremental()}
		t.store.Register(sym)
	}
	n := len(t.entries)
	t.mu.Unlock()

	t.setTracked(n)
	slog.Info("[tracker] watchlist entry added", "symbol", sym, "alert", target != nil)
	return entry, nil
}

// Remove drops symbol, its history and snapshot. It reports whether the
// symbol was tracked. Alert events already logged are kept.
func (t *Tracker) Remove(symbol string) bool {
	sym := model.NormalizeSymbol(symbol)

	t.mu.Lock()
	_, ok := t.entries[sym]
	if ok {
		delete(t.entries, sym)
		delete(t.inst, sym)
		t.store.Unregister(sym)
	}
	n := len(t.entries)
	t.mu.Unlock()

	if ok {
		t.setTracked(n)
		slog.Info("[tracker] watchlist entry removed", "symbol", sym)
	}
	return ok
}

// Entries returns the watchlist sorted by symbol.
func (t *Tracker) Entries() []model.WatchlistEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entriesLocked()
}

// entriesLocked expects mu to be held.
func (t *Tracker) entriesLocked() []model.WatchlistEntry {
	out := make([]model.WatchlistEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Entry returns the watchlist entry for symbol.
func (t *Tracker) Entry(symbol string) (model.WatchlistEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[model.NormalizeSymbol(symbol)]
	return e, ok
}

func (t *Tracker) instrument(sym string) (*instrument, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	in, ok := t.inst[sym]
	return in, ok
}

// Snapshot returns the latest indicator snapshot of symbol. A nil snapshot
// with a nil error means the instrument is still warming up.
func (t *Tracker) Snapshot(symbol string) (*model.IndicatorSnapshot, error) {
	sym := model.NormalizeSymbol(symbol)
	in, ok := t.instrument(sym)
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", sym, history.ErrUnknownInstrument)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.snap, nil
}

// Latest returns the newest observation of symbol together with the
// snapshot computed from the history ending in it.
func (t *Tracker) Latest(symbol string) (model.PriceObservation, *model.IndicatorSnapshot, error) {
	sym := model.NormalizeSymbol(symbol)
	in, ok := t.instrument(sym)
	if !ok {
		return model.PriceObservation{}, nil, fmt.Errorf("latest %s: %w", sym, history.ErrUnknownInstrument)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	obs, err := t.store.Latest(sym)
	if err != nil {
		return model.PriceObservation{}, nil, err
	}
	return obs, in.snap, nil
}

// History returns a copy of symbol's history, oldest first.
func (t *Tracker) History(symbol string) ([]model.PriceObservation, error) {
	return t.store.Observations(model.NormalizeSymbol(symbol))
}

// Peek previews the snapshot symbol would have if price were observed next.
// Nothing is modified.
func (t *Tracker) Peek(symbol string, price float64) (*model.IndicatorSnapshot, error) {
	if !(price > 0) {
		return nil, fmt.Errorf("peek: price must be positive, got %v", price)
	}
	obs, err := t.History(symbol)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("peek %s: %w", model.NormalizeSymbol(symbol), history.ErrNoData)
	}
	return indicator.Peek(obs, price, t.store.Capacity()), nil
}

// Report computes the performance of symbol over the trailing window.
func (t *Tracker) Report(symbol string, window time.Duration) (model.PerformanceReport, error) {
	obs, err := t.History(symbol)
	if err != nil {
		return model.PerformanceReport{}, err
	}
	return performance.Report(obs, window, t.now())
}

// Alerts returns every alert fired so far, oldest first.
func (t *Tracker) Alerts() []model.AlertEvent {
	return t.alerts.All()
}

// AlertsSince returns the alerts stamped after ts.
func (t *Tracker) AlertsSince(ts time.Time) []model.AlertEvent {
	return t.alerts.Since(ts)
}

// Subscribe returns a named channel receiving every snapshot and alert
// event. Slow subscribers lose events rather than stall ticks.
func (t *Tracker) Subscribe(name string) <-chan model.Event {
	return t.bus.Subscribe(name)
}

// Unsubscribe closes a channel returned by Subscribe.
func (t *Tracker) Unsubscribe(ch <-chan model.Event) {
	t.bus.Unsubscribe(ch)
}

// BusStats reports subscriber channel fill levels.
func (t *Tracker) BusStats() []bus.ChannelStat {
	return t.bus.ChannelStats()
}

// Close stops the scheduler and closes every subscriber channel.
func (t *Tracker) Close() {
	t.Stop()
	t.bus.Close()
}

func (t *Tracker) setTracked(n int) {
	if t.metrics != nil {
		t.metrics.TrackedInstruments.Set(float64(n))
	}
}
