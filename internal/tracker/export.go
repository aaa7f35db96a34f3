package tracker

import (
	"log/slog"

	"pricewatch/internal/indicator"
	"pricewatch/internal/model"
	"pricewatch/internal/persistence"
)

// Export captures the watchlist, every history and the alert log. It waits
// for a running tick to finish, and holds the watchlist lock while reading
// entries and histories so a concurrent Add or Remove cannot split them.
func (t *Tracker) Export() persistence.Snapshot {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()

	t.mu.RLock()
	entries := t.entriesLocked()
	histories := t.store.Snapshot()
	t.mu.RUnlock()

	return persistence.Snapshot{
		Version:    persistence.Version,
		ExportedAt: t.now().UTC(),
		Watchlist:  entries,
		Histories:  histories,
		Alerts:     t.alerts.All(),
	}
}

// Import decodes data and replaces the whole tracker state with it. On any
// error, including persistence.ErrMalformedData, the state is untouched.
func (t *Tracker) Import(data []byte) error {
	snap, err := persistence.Decode(data)
	if err != nil {
		t.countImport("malformed")
		return err
	}
	return t.Restore(snap)
}

// Restore replaces the tracker state with an already decoded export.
// Histories longer than HistoryMax keep their newest observations.
func (t *Tracker) Restore(snap persistence.Snapshot) error {
	if err := snap.Validate(); err != nil {
		t.countImport("malformed")
		return err
	}

	entries := make(map[string]model.WatchlistEntry, len(snap.Watchlist))
	inst := make(map[string]*instrument, len(snap.Watchlist))
	histories := make(map[string][]model.PriceObservation, len(snap.Watchlist))
	for _, e := range snap.Watchlist {
		if e.AlertPrice != nil {
			v := *e.AlertPrice
			e.AlertPrice = &v
		}
		entries[e.Symbol] = e
		histories[e.Symbol] = snap.Histories[e.Symbol]
	}

	t.tickMu.Lock()
	defer t.tickMu.Unlock()
	t.mu.Lock()
	t.store.Replace(histories)
	for sym := range entries {
		window, _ := t.store.Observations(sym)
		calc := indicator.NewIncremental()
		calc.Rebuild(window)
		inst[sym] = &instrument{calc: calc, snap: calc.Snapshot(window)}
	}
	t.entries = entries
	t.inst = inst
	t.alerts.Replace(snap.Alerts)
	n := len(entries)
	t.mu.Unlock()

	t.setTracked(n)
	t.countImport("ok")
	slog.Info("[tracker] state imported", "instruments", n, "alerts", len(snap.Alerts), "exported_at", snap.ExportedAt)
	return nil
}

func (t *Tracker) countImport(result string) {
	if t.metrics != nil {
		t.metrics.ImportsTotal.WithLabelValues(result).Inc()
	}
}
