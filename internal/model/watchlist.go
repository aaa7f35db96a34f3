package model

import "time"

// WatchlistEntry is one tracked instrument. At most one entry exists per
// symbol; adding the same symbol again replaces the entry.
type WatchlistEntry struct {
	Symbol     string    `json:"symbol"`
	AlertPrice *float64  `json:"alert_price,omitempty"` // nil = no alert configured
	AddedAt    time.Time `json:"added_at"`
}

// HasAlert reports whether a target price is configured.
func (e *WatchlistEntry) HasAlert() bool {
	return e.AlertPrice != nil
}
