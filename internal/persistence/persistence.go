// Package persistence defines the export format of a tracker's state and
// validates payloads before they are allowed to replace it.
package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pricewatch/internal/model"
)

// Version is the current export format version.
const Version = 1

// ErrMalformedData is returned for payloads that cannot be parsed or that
// violate the model invariants.
var ErrMalformedData = errors.New("malformed data")

// Snapshot is the full exported state: watchlist, histories and alert log.
type Snapshot struct {
	Version    int                                 `json:"version"`
	ExportedAt time.Time                           `json:"exported_at"`
	Watchlist  []model.WatchlistEntry              `json:"watchlist"`
	Histories  map[string][]model.PriceObservation `json:"histories"`
	Alerts     []model.AlertEvent                  `json:"alerts"`
}

// Encode serialises s as indented JSON.
func Encode(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Decode parses and validates data. Every failure wraps ErrMalformedData.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode export: %v: %w", err, ErrMalformedData)
	}
	if dec.More() {
		return Snapshot{}, fmt.Errorf("decode export: trailing data: %w", ErrMalformedData)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Validate checks the structural invariants of s. Histories may only exist
// for watchlist symbols, must be in timestamp order and hold valid
// observations of their own symbol.
func (s *Snapshot) Validate() error {
	if s.Version != Version {
		return malformed("unsupported version %d", s.Version)
	}

	watched := make(map[string]bool, len(s.Watchlist))
	for i, e := range s.Watchlist {
		if e.Symbol == "" || e.Symbol != model.NormalizeSymbol(e.Symbol) {
			return malformed("watchlist[%d]: invalid symbol %q", i, e.Symbol)
		}
		if watched[e.Symbol] {
			return malformed("watchlist[%d]: duplicate symbol %s", i, e.Symbol)
		}
		if e.AlertPrice != nil && !(*e.AlertPrice > 0) {
			return malformed("watchlist %s: alert price must be positive", e.Symbol)
		}
		watched[e.Symbol] = true
	}

	for sym, obs := range s.Histories {
		if !watched[sym] {
			return malformed("history for %s which is not on the watchlist", sym)
		}
		for i := range obs {
			if obs[i].Symbol != sym {
				return malformed("history %s[%d]: symbol %q", sym, i, obs[i].Symbol)
			}
			if err := obs[i].Validate(); err != nil {
				return malformed("history %s[%d]: %v", sym, i, err)
			}
			if i > 0 && obs[i].Timestamp.Before(obs[i-1].Timestamp) {
				return malformed("history %s[%d]: timestamp goes backwards", sym, i)
			}
		}
	}

	for i, a := range s.Alerts {
		if a.Symbol == "" {
			return malformed("alerts[%d]: empty symbol", i)
		}
		if !(a.CurrentPrice > 0) || !(a.AlertPrice > 0) {
			return malformed("alerts[%d]: prices must be positive", i)
		}
		if a.Timestamp.IsZero() {
			return malformed("alerts[%d]: missing timestamp", i)
		}
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrMalformedData)
}
