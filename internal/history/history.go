// Package history keeps a bounded, insertion-ordered log of price
// observations per registered instrument.
package history

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pricewatch/internal/model"
	"pricewatch/internal/ringbuf"
)

// DefaultCapacity is the per-instrument history bound.
const DefaultCapacity = 200

var (
	// ErrUnknownInstrument is returned for symbols that were never registered.
	ErrUnknownInstrument = errors.New("unknown instrument")
	// ErrNoData is returned when a registered instrument has no observations yet.
	ErrNoData = errors.New("no data")
)

type series struct {
	mu   sync.RWMutex
	ring *ringbuf.Ring[model.PriceObservation]
}

// Store owns one bounded history per instrument. Instruments must be
// registered before the first Append.
type Store struct {
	capacity int

	mu     sync.RWMutex
	series map[string]*series
}

// NewStore creates a store whose histories hold at most capacity observations.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		series:   make(map[string]*series, 16),
	}
}

// Capacity returns the per-instrument bound.
func (s *Store) Capacity() int { return s.capacity }

// Register creates an empty history for symbol. Registering an existing
// symbol keeps its history.
func (s *Store) Register(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[symbol]; ok {
		return
	}
	s.series[symbol] = &series{ring: ringbuf.New[model.PriceObservation](s.capacity)}
}

// Unregister drops the history for symbol. Unknown symbols are ignored.
func (s *Store) Unregister(symbol string) {
	s.mu.Lock()
	delete(s.series, symbol)
	s.mu.Unlock()
}

// Registered reports whether symbol has a history.
func (s *Store) Registered(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.series[symbol]
	return ok
}

// Symbols returns all registered symbols, sorted.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.series))
	for sym := range s.series {
		out = append(out, sym)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (s *Store) get(symbol string) (*series, error) {
	s.mu.RLock()
	sr, ok := s.series[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("history %s: %w", symbol, ErrUnknownInstrument)
	}
	return sr, nil
}

// Append adds obs as the newest observation of symbol. When the history is
// already at capacity the oldest observation is dropped and evicted is true.
func (s *Store) Append(symbol string, obs model.PriceObservation) (evicted bool, err error) {
	sr, err := s.get(symbol)
	if err != nil {
		return false, err
	}
	sr.mu.Lock()
	_, evicted = sr.ring.Push(obs)
	sr.mu.Unlock()
	return evicted, nil
}

// Latest returns the most recent observation of symbol.
func (s *Store) Latest(symbol string) (model.PriceObservation, error) {
	sr, err := s.get(symbol)
	if err != nil {
		return model.PriceObservation{}, err
	}
	sr.mu.RLock()
	obs, ok := sr.ring.Last()
	sr.mu.RUnlock()
	if !ok {
		return model.PriceObservation{}, fmt.Errorf("history %s: %w", symbol, ErrNoData)
	}
	return obs, nil
}

// Observations returns a copy of the full history of symbol, oldest first.
func (s *Store) Observations(symbol string) ([]model.PriceObservation, error) {
	sr, err := s.get(symbol)
	if err != nil {
		return nil, err
	}
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return sr.ring.Items(), nil
}

// Slice returns, in order, the observations of symbol whose timestamp
// satisfies keep. The history is not modified.
func (s *Store) Slice(symbol string, keep func(time.Time) bool) ([]model.PriceObservation, error) {
	obs, err := s.Observations(symbol)
	if err != nil {
		return nil, err
	}
	return Filter(obs, keep), nil
}

// Len returns the number of observations held for symbol (0 if unknown).
func (s *Store) Len(symbol string) int {
	sr, err := s.get(symbol)
	if err != nil {
		return 0
	}
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return sr.ring.Len()
}

// Snapshot copies every history. Used by export.
func (s *Store) Snapshot() map[string][]model.PriceObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]model.PriceObservation, len(s.series))
	for sym, sr := range s.series {
		sr.mu.RLock()
		out[sym] = sr.ring.Items()
		sr.mu.RUnlock()
	}
	return out
}

// Replace swaps all histories at once. Histories longer than the capacity
// keep only their newest observations.
func (s *Store) Replace(histories map[string][]model.PriceObservation) {
	next := make(map[string]*series, len(histories))
	for sym, obs := range histories {
		next[sym] = &series{ring: ringbuf.FromSlice(s.capacity, obs)}
	}
	s.mu.Lock()
	s.series = next
	s.mu.Unlock()
}

// Filter returns the observations whose timestamp satisfies keep, preserving order.
func Filter(obs []model.PriceObservation, keep func(time.Time) bool) []model.PriceObservation {
	out := make([]model.PriceObservation, 0, len(obs))
	for _, o := range obs {
		if keep(o.Timestamp) {
			out = append(out, o)
		}
	}
	return out
}

// PricesOf projects a history to its price series.
func PricesOf(obs []model.PriceObservation) []float64 {
	out := make([]float64, len(obs))
	for i := range obs {
		out[i] = obs[i].Price
	}
	return out
}

// VolumesOf projects a history to its volume series as float64.
func VolumesOf(obs []model.PriceObservation) []float64 {
	out := make([]float64, len(obs))
	for i := range obs {
		out[i] = float64(obs[i].Volume)
	}
	return out
}
