package pricesource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pricewatch/internal/model"
)

// ErrExhausted is returned once every recorded observation of a symbol has
// been served.
var ErrExhausted = errors.New("replay exhausted")

// ObservationReader loads recorded observations, oldest first. A limit of
// zero or less means all of them.
type ObservationReader interface {
	ReadObservations(symbol string, limit int) ([]model.PriceObservation, error)
}

// Replay serves recorded observations back in order, one per call. Times
// are shifted so the first replayed observation of a symbol is stamped at
// the moment it is served; the spacing between observations is kept.
type Replay struct {
	reader ObservationReader
	Now    func() time.Time

	mu     sync.Mutex
	queues map[string]*replayQueue
}

type replayQueue struct {
	obs    []model.PriceObservation
	next   int
	offset time.Duration
}

// NewReplay creates a Replay backed by reader.
func NewReplay(reader ObservationReader) *Replay {
	return &Replay{
		reader: reader,
		Now:    time.Now,
		queues: make(map[string]*replayQueue),
	}
}

func (r *Replay) NextPrice(ctx context.Context, symbol string, last *model.PriceObservation) (model.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceObservation{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[symbol]
	if !ok {
		obs, err := r.reader.ReadObservations(symbol, 0)
		if err != nil {
			return model.PriceObservation{}, fmt.Errorf("replay %s: %w", symbol, err)
		}
		q = &replayQueue{obs: obs}
		if len(obs) > 0 {
			q.offset = r.Now().Sub(obs[0].Timestamp)
		}
		r.queues[symbol] = q
		slog.Info("[replay] loaded observations", "symbol", symbol, "count", len(obs))
	}

	if q.next >= len(q.obs) {
		return model.PriceObservation{}, fmt.Errorf("replay %s after %d observations: %w", symbol, len(q.obs), ErrExhausted)
	}
	obs := q.obs[q.next]
	q.next++
	obs.Timestamp = obs.Timestamp.Add(q.offset)

	// A history restored from elsewhere may already be ahead of the recording.
	if last != nil && obs.Timestamp.Before(last.Timestamp) {
		obs.Timestamp = last.Timestamp
	}
	return obs, nil
}

// Remaining returns how many observations of symbol are left to serve, or
// -1 if symbol has not been requested yet.
func (r *Replay) Remaining(symbol string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[symbol]
	if !ok {
		return -1
	}
	return len(q.obs) - q.next
}
