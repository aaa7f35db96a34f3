package pricesource

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/model"
)

const (
	minBase       = 50.0
	baseSpan      = 450.0
	minVolatility = 0.005
	volSpan       = 0.025
	minPrice      = 0.01
)

// Synthetic generates a bounded random walk per symbol. The starting price
// and step size are derived from the symbol name, so the same symbol always
// starts from the same place.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand

	// Now is the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time
}

// NewSynthetic creates a generator seeded with seed.
func NewSynthetic(seed int64) *Synthetic {
	return &Synthetic{
		rng: rand.New(rand.NewSource(seed)),
		Now: time.Now,
	}
}

// BasePrice returns the deterministic starting price of symbol in [50, 500).
func BasePrice(symbol string) float64 {
	return minBase + float64(hash(symbol, 0)%45000)/45000*baseSpan
}

// Volatility returns the per-step volatility coefficient of symbol in
// [0.5%, 3%).
func Volatility(symbol string) float64 {
	return minVolatility + float64(hash(symbol, 1)%1000)/1000*volSpan
}

func (s *Synthetic) NextPrice(ctx context.Context, symbol string, last *model.PriceObservation) (model.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceObservation{}, err
	}

	prev := BasePrice(symbol)
	if last != nil {
		prev = last.Price
	}

	s.mu.Lock()
	step := (s.rng.Float64()*2 - 1) * Volatility(symbol)
	wick := s.rng.Float64() * Volatility(symbol) / 2
	volume := int64(s.rng.Intn(9000) + 1000)
	s.mu.Unlock()

	price := cents(prev * (1 + step))
	open := cents(prev)
	high := cents(max(open, price) * (1 + wick))
	low := cents(min(open, price) * (1 - wick))

	ts := s.Now().UTC()
	if last != nil && ts.Before(last.Timestamp) {
		ts = last.Timestamp
	}

	return model.PriceObservation{
		Symbol:    symbol,
		Price:     price,
		Timestamp: ts,
		Volume:    volume,
		High:      high,
		Low:       low,
		Open:      open,
	}, nil
}

// cents rounds to two decimals and keeps the result above zero.
func cents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	if f < minPrice {
		return minPrice
	}
	return f
}

func hash(symbol string, salt byte) uint32 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	h.Write([]byte{salt})
	return h.Sum32()
}
