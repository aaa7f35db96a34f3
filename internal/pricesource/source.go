// Package pricesource supplies the tracker with the next observation for an
// instrument. Synthetic stands in for a real market-data feed.
package pricesource

import (
	"context"

	"pricewatch/internal/model"
)

// Source returns the next observation for symbol. last is the most recent
// observation already in the history, or nil for a fresh instrument.
// Implementations must return a positive price and a timestamp no earlier
// than last's.
type Source interface {
	NextPrice(ctx context.Context, symbol string, last *model.PriceObservation) (model.PriceObservation, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, symbol string, last *model.PriceObservation) (model.PriceObservation, error)

func (f SourceFunc) NextPrice(ctx context.Context, symbol string, last *model.PriceObservation) (model.PriceObservation, error) {
	return f(ctx, symbol, last)
}
