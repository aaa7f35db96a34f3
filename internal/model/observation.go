package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PriceObservation is a single price print for one instrument.
// It is a value type and is never mutated after creation.
type PriceObservation struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Volume    int64     `json:"volume"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Open      float64   `json:"open"`
}

// Validate checks the invariants every observation must hold before it is
// allowed into a history.
func (o *PriceObservation) Validate() error {
	if o.Symbol == "" {
		return errors.New("observation: empty symbol")
	}
	if !(o.Price > 0) {
		return fmt.Errorf("observation %s: price must be positive, got %v", o.Symbol, o.Price)
	}
	if !(o.High > 0) || !(o.Low > 0) || !(o.Open > 0) {
		return fmt.Errorf("observation %s: open/high/low must be positive", o.Symbol)
	}
	if o.Volume < 0 {
		return fmt.Errorf("observation %s: negative volume %d", o.Symbol, o.Volume)
	}
	if o.Timestamp.IsZero() {
		return fmt.Errorf("observation %s: missing timestamp", o.Symbol)
	}
	return nil
}

// JSON returns the JSON-encoded observation (ignoring errors for hot-path usage).
func (o *PriceObservation) JSON() []byte {
	b, _ := json.Marshal(o)
	return b
}
