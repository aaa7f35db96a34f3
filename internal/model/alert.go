package model

import (
	"encoding/json"
	"time"
)

// AlertEvent records that an instrument traded close to its target price.
// Alert events form an append-only log and are never edited.
type AlertEvent struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	CurrentPrice float64   `json:"current_price"`
	AlertPrice   float64   `json:"alert_price"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"`
}

// JSON returns the JSON-encoded alert event.
func (a *AlertEvent) JSON() []byte {
	b, _ := json.Marshal(a)
	return b
}
