package model

import (
	"encoding/json"
	"time"
)

// MACD holds the MACD line together with the two EMAs it is derived from.
type MACD struct {
	Line  float64 `json:"line"`
	EMA12 float64 `json:"ema12"`
	EMA26 float64 `json:"ema26"`
}

// Bands is a Bollinger volatility envelope.
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSnapshot is the full indicator set derived from one instrument's
// current history. A nil field means "not yet computable" (warm-up), never zero.
// Snapshots are published whole and must not be modified after publication.
type IndicatorSnapshot struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	SMA20       *float64  `json:"sma20,omitempty"`
	SMA50       *float64  `json:"sma50,omitempty"`
	EMA12       *float64  `json:"ema12,omitempty"`
	EMA26       *float64  `json:"ema26,omitempty"`
	RSI14       *float64  `json:"rsi14,omitempty"`
	MACD        *MACD     `json:"macd,omitempty"`
	Bollinger   *Bands    `json:"bollinger,omitempty"`
	Volume      int64     `json:"volume"`
	VolumeSMA20 *float64  `json:"volume_sma20,omitempty"`
	Samples     int       `json:"samples"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JSON returns the JSON-encoded snapshot.
func (s *IndicatorSnapshot) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}

// PerformanceReport summarises one instrument over a trailing time window.
type PerformanceReport struct {
	Symbol         string        `json:"symbol"`
	Window         time.Duration `json:"window"`
	From           time.Time     `json:"from"`
	To             time.Time     `json:"to"`
	Samples        int           `json:"samples"`
	First          float64       `json:"first"`
	Last           float64       `json:"last"`
	High           float64       `json:"high"`
	Low            float64       `json:"low"`
	TotalReturnPct float64       `json:"total_return_pct"`
	Volatility     float64       `json:"volatility"`
}
