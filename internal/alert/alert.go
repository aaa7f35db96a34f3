// Package alert decides when an instrument is trading close enough to its
// target price to raise an alert, and keeps the log of raised alerts.
package alert

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pricewatch/internal/model"
)

// Band is the relative distance from the target inside which an alert fires.
const Band = 0.01

// ShouldAlert reports whether current lies strictly within 1% of target,
// on either side.
func ShouldAlert(current, target float64) bool {
	if !(target > 0) {
		return false
	}
	return math.Abs(current-target)/target < Band
}

// Evaluate builds an alert event when current is within the band of target.
// It has no side effects: recording the event is up to the caller.
//
// Events are not deduplicated. Every evaluation inside the band produces a
// new event.
func Evaluate(symbol string, current, target float64, ts time.Time) (model.AlertEvent, bool) {
	if !ShouldAlert(current, target) {
		return model.AlertEvent{}, false
	}
	return model.AlertEvent{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		CurrentPrice: current,
		AlertPrice:   target,
		Timestamp:    ts,
		Message:      Message(symbol, current, target),
	}, true
}

// Message renders the human readable alert text.
func Message(symbol string, current, target float64) string {
	c := decimal.NewFromFloat(current)
	t := decimal.NewFromFloat(target)
	dist := c.Sub(t).Div(t).Mul(decimal.NewFromInt(100))
	return fmt.Sprintf("%s at %s is within 1%% of target %s (%s%%)",
		symbol, c.StringFixed(2), t.StringFixed(2), dist.StringFixed(2))
}
