// Package notification delivers price alerts to external channels
// (Telegram, webhooks, the log).
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"pricewatch/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// CriticalBand is the relative distance from the target under which a
// fired alert is escalated from WARNING to CRITICAL.
const CriticalBand = 0.0025

// Alert represents a notification to be sent.
type Alert struct {
	Level     AlertLevel `json:"level"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Symbol    string     `json:"symbol,omitempty"`
	Price     float64    `json:"price,omitempty"`
	Target    float64    `json:"target,omitempty"`
	Timestamp time.Time  `json:"ts"`
}

// FromAlertEvent builds the notification for a fired price alert.
func FromAlertEvent(ev model.AlertEvent) Alert {
	return Alert{
		Level:     levelFor(ev.CurrentPrice, ev.AlertPrice),
		Title:     fmt.Sprintf("%s near target", ev.Symbol),
		Message:   ev.Message,
		Symbol:    ev.Symbol,
		Price:     ev.CurrentPrice,
		Target:    ev.AlertPrice,
		Timestamp: ev.Timestamp,
	}
}

func levelFor(price, target float64) AlertLevel {
	if target > 0 && math.Abs(price-target)/target < CriticalBand {
		return AlertCritical
	}
	return AlertWarning
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("[notify] "+alert.Title, "level", string(alert.Level), "message", alert.Message)
	return nil
}

// Multi sends every alert to all of its notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatcher forwards alert events from the tracker to a Notifier.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration

	// OnResult is called after each delivery attempt with its error (nil on success).
	OnResult func(err error)
}

// NewDispatcher creates a dispatcher that bounds each delivery by timeout.
func NewDispatcher(n Notifier, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{notifier: n, timeout: timeout}
}

// Run delivers alert events until ctx is cancelled or events is closed.
// Other event kinds are ignored.
func (d *Dispatcher) Run(ctx context.Context, events <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != model.EventAlert || ev.Alert == nil {
				continue
			}
			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			err := d.notifier.Send(sendCtx, FromAlertEvent(*ev.Alert))
			cancel()
			if err != nil {
				slog.Warn("[notify] delivery failed", "symbol", ev.Symbol, "error", err)
			}
			if d.OnResult != nil {
				d.OnResult(err)
			}
		}
	}
}
