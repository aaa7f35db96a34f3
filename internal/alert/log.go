package alert

import (
	"sync"
	"time"

	"pricewatch/internal/model"
)

// Log is the append-only record of fired alerts. Safe for concurrent use.
type Log struct {
	mu     sync.RWMutex
	events []model.AlertEvent
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append records events in order.
func (l *Log) Append(events ...model.AlertEvent) {
	if len(events) == 0 {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, events...)
	l.mu.Unlock()
}

// All returns a copy of every event, oldest first.
func (l *Log) All() []model.AlertEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.AlertEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Since returns the events stamped strictly after t.
func (l *Log) Since(t time.Time) []model.AlertEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.AlertEvent
	for _, e := range l.events {
		if e.Timestamp.After(t) {
			out = append(out, e)
		}
	}
	return out
}

// Replace swaps the whole log. Only import uses it.
func (l *Log) Replace(events []model.AlertEvent) {
	cp := make([]model.AlertEvent, len(events))
	copy(cp, events)
	l.mu.Lock()
	l.events = cp
	l.mu.Unlock()
}
