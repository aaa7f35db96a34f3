package model

// EventKind discriminates tracker events on the bus.
type EventKind string

const (
	EventSnapshot EventKind = "snapshot"
	EventAlert    EventKind = "alert"
)

// Event is what the tracker broadcasts after updating an instrument.
// Snapshot events carry the new observation and the snapshot computed from
// the history that includes it (Snapshot is nil during warm-up).
type Event struct {
	Kind        EventKind          `json:"type"`
	Symbol      string             `json:"symbol"`
	Observation *PriceObservation  `json:"observation,omitempty"`
	Snapshot    *IndicatorSnapshot `json:"snapshot,omitempty"`
	Alert       *AlertEvent        `json:"alert,omitempty"`
}
