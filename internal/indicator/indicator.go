// Package indicator computes technical indicators over price series.
//
// The batch functions (SMA, EMA, RSI, MACD, Bollinger) are pure: they read a
// series oldest-first and return ok=false when the series is too short for
// the requested window. A false ok means "not yet computable" and must never
// be read as zero.
//
// The streaming types (SMA, EMA, SMMA, RSI) carry state forward one price at a
// time and produce the same numbers as the batch functions over the same
// sequence. Incremental combines them into a per-instrument calculator.
package indicator

// Default windows used for the instrument snapshot.
const (
	PeriodSMAFast = 20
	PeriodSMASlow = 50
	PeriodEMAFast = 12
	PeriodEMASlow = 26
	PeriodRSI     = 14
	PeriodBands   = 20
	BandsK        = 2.0
	PeriodVolume  = 20

	// MinSnapshotSamples is the shortest history that yields a snapshot.
	MinSnapshotSamples = 20
)

// Indicator is the interface for streaming indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "EMA_12", "RSI_14").
	Name() string

	// Update feeds the next price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Peek returns what Value and Ready would be after Update(price),
	// without changing state.
	Peek(price float64) (float64, bool)

	// Reset clears all accumulated state.
	Reset()
}
