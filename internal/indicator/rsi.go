package indicator

import "strconv"

// RSI calculates the Relative Strength Index using Wilder's smoothing method.
// Update is O(1) per price — no history scans.
type RSI struct {
	period    int
	count     int
	prevClose float64
	gains     *SMMA
	losses    *SMMA
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  NewSMMA(period),
		losses: NewSMMA(period),
	}
}

func (r *RSI) Name() string { return "RSI_" + strconv.Itoa(r.period) }

func (r *RSI) Update(price float64) {
	r.count++

	if r.count == 1 {
		// First price — just record it, no delta yet
		r.prevClose = price
		return
	}

	gain, loss := gainLoss(price - r.prevClose)
	r.prevClose = price

	r.gains.Update(gain)
	r.losses.Update(loss)
	if r.gains.Ready() {
		r.current = rsiFromAverages(r.gains.Value(), r.losses.Value())
	}
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.count > r.period }

// Peek computes what Value() would be with an additional price without mutating state.
func (r *RSI) Peek(price float64) (float64, bool) {
	if r.count == 0 {
		return 0, false
	}
	gain, loss := gainLoss(price - r.prevClose)
	avgGain, ok := r.gains.Peek(gain)
	if !ok {
		return 0, false
	}
	avgLoss, _ := r.losses.Peek(loss)
	return rsiFromAverages(avgGain, avgLoss), true
}

// Reset clears the RSI state for reuse.
func (r *RSI) Reset() {
	r.count = 0
	r.prevClose = 0
	r.current = 0
	r.gains.Reset()
	r.losses.Reset()
}
