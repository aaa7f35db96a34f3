package indicator

import "strconv"

// SMMA calculates Smoothed Moving Average (Wilder-style smoothing).
// First value is the plain mean of the first period inputs, then
// SMMA = (prev*(period-1) + x) / period. RSI runs one over gains and one
// over losses.
type SMMA struct {
	period  int
	count   int
	sum     float64
	current float64
}

// NewSMMA creates a new SMMA indicator with the given period.
func NewSMMA(period int) *SMMA {
	return &SMMA{period: period}
}

func (s *SMMA) Name() string { return "SMMA_" + strconv.Itoa(s.period) }

func (s *SMMA) Update(x float64) {
	s.count++

	if s.count <= s.period {
		s.sum += x
		if s.count == s.period {
			s.current = s.sum / float64(s.period)
		}
		return
	}

	p := float64(s.period)
	s.current = (s.current*(p-1) + x) / p
}

func (s *SMMA) Value() float64 { return s.current }
func (s *SMMA) Ready() bool    { return s.count >= s.period }

// Peek computes what Value() would be after Update(x) without mutating state.
func (s *SMMA) Peek(x float64) (float64, bool) {
	switch {
	case s.count+1 < s.period:
		return 0, false
	case s.count+1 == s.period:
		return (s.sum + x) / float64(s.period), true
	}
	p := float64(s.period)
	return (s.current*(p-1) + x) / p, true
}

// Reset clears the SMMA state for reuse.
func (s *SMMA) Reset() {
	s.count = 0
	s.sum = 0
	s.current = 0
}
