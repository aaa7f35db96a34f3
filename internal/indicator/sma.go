package indicator

import (
	"strconv"

	"pricewatch/internal/ringbuf"
)

// SMA calculates Simple Moving Average over a fixed window.
// Uses a ring buffer and running sum: O(1) per update.
type SMA struct {
	period int
	window *ringbuf.Ring[float64]
	sum    float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{period: period, window: ringbuf.New[float64](period)}
}

func (s *SMA) Name() string { return "SMA_" + strconv.Itoa(s.period) }

func (s *SMA) Update(price float64) {
	old, evicted := s.window.Push(price)
	s.sum += price
	if evicted {
		s.sum -= old
	}
}

// Value returns the mean of the last period prices, or 0 before Ready.
func (s *SMA) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.sum / float64(s.period)
}

func (s *SMA) Ready() bool { return s.window.Full() }

// Peek computes what Value() would be with an additional price without mutating state.
func (s *SMA) Peek(price float64) (float64, bool) {
	switch {
	case s.window.Len()+1 < s.period:
		return 0, false
	case s.window.Full():
		return (s.sum - s.window.At(0) + price) / float64(s.period), true
	}
	return (s.sum + price) / float64(s.period), true
}

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.window.Reset()
	s.sum = 0
}
