package alert

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/model"
)

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		name            string
		current, target float64
		want            bool
	}{
		{"at target", 100, 100, true},
		{"1.5% above", 101.5, 100, false},
		{"just inside above", 100.99, 100, true},
		{"just inside below", 99.01, 100, true},
		{"exactly 1% below", 99, 100, false},
		{"far below", 80, 100, false},
		{"zero target", 0, 0, false},
		{"negative target", -1, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAlert(tt.current, tt.target))
		})
	}
}

func TestEvaluate(t *testing.T) {
	ts := time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)

	ev, ok := Evaluate("AAPL", 189.5, 190, ts)
	require.True(t, ok)
	assert.Equal(t, "AAPL", ev.Symbol)
	assert.Equal(t, 189.5, ev.CurrentPrice)
	assert.Equal(t, 190.0, ev.AlertPrice)
	assert.Equal(t, ts, ev.Timestamp)
	assert.Equal(t, "AAPL at 189.50 is within 1% of target 190.00 (-0.26%)", ev.Message)
	_, err := uuid.Parse(ev.ID)
	assert.NoError(t, err)

	_, ok = Evaluate("AAPL", 200, 190, ts)
	assert.False(t, ok)
}

func TestEvaluate_RefiresEveryCall(t *testing.T) {
	ts := time.Now()
	a, ok1 := Evaluate("MSFT", 100, 100, ts)
	b, ok2 := Evaluate("MSFT", 100, 100, ts)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestLog(t *testing.T) {
	base := time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)
	l := NewLog()
	assert.Equal(t, 0, l.Len())

	for i := 0; i < 3; i++ {
		ev, _ := Evaluate("AAPL", 100, 100, base.Add(time.Duration(i)*time.Minute))
		l.Append(ev)
	}
	l.Append()
	require.Equal(t, 3, l.Len())

	all := l.All()
	all[0].Symbol = "MUTATED"
	assert.Equal(t, "AAPL", l.All()[0].Symbol, "All must return a copy")

	since := l.Since(base)
	assert.Len(t, since, 2)

	l.Replace([]model.AlertEvent{{ID: "x", Symbol: "IBM"}})
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, "IBM", l.All()[0].Symbol)
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Append(model.AlertEvent{Symbol: "X"})
				_ = l.Len()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1600, l.Len())
}
