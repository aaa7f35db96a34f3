package indicator

import "math"

// SMAOf returns the arithmetic mean of the last period elements of series.
func SMAOf(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range series[len(series)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMAOf returns the exponential moving average of series. The seed is the SMA
// of the first period elements; every later element is folded in with
// multiplier 2/(period+1). The result therefore depends on the whole
// series order, not just its last period elements.
func EMAOf(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}
	mult := 2.0 / float64(period+1)

	sum := 0.0
	for _, v := range series[:period] {
		sum += v
	}
	ema := sum / float64(period)

	for _, price := range series[period:] {
		ema = (price * mult) + (ema * (1 - mult))
	}
	return ema, true
}

// RSIOf returns the Relative Strength Index of series. The first period deltas
// are averaged plainly, later deltas use Wilder smoothing. When the average
// loss is zero the RSI is 100.
func RSIOf(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period+1 {
		return 0, false
	}

	var sumGain, sumLoss float64
	for i := 1; i <= period; i++ {
		g, l := gainLoss(series[i] - series[i-1])
		sumGain += g
		sumLoss += l
	}
	p := float64(period)
	avgGain := sumGain / p
	avgLoss := sumLoss / p

	for i := period + 1; i < len(series); i++ {
		g, l := gainLoss(series[i] - series[i-1])
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
	}
	return rsiFromAverages(avgGain, avgLoss), true
}

// MACD returns EMA(12) - EMA(26) together with both EMAs. ok is false until
// both EMAs are computable.
func MACD(series []float64) (line, ema12, ema26 float64, ok bool) {
	ema12, ok12 := EMAOf(series, PeriodEMAFast)
	ema26, ok26 := EMAOf(series, PeriodEMASlow)
	if !ok12 || !ok26 {
		return 0, 0, 0, false
	}
	return ema12 - ema26, ema12, ema26, true
}

// Bollinger returns the bands around SMA(period) at k population standard
// deviations of the last period elements.
func Bollinger(series []float64, period int, k float64) (upper, middle, lower float64, ok bool) {
	middle, ok = SMAOf(series, period)
	if !ok {
		return 0, 0, 0, false
	}
	sigma := StdDev(series[len(series)-period:], middle)
	return middle + k*sigma, middle, middle - k*sigma, true
}

// StdDev returns the population standard deviation of window around mean.
// A constant window yields exactly 0.
func StdDev(window []float64, mean float64) float64 {
	if len(window) == 0 || constant(window) {
		return 0
	}
	sq := 0.0
	for _, v := range window {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(window)))
}

func constant(window []float64) bool {
	for _, v := range window[1:] {
		if v != window[0] {
			return false
		}
	}
	return true
}

// gainLoss splits a price delta into its gain and loss parts.
func gainLoss(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
