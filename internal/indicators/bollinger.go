package indicators

import "math"

// Bollinger computes the middle, upper and lower Bollinger Band series.
// The middle band is SMA(period); the band width is stdDev multiples of
// the population standard deviation over the same trailing window.
// Undefined positions mirror SMA's.
func Bollinger(series []float64, period int, stdDev float64) (middle, upper, lower []float64) {
	middle = SMA(series, period)
	upper = undefinedSeries(len(series))
	lower = undefinedSeries(len(series))
	if period <= 0 || len(series) < period {
		return middle, upper, lower
	}

	for i := period - 1; i < len(series); i++ {
		sd := populationStdDev(series[i-period+1:i+1], middle[i])
		upper[i] = middle[i] + stdDev*sd
		lower[i] = middle[i] - stdDev*sd
	}
	return middle, upper, lower
}

func populationStdDev(window []float64, mean float64) float64 {
	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(window)))
}
