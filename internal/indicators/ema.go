package indicators

// EMA computes the exponential moving average series. The seed value at
// position period-1 is the simple mean of the first period inputs;
// earlier positions are NaN.
func EMA(series []float64, period int) []float64 {
	out := undefinedSeries(len(series))
	if period <= 0 || len(series) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += series[i]
	}
	out[period-1] = sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(series); i++ {
		out[i] = series[i]*multiplier + out[i-1]*(1-multiplier)
	}
	return out
}
