package indicators

// RSI computes the Relative Strength Index series using Wilder
// smoothing. The averages are seeded at position period with the simple
// mean of the first period gains and losses; positions before period are
// NaN. Wherever defined the value is bounded in [0, 100].
func RSI(series []float64, period int) []float64 {
	out := undefinedSeries(len(series))
	if period <= 0 || len(series) < period+1 {
		return out
	}

	gains := make([]float64, len(series)-1)
	losses := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		delta := series[i] - series[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(series); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i-1]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i-1]) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain > 0 {
			return 100
		}
		return 0
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
