package indicators

import "math"

// SMA computes the simple moving average series of the input. The output
// has the same length as the input; the first period-1 positions are
// undefined and set to NaN.
func SMA(series []float64, period int) []float64 {
	out := undefinedSeries(len(series))
	if period <= 0 || len(series) < period {
		return out
	}

	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= period {
			sum -= series[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// Defined reports whether a series value is defined at its position.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
