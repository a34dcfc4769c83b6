package strategy

import (
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// candlesFromCloses builds a candle history around a close series, one
// bar per minute, oldest first.
func candlesFromCloses(closes []float64) []types.Candle {
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		out[i] = types.Candle{
			Time:   int64(1700000000 + 60*i),
			Open:   c,
			High:   c + 0.0002,
			Low:    c - 0.0002,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

// constantSeries returns n copies of v.
func constantSeries(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
