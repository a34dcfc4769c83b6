package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMASeedIsSimpleMean(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	out := EMA(series, 3)
	require.Len(t, out, 5)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)

	// multiplier = 2/(3+1) = 0.5
	assert.InDelta(t, 4*0.5+2.0*0.5, out[3], 1e-9) // 3.0
	assert.InDelta(t, 5*0.5+3.0*0.5, out[4], 1e-9) // 4.0
}

func TestEMATracksConstantSeries(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = 1.1000
	}
	out := EMA(series, 10)
	for i := 9; i < len(out); i++ {
		assert.InDelta(t, 1.1000, out[i], 1e-12)
	}
}

func TestEMAReactsFasterThanSMA(t *testing.T) {
	// Flat series with a step up at the end: the EMA closes the gap to
	// the new level faster than the SMA over the same period.
	series := make([]float64, 40)
	for i := range series {
		series[i] = 1.0
	}
	for i := 30; i < 40; i++ {
		series[i] = 2.0
	}

	ema := EMA(series, 20)
	sma := SMA(series, 20)
	last := len(series) - 1
	assert.Greater(t, ema[last], sma[last])
	assert.Less(t, ema[last], 2.0)
}

func TestEMAShortSeries(t *testing.T) {
	out := EMA([]float64{1, 2}, 5)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
	assert.Empty(t, EMA(nil, 5))
}
