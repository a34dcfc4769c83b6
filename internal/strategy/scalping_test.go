package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

func TestScalping_BuyWhenOversold(t *testing.T) {
	// Mostly falling closes push RSI below the oversold threshold.
	series := make([]float64, 40)
	price := 1.1200
	for i := range series {
		if i%5 == 4 {
			price += 0.0001
		} else {
			price -= 0.0006
		}
		series[i] = price
	}

	s := NewScalping(DefaultScalpingParams())
	sig, err := s.Analyze(candlesFromCloses(series), "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, types.StrategyScalping, sig.Strategy)
	assert.Equal(t, types.ActionBuy, sig.Action)

	rsi := sig.Indicators["rsi"]
	require.Less(t, rsi, 30.0)
	expected := math.Min(0.95, 0.7+(30-rsi)/100)
	assert.InDelta(t, expected, sig.Confidence, 1e-9)

	entry := series[len(series)-1]
	assert.Equal(t, entry, sig.EntryPrice)
	assert.InDelta(t, entry+5*types.PipSize, sig.TakeProfit, 1e-9)
	assert.InDelta(t, entry-10*types.PipSize, sig.StopLoss, 1e-9)
}

func TestScalping_SellWhenOverbought(t *testing.T) {
	series := make([]float64, 40)
	price := 1.1000
	for i := range series {
		if i%5 == 4 {
			price -= 0.0001
		} else {
			price += 0.0006
		}
		series[i] = price
	}

	s := NewScalping(DefaultScalpingParams())
	sig, err := s.Analyze(candlesFromCloses(series), "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, types.ActionSell, sig.Action)
	rsi := sig.Indicators["rsi"]
	require.Greater(t, rsi, 70.0)
	assert.InDelta(t, math.Min(0.95, 0.7+(rsi-70)/100), sig.Confidence, 1e-9)

	entry := series[len(series)-1]
	assert.InDelta(t, entry-5*types.PipSize, sig.TakeProfit, 1e-9)
	assert.InDelta(t, entry+10*types.PipSize, sig.StopLoss, 1e-9)
}

func TestScalping_BuyOnUpwardCross(t *testing.T) {
	// A long decline pins RSI at the floor, then one strong up bar
	// lifts it back through the oversold threshold.
	series := make([]float64, 40)
	price := 1.2000
	for i := range series {
		price -= 0.0010
		series[i] = price
	}
	series[len(series)-1] = series[len(series)-2] + 0.0100

	s := NewScalping(DefaultScalpingParams())
	sig, err := s.Analyze(candlesFromCloses(series), "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, sig)

	rsi := sig.Indicators["rsi"]
	require.Greater(t, rsi, 30.0)
	require.Less(t, rsi, 70.0)
	assert.Equal(t, types.ActionBuy, sig.Action)
	assert.InDelta(t, 0.85, sig.Confidence, 1e-9)
}

func TestScalping_NoSignalInNeutralZone(t *testing.T) {
	// Balanced alternation keeps RSI mid-range with no crossings.
	series := make([]float64, 40)
	price := 1.1000
	for i := range series {
		if i%2 == 0 {
			price += 0.0005
		} else {
			price -= 0.0005
		}
		series[i] = price
	}

	s := NewScalping(DefaultScalpingParams())
	sig, err := s.Analyze(candlesFromCloses(series), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestScalping_InsufficientHistory(t *testing.T) {
	s := NewScalping(DefaultScalpingParams())
	sig, err := s.Analyze(candlesFromCloses(constantSeries(23, 1.1)), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, sig) // needs rsiPeriod+10 candles
}
