package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

func testAccount(balance float64) *types.AccountSnapshot {
	return &types.AccountSnapshot{
		Balance:  balance,
		Equity:   balance,
		Currency: "USD",
		Leverage: 100,
	}
}

func buySignal(entry, stop float64) *types.Signal {
	return &types.Signal{
		Strategy:   types.StrategyMeanReversion,
		Symbol:     "EURUSD",
		Action:     types.ActionBuy,
		Confidence: 0.75,
		EntryPrice: entry,
		TakeProfit: entry + 0.0080,
		StopLoss:   stop,
	}
}

func TestSizerVolumeFromRisk(t *testing.T) {
	sizer := NewSizer(2.0)

	// 2% of 10000 = 200 at risk. 50 pips of stop distance at $10 per
	// pip per lot gives 200 / 500 = 0.4 lots.
	volume := sizer.Volume(buySignal(1.1000, 1.0950), testAccount(10000))
	assert.InDelta(t, 0.4, volume, 1e-9)
}

func TestSizerRoundsToTwoDecimals(t *testing.T) {
	sizer := NewSizer(1.0)

	// 1% of 10000 = 100 at risk over 30 pips: 100/300 = 0.3333 lots.
	volume := sizer.Volume(buySignal(1.1000, 1.0970), testAccount(10000))
	assert.InDelta(t, 0.33, volume, 1e-9)
}

func TestSizerZeroStopDistanceFallsBack(t *testing.T) {
	sizer := NewSizer(2.0)

	volume := sizer.Volume(buySignal(1.1000, 1.1000), testAccount(10000))
	assert.Equal(t, fallbackVolume, volume)
}

func TestSizerNilAccountFallsBack(t *testing.T) {
	sizer := NewSizer(2.0)

	assert.Equal(t, fallbackVolume, sizer.Volume(buySignal(1.1000, 1.0950), nil))
	assert.Equal(t, fallbackVolume, sizer.Volume(buySignal(1.1000, 1.0950), testAccount(0)))
}

func TestSizerClampsToMinimum(t *testing.T) {
	sizer := NewSizer(0.1)

	// 0.1% of 100 = 0.1 at risk over 200 pips rounds to 0.00, which is
	// clamped up to the broker minimum.
	volume := sizer.Volume(buySignal(1.1000, 1.0800), testAccount(100))
	assert.Equal(t, minVolume, volume)
}

func TestSizerClampsToMaximum(t *testing.T) {
	sizer := NewSizer(5.0)

	// 5% of 1000000 = 50000 at risk over 10 pips: 500 lots, clamped.
	volume := sizer.Volume(buySignal(1.1000, 1.0990), testAccount(1000000))
	assert.Equal(t, maxVolume, volume)
}
