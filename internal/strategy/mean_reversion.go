package strategy

import (
	"math"

	"github.com/quantbridge/mt5-bridge/internal/indicators"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// MeanReversionParams configures the Bollinger Band reversion strategy.
type MeanReversionParams struct {
	BBPeriod      int
	BBStdDev      float64
	MinConfidence float64
	StopLossPips  float64
}

// DefaultMeanReversionParams returns the stock parameter set.
func DefaultMeanReversionParams() MeanReversionParams {
	return MeanReversionParams{
		BBPeriod:      20,
		BBStdDev:      2.0,
		MinConfidence: 0.65,
		StopLossPips:  40,
	}
}

// MeanReversion trades price excursions beyond the Bollinger Bands back
// toward the middle band.
type MeanReversion struct {
	params MeanReversionParams
}

// NewMeanReversion creates the strategy with the given parameters.
func NewMeanReversion(params MeanReversionParams) *MeanReversion {
	return &MeanReversion{params: params}
}

func (s *MeanReversion) Name() types.StrategyName {
	return types.StrategyMeanReversion
}

// Analyze emits a reversion signal when the last close touches or
// breaches a band. The take-profit target is the middle band.
func (s *MeanReversion) Analyze(candles []types.Candle, symbol string) (*types.Signal, error) {
	if len(candles) < s.params.BBPeriod+10 {
		return nil, nil
	}

	series := closes(candles)
	middle, upper, lower := indicators.Bollinger(series, s.params.BBPeriod, s.params.BBStdDev)

	last := len(series) - 1
	price := series[last]
	mid, up, low := middle[last], upper[last], lower[last]
	if !indicators.Defined(mid) || up == low {
		return nil, nil
	}

	deviation := (price - mid) / (up - low)

	var action types.TradeAction
	var confidence float64
	switch {
	case price <= low:
		action = types.ActionBuy
		confidence = math.Min(0.9, 0.65+math.Abs(deviation)*0.5)
	case price >= up:
		action = types.ActionSell
		confidence = math.Min(0.9, 0.65+math.Abs(deviation)*0.5)
	default:
		return nil, nil
	}

	if confidence < s.params.MinConfidence {
		return nil, nil
	}

	stopLoss := price - s.params.StopLossPips*types.PipSize
	if action == types.ActionSell {
		stopLoss = price + s.params.StopLossPips*types.PipSize
	}

	return &types.Signal{
		Strategy:   types.StrategyMeanReversion,
		Symbol:     symbol,
		Action:     action,
		Confidence: confidence,
		EntryPrice: price,
		TakeProfit: mid,
		StopLoss:   stopLoss,
		Indicators: map[string]float64{
			"upper_band":  up,
			"middle_band": mid,
			"lower_band":  low,
			"deviation":   deviation,
		},
	}, nil
}
