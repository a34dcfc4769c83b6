package strategy

import (
	"math"

	"github.com/quantbridge/mt5-bridge/internal/indicators"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// ScalpingParams configures the RSI scalping strategy.
type ScalpingParams struct {
	RSIPeriod      int
	Oversold       float64
	Overbought     float64
	MinConfidence  float64
	TakeProfitPips float64
	StopLossPips   float64
}

// DefaultScalpingParams returns the stock parameter set.
func DefaultScalpingParams() ScalpingParams {
	return ScalpingParams{
		RSIPeriod:      14,
		Oversold:       30,
		Overbought:     70,
		MinConfidence:  0.7,
		TakeProfitPips: 5,
		StopLossPips:   10,
	}
}

// Scalping takes short-lived positions off RSI extremes and threshold
// crossings.
type Scalping struct {
	params ScalpingParams
}

// NewScalping creates the strategy with the given parameters.
func NewScalping(params ScalpingParams) *Scalping {
	return &Scalping{params: params}
}

func (s *Scalping) Name() types.StrategyName {
	return types.StrategyScalping
}

func (s *Scalping) Analyze(candles []types.Candle, symbol string) (*types.Signal, error) {
	if len(candles) < s.params.RSIPeriod+10 {
		return nil, nil
	}

	series := closes(candles)
	rsi := indicators.RSI(series, s.params.RSIPeriod)

	last := len(series) - 1
	current := rsi[last]
	if !indicators.Defined(current) {
		return nil, nil
	}
	prev := current
	if last > 0 && indicators.Defined(rsi[last-1]) {
		prev = rsi[last-1]
	}

	price := series[last]

	var action types.TradeAction
	var confidence float64
	switch {
	case current < s.params.Oversold:
		action = types.ActionBuy
		confidence = math.Min(0.95, 0.7+(s.params.Oversold-current)/100)
	case current > s.params.Overbought:
		action = types.ActionSell
		confidence = math.Min(0.95, 0.7+(current-s.params.Overbought)/100)
	case prev <= s.params.Oversold && current > s.params.Oversold:
		action = types.ActionBuy
		confidence = 0.85
	case prev >= s.params.Overbought && current < s.params.Overbought:
		action = types.ActionSell
		confidence = 0.85
	default:
		return nil, nil
	}

	if confidence < s.params.MinConfidence {
		return nil, nil
	}

	takeProfit := price + s.params.TakeProfitPips*types.PipSize
	stopLoss := price - s.params.StopLossPips*types.PipSize
	if action == types.ActionSell {
		takeProfit = price - s.params.TakeProfitPips*types.PipSize
		stopLoss = price + s.params.StopLossPips*types.PipSize
	}

	return &types.Signal{
		Strategy:   types.StrategyScalping,
		Symbol:     symbol,
		Action:     action,
		Confidence: confidence,
		EntryPrice: price,
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
		Indicators: map[string]float64{
			"rsi":            current,
			"rsi_overbought": s.params.Overbought,
			"rsi_oversold":   s.params.Oversold,
		},
	}, nil
}
