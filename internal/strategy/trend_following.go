package strategy

import (
	"math"

	"github.com/quantbridge/mt5-bridge/internal/indicators"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// MAType selects the moving-average flavor for trend detection.
type MAType string

const (
	MATypeSimple      MAType = "SMA"
	MATypeExponential MAType = "EMA"
)

// TrendFollowingParams configures the moving-average trend strategy.
type TrendFollowingParams struct {
	MAShort        int
	MALong         int
	MAType         MAType
	MinConfidence  float64
	TakeProfitPips float64
	StopLossPips   float64
}

// DefaultTrendFollowingParams returns the stock parameter set.
func DefaultTrendFollowingParams() TrendFollowingParams {
	return TrendFollowingParams{
		MAShort:        20,
		MALong:         50,
		MAType:         MATypeSimple,
		MinConfidence:  0.6,
		TakeProfitPips: 50,
		StopLossPips:   30,
	}
}

// TrendFollowing trades moving-average crossovers and, failing that,
// trend continuation when price leads the short average.
type TrendFollowing struct {
	params TrendFollowingParams
}

// NewTrendFollowing creates the strategy with the given parameters.
func NewTrendFollowing(params TrendFollowingParams) *TrendFollowing {
	return &TrendFollowing{params: params}
}

func (s *TrendFollowing) Name() types.StrategyName {
	return types.StrategyTrendFollowing
}

func (s *TrendFollowing) Analyze(candles []types.Candle, symbol string) (*types.Signal, error) {
	if len(candles) < s.params.MALong+10 {
		return nil, nil
	}

	series := closes(candles)
	average := indicators.SMA
	if s.params.MAType == MATypeExponential {
		average = indicators.EMA
	}
	maShort := average(series, s.params.MAShort)
	maLong := average(series, s.params.MALong)

	last := len(series) - 1
	shortCur, longCur := maShort[last], maLong[last]
	if !indicators.Defined(shortCur) || !indicators.Defined(longCur) {
		return nil, nil
	}
	shortPrev, longPrev := shortCur, longCur
	if last > 0 && indicators.Defined(maShort[last-1]) && indicators.Defined(maLong[last-1]) {
		shortPrev, longPrev = maShort[last-1], maLong[last-1]
	}

	price := series[last]

	var action types.TradeAction
	var confidence float64
	switch {
	case shortPrev <= longPrev && shortCur > longCur:
		action = types.ActionBuy
		confidence = math.Min(0.9, 0.6+(shortCur-longCur)/longCur*10)
	case shortPrev >= longPrev && shortCur < longCur:
		action = types.ActionSell
		confidence = math.Min(0.9, 0.6+(longCur-shortCur)/longCur*10)
	case shortCur > longCur && price > shortCur:
		action = types.ActionBuy
		confidence = math.Min(0.8, 0.5+(price-shortCur)/shortCur*5)
	case shortCur < longCur && price < shortCur:
		action = types.ActionSell
		confidence = math.Min(0.8, 0.5+(shortCur-price)/shortCur*5)
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
		Strategy:   types.StrategyTrendFollowing,
		Symbol:     symbol,
		Action:     action,
		Confidence: confidence,
		EntryPrice: price,
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
		Indicators: map[string]float64{
			"ma_short":      shortCur,
			"ma_long":       longCur,
			"current_price": price,
		},
	}, nil
}
