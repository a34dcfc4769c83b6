package strategy

import (
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// Strategy analyzes a candle history and either emits a fully formed
// signal or nothing. Implementations are pure functions of the history:
// no mutable state is carried across calls beyond configured parameters.
type Strategy interface {
	// Analyze returns a signal, or nil when the history produces none.
	Analyze(candles []types.Candle, symbol string) (*types.Signal, error)

	// Name returns the strategy identifier stamped on emitted signals.
	Name() types.StrategyName
}

// closes extracts the close-price series from a candle history.
func closes(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
