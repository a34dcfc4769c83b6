package types

import "time"

// PipSize is the smallest quoted price increment for the FX instruments
// this bot trades. Volumes and stops are expressed in these units.
const PipSize = 0.0001

// Candle is a single OHLC bar. Time is epoch seconds of the bar open.
// Candles are ordered oldest to newest and never mutated after fetch.
type Candle struct {
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Tick is the current quote for a symbol.
type Tick struct {
	Symbol string
	Bid    float64
	Ask    float64
	Spread int
	Time   int64
}

// AccountSnapshot is a read-only view of the trading account, fetched
// once per decision cycle.
type AccountSnapshot struct {
	Balance     float64
	Equity      float64
	Margin      float64
	FreeMargin  float64
	MarginLevel float64
	Currency    string
	Leverage    int
}

// TradeAction is the direction of a signal or order.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// Valid reports whether the action is one of the two tradable directions.
func (a TradeAction) Valid() bool {
	return a == ActionBuy || a == ActionSell
}

// StrategyName identifies which strategy produced a signal.
type StrategyName string

const (
	StrategyMeanReversion  StrategyName = "MEAN_REVERSION"
	StrategyScalping       StrategyName = "SCALPING"
	StrategyTrendFollowing StrategyName = "TREND_FOLLOWING"
)

// Signal is a fully formed trading signal. It is produced once per
// analysis and never mutated afterwards.
type Signal struct {
	Strategy   StrategyName
	Symbol     string
	Action     TradeAction
	Confidence float64 // in [0, 1]
	EntryPrice float64
	TakeProfit float64
	StopLoss   float64
	Indicators map[string]float64
}

// TradeStatus is the lifecycle state of a trade record.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "OPEN"
	TradeStatusClosed TradeStatus = "CLOSED"
)

// TradeRecord tracks one executed order through its lifecycle. Status
// transitions OPEN to CLOSED exactly once and never reverses. Ticket is
// unique across the ledger's lifetime.
type TradeRecord struct {
	Ticket     int64
	Symbol     string
	Action     TradeAction
	Strategy   StrategyName
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Confidence float64
	Volume     float64
	ExecutedAt time.Time
	Status     TradeStatus

	// Populated on close.
	ExitPrice     float64
	Profit        float64
	ProfitPercent float64
	ClosedAt      time.Time
}

// Position is an open position as reported by the broker.
type Position struct {
	Ticket       int64
	Symbol       string
	Action       TradeAction
	Volume       float64
	OpenPrice    float64
	CurrentPrice float64
	Profit       float64
	StopLoss     float64
	TakeProfit   float64
}
