// Package broker defines the trading backend the pipeline talks to and
// provides two implementations: a deterministic in-memory mock for
// development and a Bybit demo/testnet adapter.
package broker

import (
	"context"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// Broker is the full trading backend surface. The rest of the pipeline
// consumes narrower slices of it (the market cache takes the data
// methods, the ledger takes the order methods), so any Broker
// implementation satisfies all of them.
type Broker interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	Name() string

	GetRates(ctx context.Context, symbol, timeframe string, count int) ([]types.Candle, error)
	GetSymbolTick(ctx context.Context, symbol string) (*types.Tick, error)
	GetAccountInfo(ctx context.Context) (*types.AccountSnapshot, error)

	SendOrder(ctx context.Context, symbol string, action types.TradeAction, volume, price, stopLoss, takeProfit float64, comment string) (int64, error)
	CloseOrder(ctx context.Context, ticket int64, symbol string, volume, price float64) error

	GetPositions(ctx context.Context, symbol string) ([]types.Position, error)
	OpenPositionCount(ctx context.Context) (int, error)
}
