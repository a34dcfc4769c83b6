package broker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// Mock is a self-contained broker for development and tests. It
// synthesizes deterministic candle history per symbol, runs a demo
// account and tracks positions opened through it. Safe for concurrent
// use.
type Mock struct {
	mu         sync.Mutex
	connected  bool
	nextTicket int64
	balance    float64
	positions  map[int64]types.Position

	now func() time.Time
}

// NewMock creates a disconnected mock broker with a 10000 USD demo
// account. Tickets start at 12345.
func NewMock() *Mock {
	return &Mock{
		nextTicket: 12345,
		balance:    10000,
		positions:  make(map[int64]types.Position),
		now:        time.Now,
	}
}

func (m *Mock) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *Mock) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *Mock) Name() string { return "mock" }

// timeframeSeconds maps MT-style timeframe names to bar lengths.
var timeframeSeconds = map[string]int64{
	"M1":  60,
	"M5":  300,
	"M15": 900,
	"M30": 1800,
	"H1":  3600,
	"H4":  14400,
	"D1":  86400,
}

// GetRates synthesizes count candles ending at the current bar. The
// series is a slow sine wave around a per-symbol base price, so the
// same request at the same bar always returns the same data.
func (m *Mock) GetRates(ctx context.Context, symbol, timeframe string, count int) ([]types.Candle, error) {
	if err := m.ensureConnected(); err != nil {
		return nil, err
	}
	barSeconds, ok := timeframeSeconds[timeframe]
	if !ok {
		return nil, fmt.Errorf("unknown timeframe %q", timeframe)
	}
	if count <= 0 {
		count = 100
	}

	base := basePrice(symbol)
	lastBar := m.now().Unix() / barSeconds * barSeconds

	candles := make([]types.Candle, count)
	for i := 0; i < count; i++ {
		barTime := lastBar - int64(count-1-i)*barSeconds
		phase := float64(barTime/barSeconds) * 0.05
		mid := base + base*0.002*math.Sin(phase)
		swing := base * 0.0003
		open := mid - swing/2
		close := mid + swing/2
		candles[i] = types.Candle{
			Time:   barTime,
			Open:   open,
			High:   math.Max(open, close) + swing/4,
			Low:    math.Min(open, close) - swing/4,
			Close:  close,
			Volume: 100 + barTime%400,
		}
	}
	return candles, nil
}

func (m *Mock) GetSymbolTick(ctx context.Context, symbol string) (*types.Tick, error) {
	if err := m.ensureConnected(); err != nil {
		return nil, err
	}
	candles, err := m.GetRates(ctx, symbol, "M1", 1)
	if err != nil {
		return nil, err
	}
	mid := candles[0].Close
	return &types.Tick{
		Symbol: symbol,
		Bid:    mid - types.PipSize/2,
		Ask:    mid + types.PipSize/2,
		Spread: 1,
		Time:   m.now().Unix(),
	}, nil
}

func (m *Mock) GetAccountInfo(ctx context.Context) (*types.AccountSnapshot, error) {
	if err := m.ensureConnected(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &types.AccountSnapshot{
		Balance:     m.balance,
		Equity:      m.balance,
		FreeMargin:  m.balance,
		MarginLevel: 0,
		Currency:    "USD",
		Leverage:    100,
	}, nil
}

// SendOrder opens a simulated position and returns its ticket.
func (m *Mock) SendOrder(ctx context.Context, symbol string, action types.TradeAction, volume, price, stopLoss, takeProfit float64, comment string) (int64, error) {
	if err := m.ensureConnected(); err != nil {
		return 0, err
	}
	if !action.Valid() {
		return 0, fmt.Errorf("invalid action %q", action)
	}
	if volume <= 0 {
		return 0, fmt.Errorf("invalid volume %v", volume)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ticket := m.nextTicket
	m.nextTicket++
	m.positions[ticket] = types.Position{
		Ticket:       ticket,
		Symbol:       symbol,
		Action:       action,
		Volume:       volume,
		OpenPrice:    price,
		CurrentPrice: price,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
	}
	return ticket, nil
}

// CloseOrder removes the simulated position and settles its profit into
// the demo balance.
func (m *Mock) CloseOrder(ctx context.Context, ticket int64, symbol string, volume, price float64) error {
	if err := m.ensureConnected(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[ticket]
	if !ok {
		return fmt.Errorf("position %d not found", ticket)
	}
	profit := (price - pos.OpenPrice) * pos.Volume
	if pos.Action == types.ActionSell {
		profit = (pos.OpenPrice - price) * pos.Volume
	}
	m.balance += profit
	delete(m.positions, ticket)
	return nil
}

func (m *Mock) GetPositions(ctx context.Context, symbol string) ([]types.Position, error) {
	if err := m.ensureConnected(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Position
	for _, pos := range m.positions {
		if symbol == "" || pos.Symbol == symbol {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (m *Mock) OpenPositionCount(ctx context.Context) (int, error) {
	if err := m.ensureConnected(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions), nil
}

func (m *Mock) ensureConnected() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock broker not connected")
	}
	return nil
}

// basePrice gives each symbol a stable anchor for synthetic quotes.
func basePrice(symbol string) float64 {
	switch symbol {
	case "EURUSD":
		return 1.0850
	case "GBPUSD":
		return 1.2700
	case "USDJPY":
		return 149.50
	case "AUDUSD":
		return 0.6550
	default:
		sum := 0
		for _, r := range symbol {
			sum += int(r)
		}
		return 1.0 + float64(sum%1000)/10000
	}
}
