package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

func connectedMock(t *testing.T) *Mock {
	t.Helper()
	m := NewMock()
	require.NoError(t, m.Connect(context.Background()))
	return m
}

func TestMockRequiresConnection(t *testing.T) {
	m := NewMock()
	_, err := m.GetRates(context.Background(), "EURUSD", "M5", 10)
	require.Error(t, err)

	require.NoError(t, m.Connect(context.Background()))
	_, err = m.GetRates(context.Background(), "EURUSD", "M5", 10)
	require.NoError(t, err)

	require.NoError(t, m.Disconnect())
	assert.False(t, m.IsConnected())
}

func TestMockRatesAreDeterministic(t *testing.T) {
	m := connectedMock(t)
	fixed := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	first, err := m.GetRates(context.Background(), "EURUSD", "M5", 100)
	require.NoError(t, err)
	second, err := m.GetRates(context.Background(), "EURUSD", "M5", 100)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, first, 100)
	for i := 1; i < len(first); i++ {
		assert.Equal(t, int64(300), first[i].Time-first[i-1].Time)
	}
	for _, c := range first {
		assert.GreaterOrEqual(t, c.High, c.Open)
		assert.GreaterOrEqual(t, c.High, c.Close)
		assert.LessOrEqual(t, c.Low, c.Open)
		assert.LessOrEqual(t, c.Low, c.Close)
		assert.InDelta(t, 1.0850, c.Close, 0.01)
	}
}

func TestMockUnknownTimeframe(t *testing.T) {
	m := connectedMock(t)
	_, err := m.GetRates(context.Background(), "EURUSD", "M7", 10)
	require.Error(t, err)
}

func TestMockTickStraddlesClose(t *testing.T) {
	m := connectedMock(t)
	tick, err := m.GetSymbolTick(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Less(t, tick.Bid, tick.Ask)
	assert.InDelta(t, types.PipSize, tick.Ask-tick.Bid, 1e-9)
}

func TestMockOrderLifecycle(t *testing.T) {
	m := connectedMock(t)
	ctx := context.Background()

	ticket, err := m.SendOrder(ctx, "EURUSD", types.ActionBuy, 0.1, 1.0850, 1.0800, 1.0930, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), ticket)

	count, err := m.OpenPositionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	positions, err := m.GetPositions(ctx, "EURUSD")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, ticket, positions[0].Ticket)

	// Close 50 pips above entry; balance gains the position profit.
	require.NoError(t, m.CloseOrder(ctx, ticket, "EURUSD", 0.1, 1.0900))
	account, err := m.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10000+0.0050*0.1, account.Balance, 1e-9)

	count, err = m.OpenPositionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.Error(t, m.CloseOrder(ctx, ticket, "EURUSD", 0.1, 1.0900))
}

func TestMockRejectsBadOrders(t *testing.T) {
	m := connectedMock(t)
	ctx := context.Background()

	_, err := m.SendOrder(ctx, "EURUSD", "HOLD", 0.1, 1.0850, 0, 0, "")
	require.Error(t, err)
	_, err = m.SendOrder(ctx, "EURUSD", types.ActionBuy, 0, 1.0850, 0, 0, "")
	require.Error(t, err)
}

func TestMockTicketsIncrement(t *testing.T) {
	m := connectedMock(t)
	ctx := context.Background()

	first, err := m.SendOrder(ctx, "EURUSD", types.ActionBuy, 0.1, 1.0850, 0, 0, "")
	require.NoError(t, err)
	second, err := m.SendOrder(ctx, "GBPUSD", types.ActionSell, 0.2, 1.2700, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}
