package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbridge/mt5-bridge/internal/config"
	pkgerrors "github.com/quantbridge/mt5-bridge/internal/errors"
	"github.com/quantbridge/mt5-bridge/internal/monitoring"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Broker.Name = "mock"
	cfg.Trading.Symbols = []string{"EURUSD"}
	cfg.Trading.Timeframe = "M5"
	cfg.Trading.CandleCount = 100
	cfg.Trading.PollInterval = time.Hour
	cfg.Risk.MaxDailyLossPercent = 5
	cfg.Risk.MaxDrawdownPercent = 10
	cfg.Risk.PositionSizePercent = 2
	cfg.Risk.MinRiskRewardRatio = 1.5
	cfg.Risk.MaxTradesPerDay = 20
	cfg.Risk.MaxConcurrentPositions = 5
	cfg.Strategy.Enabled = []string{"MEAN_REVERSION", "SCALPING", "TREND_FOLLOWING"}
	cfg.Strategy.BollingerPeriod = 20
	cfg.Strategy.BollingerStdDev = 2.0
	cfg.Strategy.RSIPeriod = 14
	cfg.Strategy.RSIOversold = 30
	cfg.Strategy.RSIOverbought = 70
	cfg.Strategy.ShortMAPeriod = 20
	cfg.Strategy.LongMAPeriod = 50
	return cfg
}

func TestNewRejectsUnknownBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Name = "ftx"

	_, err := New(cfg, monitoring.NewHealthChecker())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CategoryConfig, pkgerrors.CategoryOf(err))
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy.Enabled = []string{"MARTINGALE"}

	_, err := New(cfg, monitoring.NewHealthChecker())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CategoryConfig, pkgerrors.CategoryOf(err))
}

func TestNewRequiresStrategies(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy.Enabled = nil

	_, err := New(cfg, monitoring.NewHealthChecker())
	require.Error(t, err)
}

func TestBotStartStop(t *testing.T) {
	b, err := New(testConfig(), monitoring.NewHealthChecker())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, b.Start(ctx))
	b.Stop()

	// Every trade the session opened was closed on shutdown.
	assert.Empty(t, b.OpenTrades())
}

func TestBotCloseTradeUnknownTicket(t *testing.T) {
	b, err := New(testConfig(), monitoring.NewHealthChecker())
	require.NoError(t, err)
	require.NoError(t, b.broker.Connect(context.Background()))

	_, err = b.CloseTrade(context.Background(), 424242)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CategoryClose, pkgerrors.CategoryOf(err))
}

func TestBotRiskMetrics(t *testing.T) {
	b, err := New(testConfig(), monitoring.NewHealthChecker())
	require.NoError(t, err)
	require.NoError(t, b.broker.Connect(context.Background()))

	metrics, err := b.RiskMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.DailyTrades)
	assert.Equal(t, 5.0, metrics.DailyLossLimit)
	assert.Equal(t, 10.0, metrics.MaxDrawdown)
	assert.Equal(t, 10000.0, metrics.FreeMargin)
}

func TestBotManualTradeRoundTrip(t *testing.T) {
	b, err := New(testConfig(), monitoring.NewHealthChecker())
	require.NoError(t, err)
	require.NoError(t, b.broker.Connect(context.Background()))

	sig := &types.Signal{
		Strategy:   types.StrategyScalping,
		Symbol:     "EURUSD",
		Action:     types.ActionBuy,
		Confidence: 0.8,
		EntryPrice: 1.0850,
		TakeProfit: 1.0930,
		StopLoss:   1.0800,
	}
	require.NoError(t, b.validateAndExecute(context.Background(), sig))

	open := b.OpenTrades()
	require.Len(t, open, 1)
	assert.Equal(t, types.TradeStatusOpen, open[0].Status)

	closed, err := b.CloseTrade(context.Background(), open[0].Ticket)
	require.NoError(t, err)
	assert.Equal(t, types.TradeStatusClosed, closed.Status)
	assert.Empty(t, b.OpenTrades())
	require.Len(t, b.ClosedTrades(), 1)
}
