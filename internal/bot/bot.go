// Package bot wires the pipeline together: market data in, signals
// through the risk gate, orders out through the ledger.
package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/quantbridge/mt5-bridge/internal/broker"
	"github.com/quantbridge/mt5-bridge/internal/broker/bybit"
	"github.com/quantbridge/mt5-bridge/internal/config"
	"github.com/quantbridge/mt5-bridge/internal/errors"
	"github.com/quantbridge/mt5-bridge/internal/execution"
	"github.com/quantbridge/mt5-bridge/internal/logger"
	"github.com/quantbridge/mt5-bridge/internal/market"
	"github.com/quantbridge/mt5-bridge/internal/monitoring"
	"github.com/quantbridge/mt5-bridge/internal/risk"
	"github.com/quantbridge/mt5-bridge/internal/strategy"
	"github.com/quantbridge/mt5-bridge/pkg/reporting"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// Bot runs the trading pipeline on a poll interval.
type Bot struct {
	cfg        *config.Config
	broker     broker.Broker
	cache      *market.Cache
	riskMgr    *risk.Manager
	state      *risk.DailyState
	ledger     *execution.Ledger
	strategies []strategy.Strategy
	health     *monitoring.HealthChecker
	fileLog    *logger.Logger
	reporter   *reporting.ConsoleReporter
	stream     *bybit.KlineStream

	// cycleMu serializes the validate-then-execute section so limit
	// checks and executions cannot interleave.
	cycleMu  sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a bot from the configuration. The broker is selected but
// not yet connected; Start does that.
func New(cfg *config.Config, health *monitoring.HealthChecker) (*Bot, error) {
	b, err := newBroker(cfg)
	if err != nil {
		return nil, err
	}

	strategies, err := buildStrategies(cfg)
	if err != nil {
		return nil, err
	}

	state := risk.NewDailyState()
	limits := risk.Limits{
		MaxDailyLossPercent:    cfg.Risk.MaxDailyLossPercent,
		MaxDrawdownPercent:     cfg.Risk.MaxDrawdownPercent,
		RiskRewardRatio:        cfg.Risk.MinRiskRewardRatio,
		MaxTradesPerDay:        cfg.Risk.MaxTradesPerDay,
		MaxConcurrentPositions: cfg.Risk.MaxConcurrentPositions,
	}

	sizer := execution.NewSizer(cfg.Risk.PositionSizePercent)

	bot := &Bot{
		cfg:        cfg,
		broker:     b,
		cache:      market.NewCache(b),
		riskMgr:    risk.NewManager(limits, b),
		state:      state,
		ledger:     execution.NewLedger(b, b, sizer, state),
		strategies: strategies,
		health:     health,
		reporter:   reporting.NewConsoleReporter(),
		stopChan:   make(chan struct{}),
	}

	if cfg.LogFile != "" {
		fileLog, err := logger.NewLogger(cfg.LogFile, cfg.Trading.Timeframe)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryConfig, "bot", "init", "failed to open session log")
		}
		bot.fileLog = fileLog
	}

	return bot, nil
}

func newBroker(cfg *config.Config) (broker.Broker, error) {
	switch cfg.Broker.Name {
	case "mock":
		return broker.NewMock(), nil
	case "bybit":
		return bybit.NewClient(bybit.Config{
			APIKey:    cfg.Broker.APIKey,
			APISecret: cfg.Broker.APISecret,
			Category:  cfg.Broker.Category,
			Testnet:   cfg.Broker.Testnet,
			Demo:      cfg.Broker.Demo,
		}), nil
	default:
		return nil, errors.New(errors.CategoryConfig, "bot", "init",
			fmt.Sprintf("unknown broker %q", cfg.Broker.Name))
	}
}

func buildStrategies(cfg *config.Config) ([]strategy.Strategy, error) {
	var out []strategy.Strategy
	for _, name := range cfg.Strategy.Enabled {
		switch types.StrategyName(name) {
		case types.StrategyMeanReversion:
			params := strategy.DefaultMeanReversionParams()
			params.BBPeriod = cfg.Strategy.BollingerPeriod
			params.BBStdDev = cfg.Strategy.BollingerStdDev
			out = append(out, strategy.NewMeanReversion(params))
		case types.StrategyScalping:
			params := strategy.DefaultScalpingParams()
			params.RSIPeriod = cfg.Strategy.RSIPeriod
			params.Oversold = cfg.Strategy.RSIOversold
			params.Overbought = cfg.Strategy.RSIOverbought
			out = append(out, strategy.NewScalping(params))
		case types.StrategyTrendFollowing:
			params := strategy.DefaultTrendFollowingParams()
			params.MAShort = cfg.Strategy.ShortMAPeriod
			params.MALong = cfg.Strategy.LongMAPeriod
			if cfg.Strategy.MAType != "" {
				params.MAType = strategy.MAType(cfg.Strategy.MAType)
			}
			out = append(out, strategy.NewTrendFollowing(params))
		default:
			return nil, errors.New(errors.CategoryConfig, "bot", "init",
				fmt.Sprintf("unknown strategy %q", name))
		}
	}
	if len(out) == 0 {
		return nil, errors.New(errors.CategoryConfig, "bot", "init", "no strategies enabled")
	}
	return out, nil
}

// Start connects the broker and runs the decision loop until the
// context is cancelled or Stop is called.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.broker.Connect(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryData, "bot", "connect", "broker connection failed")
	}
	b.health.SetConnected(true)

	b.reporter.PrintStartup(b.broker.Name(), b.cfg.Trading.Symbols,
		b.cfg.Trading.Timeframe, b.cfg.Trading.PollInterval.String())
	if b.fileLog != nil {
		b.fileLog.Info("session started on %s, symbols %v", b.broker.Name(), b.cfg.Trading.Symbols)
	}

	b.startStream(ctx)

	b.wg.Add(1)
	go b.loop(ctx)
	return nil
}

// startStream subscribes to live klines when the broker supports it.
// Confirmed bars land in the cache so poll cycles between fetches see
// fresh closes. Stream failure is not fatal; polling still works.
func (b *Bot) startStream(ctx context.Context) {
	if b.cfg.Broker.Name != "bybit" {
		return
	}

	stream, err := bybit.NewKlineStream(b.cfg.Broker.Testnet, b.cfg.Trading.Symbols, b.cfg.Trading.Timeframe,
		func(symbol, timeframe string, candle types.Candle) {
			b.cache.Ingest(symbol, timeframe, candle)
			monitoring.UpdatePrice(symbol, candle.Close)
		})
	if err != nil {
		log.Printf("⚠️ kline stream unavailable: %v", err)
		return
	}
	if err := stream.Start(ctx); err != nil {
		log.Printf("⚠️ kline stream failed to start: %v", err)
		return
	}
	b.stream = stream
}

func (b *Bot) loop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.Trading.PollInterval)
	defer ticker.Stop()

	// First cycle immediately, then on the ticker.
	b.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.runCycle(ctx)
		}
	}
}

// errorCategory labels an error for the error counter.
func errorCategory(err error) string {
	if c := errors.CategoryOf(err); c != "" {
		return string(c)
	}
	return "UNKNOWN"
}

// runCycle evaluates every symbol once.
func (b *Bot) runCycle(ctx context.Context) {
	for _, symbol := range b.cfg.Trading.Symbols {
		if err := b.evaluateSymbol(ctx, symbol); err != nil {
			monitoring.RecordError(errorCategory(err))
			b.health.RecordFailure(err.Error())
			log.Printf("⚠️ cycle failed for %s: %v", symbol, err)
			if b.fileLog != nil {
				b.fileLog.Error("cycle failed for %s: %v", symbol, err)
			}
		}
	}
	monitoring.UpdateRiskState(b.state.DailyLoss(), b.ledger.OpenCount())

	if b.fileLog != nil {
		status := b.cache.MarketStatus(ctx)
		b.fileLog.Status("connected=%v cached_series=%d balance=%.2f equity=%.2f free_margin=%.2f",
			status.Connected, status.CachedSeries, status.Balance, status.Equity, status.FreeMargin)
	}
}

func (b *Bot) evaluateSymbol(ctx context.Context, symbol string) error {
	candles, err := b.cache.GetOHLC(ctx, symbol, b.cfg.Trading.Timeframe, b.cfg.Trading.CandleCount)
	if err != nil {
		return err
	}

	price := candles[len(candles)-1].Close
	monitoring.UpdatePrice(symbol, price)
	b.health.RecordCycle(price)

	sig := b.bestSignal(candles, symbol)
	if sig == nil {
		return nil
	}
	monitoring.UpdateStrategyConfidence(string(sig.Strategy), sig.Confidence)
	if b.fileLog != nil {
		b.fileLog.LogSignal(sig)
	}

	return b.validateAndExecute(ctx, sig)
}

// bestSignal runs every strategy and keeps the highest-confidence
// signal. A strategy error drops that strategy's vote for the cycle
// but never the whole cycle.
func (b *Bot) bestSignal(candles []types.Candle, symbol string) *types.Signal {
	var best *types.Signal
	for _, strat := range b.strategies {
		sig, err := strat.Analyze(candles, symbol)
		if err != nil {
			monitoring.RecordError(errorCategory(err))
			log.Printf("⚠️ %s analysis failed for %s: %v", strat.Name(), symbol, err)
			continue
		}
		if sig == nil {
			continue
		}
		if best == nil || sig.Confidence > best.Confidence {
			best = sig
		}
	}
	return best
}

// validateAndExecute holds the cycle lock across the risk check and the
// order placement so the per-day and concurrency limits cannot be
// raced past.
func (b *Bot) validateAndExecute(ctx context.Context, sig *types.Signal) error {
	b.cycleMu.Lock()
	defer b.cycleMu.Unlock()

	account, err := b.broker.GetAccountInfo(ctx)
	if err != nil {
		return errors.DataUnavailable("bot", "get_account", err)
	}

	if err := b.riskMgr.Validate(ctx, sig, account, b.state); err != nil {
		if reason := risk.ReasonOf(err); reason != "" {
			monitoring.RecordRejection(string(reason))
			log.Printf("🛑 signal rejected: %s (%s %s)", reason, sig.Action, sig.Symbol)
			if b.fileLog != nil {
				b.fileLog.Warning("signal rejected: %s (%s %s)", reason, sig.Action, sig.Symbol)
			}
			return nil
		}
		return err
	}

	trade, err := b.ledger.Execute(ctx, sig)
	if err != nil {
		return err
	}

	monitoring.RecordTrade(trade.Symbol, string(trade.Action), trade.Volume)
	if b.fileLog != nil {
		b.fileLog.LogTradeExecution(trade)
	}
	return nil
}

// CloseTrade closes an open trade at the current market price.
func (b *Bot) CloseTrade(ctx context.Context, ticket int64) (*types.TradeRecord, error) {
	record, ok := b.ledger.Get(ticket)
	if !ok {
		return nil, errors.CloseFailed("close_trade", fmt.Sprintf("unknown ticket %d", ticket), nil)
	}

	tick, err := b.cache.GetTick(ctx, record.Symbol)
	if err != nil {
		return nil, err
	}
	// BUY closes at bid, SELL at ask.
	exit := tick.Bid
	if record.Action == types.ActionSell {
		exit = tick.Ask
	}

	closed, err := b.ledger.Close(ctx, ticket, exit)
	if err != nil {
		return nil, err
	}
	if b.fileLog != nil {
		b.fileLog.LogTradeClose(closed)
	}
	return closed, nil
}

// OpenTrades lists the trades currently open in the ledger.
func (b *Bot) OpenTrades() []*types.TradeRecord {
	return b.ledger.OpenTrades()
}

// ClosedTrades lists the completed trades of this session.
func (b *Bot) ClosedTrades() []*types.TradeRecord {
	return b.ledger.ClosedTrades()
}

// RiskMetrics reports the current state of the risk gate.
func (b *Bot) RiskMetrics(ctx context.Context) (risk.Metrics, error) {
	account, err := b.broker.GetAccountInfo(ctx)
	if err != nil {
		return risk.Metrics{}, errors.DataUnavailable("bot", "get_account", err)
	}
	return b.state.Snapshot(account, b.riskMgr.Limits()), nil
}

// Stop shuts the loop down, closes every open trade at market and
// writes the session reports. Closes run on a detached context so a
// cancelled parent cannot strand open positions.
func (b *Bot) Stop() {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()

	if b.stream != nil {
		b.stream.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, trade := range b.ledger.OpenTrades() {
		if _, err := b.CloseTrade(ctx, trade.Ticket); err != nil {
			log.Printf("⚠️ failed to close ticket %d on shutdown: %v", trade.Ticket, err)
			if b.fileLog != nil {
				b.fileLog.Error("failed to close ticket %d on shutdown: %v", trade.Ticket, err)
			}
		}
	}

	b.reporter.PrintOpenTrades(b.ledger.OpenTrades())
	b.reporter.PrintClosedTrades(b.ledger.ClosedTrades())
	b.reporter.PrintStatistics(b.ledger.Statistics())
	if metrics, err := b.RiskMetrics(ctx); err == nil {
		b.reporter.PrintRiskMetrics(metrics)
	}

	if b.cfg.Reporting.ExcelPath != "" {
		excel := reporting.NewExcelReporter()
		if err := excel.WriteSessionReport(b.ledger.ClosedTrades(), b.ledger.Statistics(), b.cfg.Reporting.ExcelPath); err != nil {
			log.Printf("⚠️ failed to write session report: %v", err)
		} else {
			log.Printf("📊 session report written to %s", b.cfg.Reporting.ExcelPath)
		}
	}

	if err := b.broker.Disconnect(); err != nil {
		log.Printf("⚠️ broker disconnect failed: %v", err)
	}
	b.health.SetConnected(false)

	if b.fileLog != nil {
		b.fileLog.Close()
	}
}
