package execution

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/quantbridge/mt5-bridge/internal/errors"
	"github.com/quantbridge/mt5-bridge/internal/risk"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// OrderClient is the slice of the broker the ledger needs to place and
// close orders.
type OrderClient interface {
	SendOrder(ctx context.Context, symbol string, action types.TradeAction, volume, price, stopLoss, takeProfit float64, comment string) (int64, error)
	CloseOrder(ctx context.Context, ticket int64, symbol string, volume, price float64) error
}

// AccountSource provides the account snapshot used for sizing.
type AccountSource interface {
	GetAccountInfo(ctx context.Context) (*types.AccountSnapshot, error)
}

// Ledger places orders through the broker and tracks every executed
// trade through its OPEN to CLOSED lifecycle. Trades never leave the
// ledger; statistics are derived over the closed subset. Safe for
// concurrent use.
type Ledger struct {
	mu       sync.Mutex
	client   OrderClient
	accounts AccountSource
	sizer    *Sizer
	state    *risk.DailyState
	trades   map[int64]*types.TradeRecord

	now func() time.Time
}

// NewLedger creates an empty ledger. Executed trades are also recorded
// into the shared daily risk state.
func NewLedger(client OrderClient, accounts AccountSource, sizer *Sizer, state *risk.DailyState) *Ledger {
	return &Ledger{
		client:   client,
		accounts: accounts,
		sizer:    sizer,
		state:    state,
		trades:   make(map[int64]*types.TradeRecord),
		now:      time.Now,
	}
}

// Execute sizes and places an order for the signal. On success a new
// OPEN trade record keyed by the broker ticket is returned; on failure
// nothing is recorded and the signal may be re-evaluated next cycle.
func (l *Ledger) Execute(ctx context.Context, sig *types.Signal) (*types.TradeRecord, error) {
	// A failed account fetch is not fatal: the sizer falls back to its
	// default volume.
	account, err := l.accounts.GetAccountInfo(ctx)
	if err != nil {
		log.Printf("⚠️ account snapshot unavailable, using fallback volume: %v", err)
		account = nil
	}
	volume := l.sizer.Volume(sig, account)

	comment := fmt.Sprintf("%s - Confidence: %.2f%%", sig.Strategy, sig.Confidence*100)
	ticket, err := l.client.SendOrder(ctx, sig.Symbol, sig.Action, volume, sig.EntryPrice, sig.StopLoss, sig.TakeProfit, comment)
	if err != nil {
		return nil, errors.ExecutionFailed("send_order", err)
	}

	record := &types.TradeRecord{
		Ticket:     ticket,
		Symbol:     sig.Symbol,
		Action:     sig.Action,
		Strategy:   sig.Strategy,
		EntryPrice: sig.EntryPrice,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Confidence: sig.Confidence,
		Volume:     volume,
		ExecutedAt: l.now(),
		Status:     types.TradeStatusOpen,
	}

	l.mu.Lock()
	l.trades[ticket] = record
	l.mu.Unlock()
	l.state.RecordTrade(record)

	log.Printf("✅ trade executed: ticket %d, %s %s %.2f lots", ticket, sig.Action, sig.Symbol, volume)
	return record, nil
}

// Close closes an OPEN trade at the given exit price. On broker failure
// the record stays OPEN and the caller may retry; closing an already
// CLOSED ticket is a no-op failure that leaves the profit untouched.
func (l *Ledger) Close(ctx context.Context, ticket int64, exitPrice float64) (*types.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.trades[ticket]
	if !ok {
		return nil, errors.CloseFailed("close_order", fmt.Sprintf("unknown ticket %d", ticket), nil)
	}
	if record.Status == types.TradeStatusClosed {
		return nil, errors.CloseFailed("close_order", fmt.Sprintf("ticket %d already closed", ticket), nil)
	}

	if err := l.client.CloseOrder(ctx, ticket, record.Symbol, record.Volume, exitPrice); err != nil {
		return nil, errors.CloseFailed("close_order", fmt.Sprintf("ticket %d", ticket), err)
	}

	profit := (exitPrice - record.EntryPrice) * record.Volume
	if record.Action == types.ActionSell {
		profit = (record.EntryPrice - exitPrice) * record.Volume
	}

	record.ExitPrice = exitPrice
	record.Profit = profit
	record.ProfitPercent = profit / (record.EntryPrice * record.Volume) * 100
	record.ClosedAt = l.now()
	record.Status = types.TradeStatusClosed

	l.state.RecordProfit(profit)

	log.Printf("✅ trade closed: ticket %d, profit %.2f", ticket, profit)
	return record, nil
}

// Get returns the record for a ticket, if the ledger holds one.
func (l *Ledger) Get(ticket int64) (*types.TradeRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.trades[ticket]
	return record, ok
}

// OpenTrades lists all OPEN trades, ordered by ticket.
func (l *Ledger) OpenTrades() []*types.TradeRecord {
	return l.filter(types.TradeStatusOpen)
}

// ClosedTrades lists all CLOSED trades, ordered by ticket.
func (l *Ledger) ClosedTrades() []*types.TradeRecord {
	return l.filter(types.TradeStatusClosed)
}

// OpenCount returns the number of OPEN trades in the ledger.
func (l *Ledger) OpenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, record := range l.trades {
		if record.Status == types.TradeStatusOpen {
			n++
		}
	}
	return n
}

func (l *Ledger) filter(status types.TradeStatus) []*types.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*types.TradeRecord
	for _, record := range l.trades {
		if record.Status == status {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out
}

// Statistics are aggregate results over the closed trades.
type Statistics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalProfit   float64
	AverageWin    float64
	AverageLoss   float64
	ProfitFactor  float64
}

// Statistics computes the aggregate results of all closed trades.
func (l *Ledger) Statistics() Statistics {
	closed := l.ClosedTrades()
	if len(closed) == 0 {
		return Statistics{}
	}

	var stats Statistics
	var totalWins, totalLosses float64
	for _, record := range closed {
		stats.TotalProfit += record.Profit
		if record.Profit > 0 {
			stats.WinningTrades++
			totalWins += record.Profit
		} else if record.Profit < 0 {
			stats.LosingTrades++
			totalLosses += record.Profit
		}
	}

	stats.TotalTrades = len(closed)
	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	if stats.WinningTrades > 0 {
		stats.AverageWin = totalWins / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AverageLoss = math.Abs(totalLosses) / float64(stats.LosingTrades)
		stats.ProfitFactor = totalWins / math.Abs(totalLosses)
	}
	return stats
}
