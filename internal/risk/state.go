package risk

import (
	"sync"
	"time"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// DailyState tracks the trades and realized losses of the current
// calendar day. It is shared between the risk gate, which reads it, and
// the order ledger, which records executions and closes into it. All
// methods are safe for concurrent use.
type DailyState struct {
	mu        sync.Mutex
	trades    []*types.TradeRecord
	loss      float64 // accumulated realized loss, always <= 0
	lastReset time.Time

	now func() time.Time
}

// NewDailyState creates an empty state anchored at the current date.
func NewDailyState() *DailyState {
	s := &DailyState{now: time.Now}
	s.lastReset = s.now()
	return s
}

// MaybeReset clears the daily counters when the current date is
// strictly later than the date of the last reset. Called by the risk
// gate before any check runs.
func (s *DailyState) MaybeReset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !dateAfter(now, s.lastReset) {
		return false
	}
	s.trades = nil
	s.loss = 0
	s.lastReset = now
	return true
}

// RecordTrade appends an executed trade to the daily ledger.
func (s *DailyState) RecordTrade(trade *types.TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trade)
}

// RecordProfit folds a realized close result into the daily loss.
// Profits leave the loss untouched.
func (s *DailyState) RecordProfit(profit float64) {
	if profit >= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loss += profit
}

// TradeCount returns the number of trades executed today.
func (s *DailyState) TradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

// DailyLoss returns today's accumulated realized loss (<= 0).
func (s *DailyState) DailyLoss() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loss
}

// LastReset returns the timestamp of the most recent reset.
func (s *DailyState) LastReset() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReset
}

func dateAfter(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}

// Metrics is a point-in-time view of the risk counters against their
// configured limits.
type Metrics struct {
	DailyTrades      int
	DailyLoss        float64
	DailyLossPercent float64
	DailyLossLimit   float64
	Drawdown         float64
	MaxDrawdown      float64
	FreeMargin       float64
	MarginLevel      float64
}

// Snapshot computes the current risk metrics for an account.
func (s *DailyState) Snapshot(account *types.AccountSnapshot, limits Limits) Metrics {
	s.mu.Lock()
	loss := s.loss
	trades := len(s.trades)
	s.mu.Unlock()

	m := Metrics{
		DailyTrades:    trades,
		DailyLoss:      loss,
		DailyLossLimit: limits.MaxDailyLossPercent,
		MaxDrawdown:    limits.MaxDrawdownPercent,
	}
	if account == nil || account.Balance <= 0 {
		return m
	}
	if loss < 0 {
		m.DailyLossPercent = -loss / account.Balance * 100
	}
	m.Drawdown = (account.Balance - account.Equity) / account.Balance * 100
	m.FreeMargin = account.FreeMargin
	m.MarginLevel = account.MarginLevel
	return m
}
