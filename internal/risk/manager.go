package risk

import (
	"context"
	"fmt"
	"math"

	"github.com/quantbridge/mt5-bridge/internal/errors"
	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// Reason identifies which rule rejected a signal.
type Reason string

const (
	ReasonInvalidSignal          Reason = "INVALID_SIGNAL"
	ReasonDailyLossExceeded      Reason = "DAILY_LOSS_EXCEEDED"
	ReasonDrawdownExceeded       Reason = "DRAWDOWN_EXCEEDED"
	ReasonPositionSizeInvalid    Reason = "POSITION_SIZE_INVALID"
	ReasonRiskRewardTooLow       Reason = "RISK_REWARD_TOO_LOW"
	ReasonDailyTradeLimit        Reason = "DAILY_TRADE_LIMIT_EXCEEDED"
	ReasonMaxConcurrentPositions Reason = "MAX_CONCURRENT_POSITIONS_EXCEEDED"
)

// Rejection is the outcome of a signal that failed a risk check. It
// implements error so it can travel through the pipeline's error paths.
type Rejection struct {
	Reason Reason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("risk rejected: %s", r.Reason)
	}
	return fmt.Sprintf("risk rejected: %s (%s)", r.Reason, r.Detail)
}

// ReasonOf extracts the rejection reason from err, or "" when err is
// not a rejection.
func ReasonOf(err error) Reason {
	if rej, ok := err.(*Rejection); ok {
		return rej.Reason
	}
	return ""
}

// Limits holds the account-level risk configuration.
type Limits struct {
	MaxDailyLossPercent    float64
	MaxDrawdownPercent     float64
	RiskRewardRatio        float64
	MaxTradesPerDay        int
	MaxConcurrentPositions int
}

// PositionCounter reports the live number of open positions at the
// broker. The risk gate fails closed when the count cannot be fetched.
type PositionCounter interface {
	OpenPositionCount(ctx context.Context) (int, error)
}

// Manager is the ordered risk gate in front of order execution. Checks
// run in a fixed order and the first failure short-circuits.
type Manager struct {
	limits    Limits
	positions PositionCounter
}

// NewManager creates a risk gate with the given limits and live
// position source.
func NewManager(limits Limits, positions PositionCounter) *Manager {
	return &Manager{limits: limits, positions: positions}
}

// Limits returns the configured limits.
func (m *Manager) Limits() Limits {
	return m.limits
}

// Validate accepts or rejects a signal against the account and the
// daily state. A nil return means accepted; a *Rejection carries the
// first rule that failed. Any other error means the gate could not
// obtain the data it needs and the cycle should be skipped.
func (m *Manager) Validate(ctx context.Context, sig *types.Signal, account *types.AccountSnapshot, state *DailyState) error {
	state.MaybeReset()

	// 1. Structural validity.
	if rej := validateSignal(sig); rej != nil {
		return rej
	}

	// 2. Daily loss limit.
	if loss := state.DailyLoss(); loss < 0 && account.Balance > 0 {
		lossPercent := -loss / account.Balance * 100
		if lossPercent >= m.limits.MaxDailyLossPercent {
			return &Rejection{
				Reason: ReasonDailyLossExceeded,
				Detail: fmt.Sprintf("daily loss %.2f%% >= limit %.2f%%", lossPercent, m.limits.MaxDailyLossPercent),
			}
		}
	}

	// 3. Max drawdown.
	if account.Balance > 0 {
		drawdown := (account.Balance - account.Equity) / account.Balance * 100
		if drawdown >= m.limits.MaxDrawdownPercent {
			return &Rejection{
				Reason: ReasonDrawdownExceeded,
				Detail: fmt.Sprintf("drawdown %.2f%% >= limit %.2f%%", drawdown, m.limits.MaxDrawdownPercent),
			}
		}
	}

	// 4. Position-size sanity.
	pipsAtRisk := math.Abs(sig.EntryPrice-sig.StopLoss) / types.PipSize
	if pipsAtRisk == 0 {
		return &Rejection{Reason: ReasonPositionSizeInvalid, Detail: "zero pips at risk"}
	}

	// 5. Reward/risk ratio.
	reward := math.Abs(sig.TakeProfit - sig.EntryPrice)
	riskDist := math.Abs(sig.EntryPrice - sig.StopLoss)
	if riskDist == 0 {
		return &Rejection{Reason: ReasonRiskRewardTooLow, Detail: "zero risk distance"}
	}
	if ratio := reward / riskDist; ratio < m.limits.RiskRewardRatio {
		return &Rejection{
			Reason: ReasonRiskRewardTooLow,
			Detail: fmt.Sprintf("ratio %.2f < minimum %.2f", ratio, m.limits.RiskRewardRatio),
		}
	}

	// 6. Daily trade count.
	if state.TradeCount() >= m.limits.MaxTradesPerDay {
		return &Rejection{
			Reason: ReasonDailyTradeLimit,
			Detail: fmt.Sprintf("%d trades today", state.TradeCount()),
		}
	}

	// 7. Concurrent open positions, counted live at the broker.
	open, err := m.positions.OpenPositionCount(ctx)
	if err != nil {
		return errors.DataUnavailable("risk", "open_position_count", err)
	}
	if open >= m.limits.MaxConcurrentPositions {
		return &Rejection{
			Reason: ReasonMaxConcurrentPositions,
			Detail: fmt.Sprintf("%d open positions", open),
		}
	}

	return nil
}

func validateSignal(sig *types.Signal) *Rejection {
	switch {
	case sig == nil:
		return &Rejection{Reason: ReasonInvalidSignal, Detail: "nil signal"}
	case sig.Symbol == "":
		return &Rejection{Reason: ReasonInvalidSignal, Detail: "missing symbol"}
	case sig.Strategy == "":
		return &Rejection{Reason: ReasonInvalidSignal, Detail: "missing strategy"}
	case !sig.Action.Valid():
		return &Rejection{Reason: ReasonInvalidSignal, Detail: fmt.Sprintf("action %q", sig.Action)}
	case sig.Confidence < 0 || sig.Confidence > 1 || math.IsNaN(sig.Confidence):
		return &Rejection{Reason: ReasonInvalidSignal, Detail: fmt.Sprintf("confidence %v", sig.Confidence)}
	case !validPrice(sig.EntryPrice) || !validPrice(sig.TakeProfit) || !validPrice(sig.StopLoss):
		return &Rejection{Reason: ReasonInvalidSignal, Detail: "missing price level"}
	}
	return nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
