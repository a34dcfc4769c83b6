package execution

import (
	"math"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

const (
	pipValue       = 10.0 // account-currency value of one pip per lot
	minVolume      = 0.01
	maxVolume      = 10.0
	fallbackVolume = 0.1
)

// Sizer converts the account's risk appetite into an order volume.
type Sizer struct {
	riskPercent float64
}

// NewSizer creates a sizer risking riskPercent of the balance per trade.
func NewSizer(riskPercent float64) *Sizer {
	return &Sizer{riskPercent: riskPercent}
}

// Volume computes the lot size for a signal. When the account is
// unavailable or the stop distance is zero it falls back to 0.1 lots;
// otherwise the result is rounded to two decimals and clamped to
// [0.01, 10.0].
func (s *Sizer) Volume(sig *types.Signal, account *types.AccountSnapshot) float64 {
	if account == nil || account.Balance <= 0 {
		return fallbackVolume
	}

	pipsAtRisk := math.Abs(sig.EntryPrice-sig.StopLoss) / types.PipSize
	if pipsAtRisk == 0 {
		return fallbackVolume
	}

	riskAmount := account.Balance * s.riskPercent / 100
	volume := riskAmount / (pipsAtRisk * pipValue)
	volume = math.Round(volume*100) / 100

	return math.Max(minVolume, math.Min(volume, maxVolume))
}
