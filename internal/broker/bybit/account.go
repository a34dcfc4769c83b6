package bybit

import (
	"context"
	"fmt"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// GetAccountInfo fetches the unified wallet and maps it onto an
// account snapshot. Margin level is equity over used margin in percent,
// zero when nothing is at risk.
func (c *Client) GetAccountInfo(ctx context.Context) (*types.AccountSnapshot, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}

	var walletResult struct {
		List []struct {
			TotalEquity           string `json:"totalEquity"`
			TotalWalletBalance    string `json:"totalWalletBalance"`
			TotalInitialMargin    string `json:"totalInitialMargin"`
			TotalAvailableBalance string `json:"totalAvailableBalance"`
		} `json:"list"`
	}
	if err := unwrapResult(result, &walletResult); err != nil {
		return nil, fmt.Errorf("failed to parse wallet response: %w", err)
	}
	if len(walletResult.List) == 0 {
		return nil, fmt.Errorf("no account data found")
	}

	wallet := walletResult.List[0]
	snapshot := &types.AccountSnapshot{
		Balance:    parseFloat64(wallet.TotalWalletBalance),
		Equity:     parseFloat64(wallet.TotalEquity),
		Margin:     parseFloat64(wallet.TotalInitialMargin),
		FreeMargin: parseFloat64(wallet.TotalAvailableBalance),
		Currency:   "USDT",
		Leverage:   1,
	}
	if snapshot.Margin > 0 {
		snapshot.MarginLevel = snapshot.Equity / snapshot.Margin * 100
	}
	return snapshot, nil
}
