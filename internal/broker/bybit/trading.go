package bybit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

func sideFor(action types.TradeAction) (string, error) {
	switch action {
	case types.ActionBuy:
		return "Buy", nil
	case types.ActionSell:
		return "Sell", nil
	default:
		return "", fmt.Errorf("invalid action %q", action)
	}
}

// SendOrder places a market order with attached take profit and stop
// loss, and returns a locally minted numeric ticket for it.
func (c *Client) SendOrder(ctx context.Context, symbol string, action types.TradeAction, volume, price, stopLoss, takeProfit float64, comment string) (int64, error) {
	side, err := sideFor(action)
	if err != nil {
		return 0, err
	}
	if volume <= 0 {
		return 0, fmt.Errorf("invalid volume %v", volume)
	}

	params := map[string]interface{}{
		"category":    c.category,
		"symbol":      symbol,
		"side":        side,
		"orderType":   "Market",
		"qty":         strconv.FormatFloat(volume, 'f', -1, 64),
		"orderLinkId": uuid.New().String(),
	}
	if takeProfit > 0 {
		params["takeProfit"] = strconv.FormatFloat(takeProfit, 'f', -1, 64)
	}
	if stopLoss > 0 {
		params["stopLoss"] = strconv.FormatFloat(stopLoss, 'f', -1, 64)
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to place order: %w", err)
	}

	var orderResult struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := unwrapResult(result, &orderResult); err != nil {
		return 0, fmt.Errorf("failed to parse order response: %w", err)
	}
	if orderResult.OrderID == "" {
		return 0, fmt.Errorf("order accepted without an order id")
	}

	return c.mintTicket(orderResult.OrderID), nil
}

// CloseOrder closes the position behind the ticket with a reduce-only
// market order in the opposite direction.
func (c *Client) CloseOrder(ctx context.Context, ticket int64, symbol string, volume, price float64) error {
	if _, ok := c.orderIDFor(ticket); !ok {
		return fmt.Errorf("unknown ticket %d", ticket)
	}

	positions, err := c.GetPositions(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to look up position: %w", err)
	}
	var side string
	for _, pos := range positions {
		if pos.Symbol == symbol {
			if pos.Action == types.ActionBuy {
				side = "Sell"
			} else {
				side = "Buy"
			}
			break
		}
	}
	if side == "" {
		return fmt.Errorf("no open position for %s", symbol)
	}

	params := map[string]interface{}{
		"category":   c.category,
		"symbol":     symbol,
		"side":       side,
		"orderType":  "Market",
		"qty":        strconv.FormatFloat(volume, 'f', -1, 64),
		"reduceOnly": true,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return fmt.Errorf("failed to close position: %w", err)
	}
	var orderResult struct {
		OrderID string `json:"orderId"`
	}
	if err := unwrapResult(result, &orderResult); err != nil {
		return fmt.Errorf("failed to parse close response: %w", err)
	}

	c.forgetTicket(ticket)
	return nil
}

// GetPositions lists open positions, optionally filtered by symbol.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]types.Position, error) {
	params := map[string]interface{}{
		"category": c.category,
	}
	if symbol != "" {
		params["symbol"] = symbol
	} else {
		params["settleCoin"] = "USDT"
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	var positionResult struct {
		List []struct {
			Symbol     string `json:"symbol"`
			Side       string `json:"side"`
			Size       string `json:"size"`
			AvgPrice   string `json:"avgPrice"`
			MarkPrice  string `json:"markPrice"`
			UnrealisedPnl string `json:"unrealisedPnl"`
			StopLoss   string `json:"stopLoss"`
			TakeProfit string `json:"takeProfit"`
		} `json:"list"`
	}
	if err := unwrapResult(result, &positionResult); err != nil {
		return nil, fmt.Errorf("failed to parse position response: %w", err)
	}

	var out []types.Position
	for _, pos := range positionResult.List {
		size := parseFloat64(pos.Size)
		if size == 0 {
			continue
		}
		action := types.ActionBuy
		if pos.Side == "Sell" {
			action = types.ActionSell
		}
		out = append(out, types.Position{
			Symbol:       pos.Symbol,
			Action:       action,
			Volume:       size,
			OpenPrice:    parseFloat64(pos.AvgPrice),
			CurrentPrice: parseFloat64(pos.MarkPrice),
			Profit:       parseFloat64(pos.UnrealisedPnl),
			StopLoss:     parseFloat64(pos.StopLoss),
			TakeProfit:   parseFloat64(pos.TakeProfit),
		})
	}
	return out, nil
}

// OpenPositionCount reports how many positions are currently open.
func (c *Client) OpenPositionCount(ctx context.Context) (int, error) {
	positions, err := c.GetPositions(ctx, "")
	if err != nil {
		return 0, err
	}
	return len(positions), nil
}
