package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/quantbridge/mt5-bridge/pkg/types"
)

// intervalFor maps MT-style timeframe names to Bybit kline intervals.
var intervalFor = map[string]string{
	"M1":  "1",
	"M5":  "5",
	"M15": "15",
	"M30": "30",
	"H1":  "60",
	"H4":  "240",
	"D1":  "D",
}

// GetRates fetches count candles for the symbol, oldest first. Bybit
// returns klines newest first; the series is reversed before returning.
func (c *Client) GetRates(ctx context.Context, symbol, timeframe string, count int) ([]types.Candle, error) {
	interval, ok := intervalFor[timeframe]
	if !ok {
		return nil, fmt.Errorf("unknown timeframe %q", timeframe)
	}
	if count <= 0 {
		count = 200
	}
	if count > 1000 {
		count = 1000
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
		"interval": interval,
		"limit":    count,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	candles, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kline response: %w", err)
	}
	return candles, nil
}

// GetSymbolTick returns the current quote for the symbol.
func (c *Client) GetSymbolTick(ctx context.Context, symbol string) (*types.Tick, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker: %w", err)
	}

	tick, err := parseTickerResponse(result, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ticker response: %w", err)
	}
	return tick, nil
}

func unwrapResult(response interface{}, out interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(resultBytes, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

func parseKlineResponse(response interface{}) ([]types.Candle, error) {
	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := unwrapResult(response, &klineResult); err != nil {
		return nil, err
	}

	var candles []types.Candle
	for _, item := range klineResult.List {
		if len(item) < 6 {
			continue
		}
		// Bybit kline format: [startTime, open, high, low, close, volume, turnover]
		candles = append(candles, types.Candle{
			Time:   parseInt64(item[0]) / 1000,
			Open:   parseFloat64(item[1]),
			High:   parseFloat64(item[2]),
			Low:    parseFloat64(item[3]),
			Close:  parseFloat64(item[4]),
			Volume: int64(parseFloat64(item[5])),
		})
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Time < candles[j].Time })
	return candles, nil
}

func parseTickerResponse(response interface{}, symbol string) (*types.Tick, error) {
	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol    string `json:"symbol"`
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := unwrapResult(response, &tickerResult); err != nil {
		return nil, err
	}
	if len(tickerResult.List) == 0 {
		return nil, fmt.Errorf("no ticker data for %s", symbol)
	}

	t := tickerResult.List[0]
	bid := parseFloat64(t.Bid1Price)
	ask := parseFloat64(t.Ask1Price)
	return &types.Tick{
		Symbol: symbol,
		Bid:    bid,
		Ask:    ask,
		Spread: int((ask - bid) / types.PipSize),
	}, nil
}
