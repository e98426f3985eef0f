package binance

import (
	"context"
	"fmt"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
	"xgains/internal/infrastructure/exchange"
)

var _ port.MarketClient = (*APIClient)(nil)

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

// TradingPairs 获取交易所全部现货交易对，保持交易所返回的顺序
// 已下架的交易对也保留，历史价格仍然需要它们
func (c *APIClient) TradingPairs(ctx context.Context) ([]model.TradingPair, error) {
	body, err := c.publicRequest(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("exchangeInfo: %w", err)
	}

	var resp exchangeInfoResponse
	if err := exchange.ParseJSON(body, &resp); err != nil {
		return nil, fmt.Errorf("exchangeInfo: %w", err)
	}

	pairs := make([]model.TradingPair, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.BaseAsset == "" || s.QuoteAsset == "" {
			continue
		}
		pairs = append(pairs, model.TradingPair{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
		})
	}
	return pairs, nil
}
