package port

import (
	"context"

	"xgains/internal/domain/model"
)

// MarketClient 交易所公共行情接口
type MarketClient interface {
	TradingPairs(ctx context.Context) ([]model.TradingPair, error)
}

// OrderHistoryClient 交易所账户订单历史（需要签名）
type OrderHistoryClient interface {
	AllOrders(ctx context.Context, symbol string) ([]model.Trade, error)
}
