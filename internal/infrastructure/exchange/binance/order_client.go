package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
	"xgains/internal/infrastructure/exchange"
)

var _ port.OrderHistoryClient = (*APIClient)(nil)

// orderResponse allOrders 单条记录，数值字段是字符串
type orderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	OrderListID         int64  `json:"orderListId"`
	ClientOrderID       string `json:"clientOrderId"`
	Price               string `json:"price"`
	OrigQty             string `json:"origQty"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	TimeInForce         string `json:"timeInForce"`
	Type                string `json:"type"`
	Side                string `json:"side"`
	StopPrice           string `json:"stopPrice"`
	IcebergQty          string `json:"icebergQty"`
	Time                int64  `json:"time"`
	UpdateTime          int64  `json:"updateTime"`
	IsWorking           bool   `json:"isWorking"`
	OrigQuoteOrderQty   string `json:"origQuoteOrderQty"`
}

func (o orderResponse) toTrade() model.Trade {
	return model.Trade{
		Symbol:              o.Symbol,
		OrderID:             o.OrderID,
		OrderListID:         o.OrderListID,
		ClientOrderID:       o.ClientOrderID,
		Price:               parseFloat(o.Price),
		OrigQty:             parseFloat(o.OrigQty),
		ExecutedQty:         parseFloat(o.ExecutedQty),
		CummulativeQuoteQty: parseFloat(o.CummulativeQuoteQty),
		Status:              o.Status,
		TimeInForce:         o.TimeInForce,
		Type:                o.Type,
		Side:                o.Side,
		StopPrice:           parseFloat(o.StopPrice),
		IcebergQty:          parseFloat(o.IcebergQty),
		Time:                o.Time,
		UpdateTime:          o.UpdateTime,
		IsWorking:           o.IsWorking,
		OrigQuoteOrderQty:   parseFloat(o.OrigQuoteOrderQty),
	}
}

// AllOrders 获取某交易对全部订单（GET /api/v3/allOrders，需要签名）
func (c *APIClient) AllOrders(ctx context.Context, symbol string) ([]model.Trade, error) {
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(symbol))

	body, err := c.signedRequest(ctx, http.MethodGet, "/api/v3/allOrders", params)
	if err != nil {
		return nil, fmt.Errorf("allOrders %s: %w", symbol, err)
	}

	var orders []orderResponse
	if err := exchange.ParseJSON(body, &orders); err != nil {
		return nil, fmt.Errorf("allOrders %s: %w", symbol, err)
	}

	trades := make([]model.Trade, 0, len(orders))
	for _, o := range orders {
		trades = append(trades, o.toTrade())
	}
	return trades, nil
}
