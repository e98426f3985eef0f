package model

import "time"

// Side 账本方向
type Side string

const (
	SideIn  Side = "IN"
	SideOut Side = "OUT"
)

// OperationType FIFO 引擎使用的操作类型
type OperationType string

const (
	OperationBuy  OperationType = "BUY"
	OperationSell OperationType = "SELL"
)

// Transaction 账本中的一行（由导入产生，之后不再修改）
// (Type, RefID, Side) 是自然键
type Transaction struct {
	ID        int64   `json:"transactionID"`
	Type      string  `json:"type"`  // 批次/来源标识，如 BuyHistory.csv
	RefID     int64   `json:"refId"` // 批次内行号
	Asset     string  `json:"asset"`
	Side      Side    `json:"side"`
	Amount    float64 `json:"amount"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix ms
}

// Operation converts the row into the in-memory FIFO operation.
func (t Transaction) Operation() Operation {
	op := Operation{
		Symbol: t.Asset,
		Type:   OperationSell,
		Amount: t.Amount,
		Price:  t.Price,
		Date:   time.UnixMilli(t.Timestamp).UTC(),
	}
	if t.Side == SideIn {
		op.Type = OperationBuy
	}
	return op
}

// TradingPair 已知的交易对
type TradingPair struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

// Has reports whether asset is one of the two legs.
func (p TradingPair) Has(asset string) bool {
	return p.BaseAsset == asset || p.QuoteAsset == asset
}

// Other returns the leg that is not asset.
func (p TradingPair) Other(asset string) string {
	if p.BaseAsset == asset {
		return p.QuoteAsset
	}
	return p.BaseAsset
}

// Operation 派生的 FIFO 操作，只存在于一次收益计算中
type Operation struct {
	Symbol    string        `json:"symbol"`
	Type      OperationType `json:"type"`
	Amount    float64       `json:"amount"`
	Price     float64       `json:"price"`
	Date      time.Time     `json:"date"`
	Synthetic bool          `json:"synthetic,omitempty"` // 补录的零成本买入
}

// Candle 一分钟 K 线
type Candle struct {
	Symbol   string    `json:"symbol"`
	OpenTime time.Time `json:"openTime"`
	Open     float64   `json:"open"`
	Close    float64   `json:"close"`
}

// Mid 返回开盘与收盘的均价
func (c Candle) Mid() float64 {
	return (c.Open + c.Close) / 2
}

// Trade 交易所订单镜像（字段名沿用交易所 API）
type Trade struct {
	ID                  int64   `json:"tradeID"`
	Symbol              string  `json:"symbol"`
	OrderID             int64   `json:"orderId"`
	OrderListID         int64   `json:"orderListId"`
	ClientOrderID       string  `json:"clientOrderId"`
	Price               float64 `json:"price"`
	OrigQty             float64 `json:"origQty"`
	ExecutedQty         float64 `json:"executedQty"`
	CummulativeQuoteQty float64 `json:"cummulativeQuoteQty"`
	Status              string  `json:"status"`
	TimeInForce         string  `json:"timeInForce"`
	Type                string  `json:"type"`
	Side                string  `json:"side"`
	StopPrice           float64 `json:"stopPrice"`
	IcebergQty          float64 `json:"icebergQty"`
	Time                int64   `json:"time"`
	UpdateTime          int64   `json:"updateTime"`
	IsWorking           bool    `json:"isWorking"`
	OrigQuoteOrderQty   float64 `json:"origQuoteOrderQty"`
}

// OperationRef 收益记录里引用的一次买入或卖出
type OperationRef struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// CapitalGain 一次卖出与一个买入批次的匹配结果
type CapitalGain struct {
	Symbol   string       `json:"symbol"`
	Amount   float64      `json:"amount"`
	Purchase OperationRef `json:"purchase"`
	Sale     OperationRef `json:"sale"`
	Gain     float64      `json:"gain"`
}

// CostBasis 一次卖出消耗的批次成本
type CostBasis struct {
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	Cost      float64   `json:"cost"`
	UnitCost  float64   `json:"unitCost"`
	SalePrice float64   `json:"salePrice"`
}
