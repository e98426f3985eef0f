package port

import (
	"context"

	"xgains/internal/domain/model"
)

// RowQuery 通用表查询参数（/db/{endpoint}/{table}）
type RowQuery struct {
	ID     *int64
	Offset int
	Limit  int
}

// Row 一行原始数据，列名 -> 值
type Row = map[string]any

// LedgerRepository 账本存储
// 同一接口由 SQLite 与 Postgres 实现，HTTP 层按 endpoint 名选择
type LedgerRepository interface {
	// Transactions
	AddTransaction(ctx context.Context, tx *model.Transaction) (inserted bool, err error)
	ListTransactions(ctx context.Context, excludeAsset string) ([]model.Transaction, error)

	// Exchange order mirror
	AddTrade(ctx context.Context, trade *model.Trade) (inserted bool, err error)
	ListTrades(ctx context.Context) ([]model.Trade, error)

	// Known markets, in discovery order
	AddPair(ctx context.Context, pair model.TradingPair) error
	ListPairs(ctx context.Context) ([]model.TradingPair, error)

	// Raw table access
	HasTable(ctx context.Context, table string) (bool, error)
	QueryRows(ctx context.Context, table string, q RowQuery) ([]Row, error)

	// Connection management
	Close() error
}
