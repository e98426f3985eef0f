package service

import (
	"context"
	"errors"
	"fmt"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
	domainsvc "xgains/internal/domain/service"
)

var (
	// ErrEndpointNotFound 未注册的数据源
	ErrEndpointNotFound = errors.New("endpoint does not exist")
	// ErrTableNotFound 表不存在
	ErrTableNotFound = errors.New("table does not exist")
)

// TransactionTable 需要附带收益计算的表
const TransactionTable = "transaction"

// TransactionView transaction 表的查询结果
type TransactionView struct {
	Transactions []port.Row          `json:"transactions"`
	Gains        []model.CapitalGain `json:"gains"`
	Costs        []model.CostBasis   `json:"costs"`
}

// LedgerService 处理 /db/{endpoint}/{table} 查询
// endpoints 在启动时构建，之后只读
type LedgerService struct {
	endpoints  map[string]port.LedgerRepository
	reconciler *domainsvc.LedgerReconciler
	fiat       string
	maxRows    int
}

func NewLedgerService(endpoints map[string]port.LedgerRepository, reconciler *domainsvc.LedgerReconciler, fiat string, maxRows int) *LedgerService {
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &LedgerService{
		endpoints:  endpoints,
		reconciler: reconciler,
		fiat:       fiat,
		maxRows:    maxRows,
	}
}

// MaxRows 单次查询行数上限
func (s *LedgerService) MaxRows() int { return s.maxRows }

// Endpoint 按名字查找数据源
func (s *LedgerService) Endpoint(name string) (port.LedgerRepository, error) {
	repo, ok := s.endpoints[name]
	if !ok {
		return nil, ErrEndpointNotFound
	}
	return repo, nil
}

// CheckTable 数据源存在且表存在
func (s *LedgerService) CheckTable(ctx context.Context, endpoint, table string) (port.LedgerRepository, error) {
	repo, err := s.Endpoint(endpoint)
	if err != nil {
		return nil, err
	}
	ok, err := repo.HasTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("check table %s: %w", table, err)
	}
	if !ok {
		return nil, ErrTableNotFound
	}
	return repo, nil
}

// Query returns the raw rows of table, or a TransactionView when table is
// the transaction ledger. q.Limit is clamped to MaxRows.
func (s *LedgerService) Query(ctx context.Context, endpoint, table string, q port.RowQuery) (any, error) {
	repo, err := s.CheckTable(ctx, endpoint, table)
	if err != nil {
		return nil, err
	}
	if q.Limit <= 0 || q.Limit > s.maxRows {
		q.Limit = s.maxRows
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	rows, err := repo.QueryRows(ctx, table, q)
	if err != nil {
		return nil, err
	}
	if table != TransactionTable {
		return rows, nil
	}
	return s.withGains(ctx, repo, rows)
}

func (s *LedgerService) withGains(ctx context.Context, repo port.LedgerRepository, rows []port.Row) (*TransactionView, error) {
	window := make([]int64, 0, len(rows))
	for _, r := range rows {
		if ts, ok := toInt64(r["timestamp"]); ok {
			window = append(window, ts)
		}
	}

	history, err := repo.ListTransactions(ctx, s.fiat)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	rec := s.reconciler.Reconcile(history, window)
	return &TransactionView{
		Transactions: rows,
		Gains:        rec.Gains,
		Costs:        rec.Costs,
	}, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
