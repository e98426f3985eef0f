package service

import (
	"context"
	"errors"
	"time"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
)

type txKey struct {
	typ   string
	refID int64
	side  model.Side
}

type mockRepository struct {
	txs    []model.Transaction
	seen   map[txKey]bool
	trades []model.Trade
	pairs  []model.TradingPair
	tables map[string][]port.Row

	lastQuery port.RowQuery
	failPairs bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{seen: make(map[txKey]bool), tables: make(map[string][]port.Row)}
}

func (m *mockRepository) AddTransaction(_ context.Context, tx *model.Transaction) (bool, error) {
	k := txKey{tx.Type, tx.RefID, tx.Side}
	if m.seen[k] {
		return false, nil
	}
	m.seen[k] = true
	tx.ID = int64(len(m.txs) + 1)
	m.txs = append(m.txs, *tx)
	return true, nil
}

func (m *mockRepository) ListTransactions(_ context.Context, excludeAsset string) ([]model.Transaction, error) {
	out := make([]model.Transaction, 0, len(m.txs))
	for _, t := range m.txs {
		if t.Asset != excludeAsset {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockRepository) AddTrade(_ context.Context, t *model.Trade) (bool, error) {
	for _, existing := range m.trades {
		if existing.OrderID == t.OrderID {
			return false, nil
		}
	}
	m.trades = append(m.trades, *t)
	return true, nil
}

func (m *mockRepository) ListTrades(context.Context) ([]model.Trade, error) { return m.trades, nil }

func (m *mockRepository) AddPair(_ context.Context, p model.TradingPair) error {
	for _, existing := range m.pairs {
		if existing.Symbol == p.Symbol {
			return nil
		}
	}
	m.pairs = append(m.pairs, p)
	return nil
}

func (m *mockRepository) ListPairs(context.Context) ([]model.TradingPair, error) {
	if m.failPairs {
		return nil, errors.New("db down")
	}
	return m.pairs, nil
}

func (m *mockRepository) HasTable(_ context.Context, table string) (bool, error) {
	_, ok := m.tables[table]
	return ok, nil
}

func (m *mockRepository) QueryRows(_ context.Context, table string, q port.RowQuery) ([]port.Row, error) {
	m.lastQuery = q
	rows := m.tables[table]
	if q.Offset >= len(rows) {
		return []port.Row{}, nil
	}
	rows = rows[q.Offset:]
	if q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (m *mockRepository) Close() error { return nil }

var _ port.LedgerRepository = (*mockRepository)(nil)

// fixedCandles 按 symbol 返回固定 K 线，并记录调用
type fixedCandles struct {
	mids  map[string][2]float64
	calls []string
}

func (f *fixedCandles) FetchCandle(_ context.Context, symbol string, minute time.Time) (model.Candle, bool, error) {
	f.calls = append(f.calls, symbol)
	oc, ok := f.mids[symbol]
	if !ok {
		return model.Candle{}, false, nil
	}
	return model.Candle{Symbol: symbol, OpenTime: minute.UTC().Truncate(time.Minute), Open: oc[0], Close: oc[1]}, true, nil
}

// Candle lets fixedCandles stand in for the domain candle source directly.
func (f *fixedCandles) Candle(ctx context.Context, symbol string, minute time.Time) (model.Candle, bool, error) {
	return f.FetchCandle(ctx, symbol, minute)
}
