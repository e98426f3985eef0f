package sqlite

import (
	"context"

	"xgains/internal/domain/model"
)

// AddTransaction INSERT OR IGNORE，自然键 (type, refId, side) 冲突时返回 false
func (r *Repo) AddTransaction(ctx context.Context, tx *model.Transaction) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO "transaction"(type, refId, asset, side, amount, price, timestamp)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, tx.Type, tx.RefID, tx.Asset, string(tx.Side), tx.Amount, tx.Price, tx.Timestamp)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		if id, err := res.LastInsertId(); err == nil {
			tx.ID = id
		}
	}
	return n > 0, nil
}

// ListTransactions 按时间升序返回全部流水，跳过 excludeAsset
func (r *Repo) ListTransactions(ctx context.Context, excludeAsset string) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT transactionID, type, refId, asset, side, amount, price, timestamp
		FROM "transaction"
		WHERE asset != ?
		ORDER BY timestamp ASC, transactionID ASC
	`, excludeAsset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Transaction, 0)
	for rows.Next() {
		var t model.Transaction
		var side string
		if err := rows.Scan(&t.ID, &t.Type, &t.RefID, &t.Asset, &side, &t.Amount, &t.Price, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Side = model.Side(side)
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddTrade INSERT OR IGNORE，orderId 唯一
func (r *Repo) AddTrade(ctx context.Context, t *model.Trade) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO trade(
			symbol, orderId, orderListId, clientOrderId, price, origQty, executedQty,
			cummulativeQuoteQty, status, timeInForce, type, side, stopPrice, icebergQty,
			time, updateTime, isWorking, origQuoteOrderQty
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Symbol, t.OrderID, t.OrderListID, t.ClientOrderID, t.Price, t.OrigQty, t.ExecutedQty,
		t.CummulativeQuoteQty, t.Status, t.TimeInForce, t.Type, t.Side, t.StopPrice, t.IcebergQty,
		t.Time, t.UpdateTime, t.IsWorking, t.OrigQuoteOrderQty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		if id, err := res.LastInsertId(); err == nil {
			t.ID = id
		}
	}
	return n > 0, nil
}

// ListTrades 按成交时间升序
func (r *Repo) ListTrades(ctx context.Context) ([]model.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tradeID, symbol, orderId, orderListId, clientOrderId, price, origQty, executedQty,
		       cummulativeQuoteQty, status, timeInForce, type, side, stopPrice, icebergQty,
		       time, updateTime, isWorking, origQuoteOrderQty
		FROM trade
		ORDER BY time ASC, tradeID ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Trade, 0)
	for rows.Next() {
		var t model.Trade
		if err := rows.Scan(&t.ID, &t.Symbol, &t.OrderID, &t.OrderListID, &t.ClientOrderID, &t.Price,
			&t.OrigQty, &t.ExecutedQty, &t.CummulativeQuoteQty, &t.Status, &t.TimeInForce, &t.Type,
			&t.Side, &t.StopPrice, &t.IcebergQty, &t.Time, &t.UpdateTime, &t.IsWorking,
			&t.OrigQuoteOrderQty); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddPair 已存在的交易对保持原来的发现顺序
func (r *Repo) AddPair(ctx context.Context, p model.TradingPair) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO pair(symbol, baseAsset, quoteAsset) VALUES(?, ?, ?)
	`, p.Symbol, p.BaseAsset, p.QuoteAsset)
	return err
}

// ListPairs 按发现顺序返回
func (r *Repo) ListPairs(ctx context.Context) ([]model.TradingPair, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, baseAsset, quoteAsset FROM pair ORDER BY pairID ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TradingPair, 0)
	for rows.Next() {
		var p model.TradingPair
		if err := rows.Scan(&p.Symbol, &p.BaseAsset, &p.QuoteAsset); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
