package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
	"xgains/internal/infrastructure/storage"
)

// Repo Postgres 账本存储，表结构与 SQLite 一致（列名保留大小写）
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS "transaction" (
  "transactionID" BIGSERIAL PRIMARY KEY,
  "type"          VARCHAR(20),
  "refId"         BIGINT,
  "asset"         VARCHAR(20),
  "side"          VARCHAR(3),
  "amount"        DOUBLE PRECISION,
  "price"         DOUBLE PRECISION,
  "timestamp"     BIGINT,
  UNIQUE("type", "refId", "side")
);
CREATE INDEX IF NOT EXISTS idx_transaction_ts ON "transaction"("timestamp");

CREATE TABLE IF NOT EXISTS "trade" (
  "tradeID"             BIGSERIAL PRIMARY KEY,
  "symbol"              VARCHAR(20),
  "orderId"             BIGINT UNIQUE,
  "orderListId"         BIGINT,
  "clientOrderId"       VARCHAR(50),
  "price"               DOUBLE PRECISION,
  "origQty"             DOUBLE PRECISION,
  "executedQty"         DOUBLE PRECISION,
  "cummulativeQuoteQty" DOUBLE PRECISION,
  "status"              VARCHAR(20),
  "timeInForce"         VARCHAR(20),
  "type"                VARCHAR(20),
  "side"                VARCHAR(20),
  "stopPrice"           DOUBLE PRECISION,
  "icebergQty"          DOUBLE PRECISION,
  "time"                BIGINT,
  "updateTime"          BIGINT,
  "isWorking"           BOOLEAN,
  "origQuoteOrderQty"   DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS "pair" (
  "pairID"     BIGSERIAL PRIMARY KEY,
  "symbol"     VARCHAR(20) NOT NULL UNIQUE,
  "baseAsset"  VARCHAR(20) NOT NULL,
  "quoteAsset" VARCHAR(20) NOT NULL
);

CREATE TABLE IF NOT EXISTS "candle" (
  "candleID" BIGSERIAL PRIMARY KEY,
  "symbol"   VARCHAR(20) NOT NULL,
  "openTime" BIGINT NOT NULL,
  "open"     DOUBLE PRECISION NOT NULL,
  "close"    DOUBLE PRECISION NOT NULL,
  UNIQUE("symbol", "openTime")
);
`)
	return err
}

// AddTransaction ON CONFLICT DO NOTHING
func (r *Repo) AddTransaction(ctx context.Context, tx *model.Transaction) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO "transaction"("type", "refId", "asset", "side", "amount", "price", "timestamp")
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ("type", "refId", "side") DO NOTHING
		RETURNING "transactionID"
	`, tx.Type, tx.RefID, tx.Asset, string(tx.Side), tx.Amount, tx.Price, tx.Timestamp).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	tx.ID = id
	return true, nil
}

func (r *Repo) ListTransactions(ctx context.Context, excludeAsset string) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT "transactionID", "type", "refId", "asset", "side", "amount", "price", "timestamp"
		FROM "transaction"
		WHERE "asset" != $1
		ORDER BY "timestamp" ASC, "transactionID" ASC
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

func (r *Repo) AddTrade(ctx context.Context, t *model.Trade) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO "trade"(
			"symbol", "orderId", "orderListId", "clientOrderId", "price", "origQty", "executedQty",
			"cummulativeQuoteQty", "status", "timeInForce", "type", "side", "stopPrice", "icebergQty",
			"time", "updateTime", "isWorking", "origQuoteOrderQty"
		) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT ("orderId") DO NOTHING
		RETURNING "tradeID"
	`, t.Symbol, t.OrderID, t.OrderListID, t.ClientOrderID, t.Price, t.OrigQty, t.ExecutedQty,
		t.CummulativeQuoteQty, t.Status, t.TimeInForce, t.Type, t.Side, t.StopPrice, t.IcebergQty,
		t.Time, t.UpdateTime, t.IsWorking, t.OrigQuoteOrderQty).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	t.ID = id
	return true, nil
}

func (r *Repo) ListTrades(ctx context.Context) ([]model.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT "tradeID", "symbol", "orderId", "orderListId", "clientOrderId", "price", "origQty",
		       "executedQty", "cummulativeQuoteQty", "status", "timeInForce", "type", "side",
		       "stopPrice", "icebergQty", "time", "updateTime", "isWorking", "origQuoteOrderQty"
		FROM "trade"
		ORDER BY "time" ASC, "tradeID" ASC
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

func (r *Repo) AddPair(ctx context.Context, p model.TradingPair) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO "pair"("symbol", "baseAsset", "quoteAsset") VALUES($1, $2, $3)
		ON CONFLICT ("symbol") DO NOTHING
	`, p.Symbol, p.BaseAsset, p.QuoteAsset)
	return err
}

func (r *Repo) ListPairs(ctx context.Context) ([]model.TradingPair, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT "symbol", "baseAsset", "quoteAsset" FROM "pair" ORDER BY "pairID" ASC`)
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

// HasTable 查询 information_schema
func (r *Repo) HasTable(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`, table).Scan(&exists)
	return exists, err
}

func (r *Repo) QueryRows(ctx context.Context, table string, q port.RowQuery) ([]port.Row, error) {
	query := "SELECT * FROM " + storage.QuoteIdent(table)
	var args []any
	if q.ID != nil {
		args = append(args, *q.ID)
		query += " WHERE " + storage.QuoteIdent(storage.IDColumn(table)) + " = $1"
	}
	args = append(args, storage.ClampLimit(q.Limit, storage.DefaultMaxRows), max(q.Offset, 0))
	query += fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", storage.OrderClause(table), len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	return storage.ScanRows(rows)
}

// GetCandle / PutCandle 让 Postgres 也能作为持久 K 线缓存
func (r *Repo) GetCandle(ctx context.Context, symbol string, minute time.Time) (model.Candle, bool, error) {
	minute = minute.UTC().Truncate(time.Minute)
	c := model.Candle{Symbol: symbol, OpenTime: minute}
	err := r.db.QueryRowContext(ctx,
		`SELECT "open", "close" FROM "candle" WHERE "symbol"=$1 AND "openTime"=$2`, symbol, minute.UnixMilli()).
		Scan(&c.Open, &c.Close)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Candle{}, false, nil
	}
	if err != nil {
		return model.Candle{}, false, err
	}
	return c, true, nil
}

func (r *Repo) PutCandle(ctx context.Context, c model.Candle) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO "candle"("symbol", "openTime", "open", "close") VALUES($1, $2, $3, $4)
		ON CONFLICT ("symbol", "openTime") DO UPDATE SET "open"=EXCLUDED."open", "close"=EXCLUDED."close"
	`, c.Symbol, c.OpenTime.UTC().UnixMilli(), c.Open, c.Close)
	return err
}

var (
	_ port.LedgerRepository = (*Repo)(nil)
	_ port.CandleCache      = (*Repo)(nil)
)
