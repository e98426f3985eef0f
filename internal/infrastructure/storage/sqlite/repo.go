package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"xgains/internal/application/port"
	"xgains/internal/infrastructure/storage"
)

// Repo SQLite 账本存储，同时实现 K 线缓存
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS "transaction" (
  transactionID INTEGER PRIMARY KEY AUTOINCREMENT,
  type          CHARACTER(20),
  refId         INTEGER,
  asset         CHARACTER(20),
  side          CHARACTER(3),
  amount        FLOAT,
  price         FLOAT,
  timestamp     INTEGER,
  UNIQUE(type, refId, side)
);
CREATE INDEX IF NOT EXISTS idx_transaction_ts ON "transaction"(timestamp);

CREATE TABLE IF NOT EXISTS trade (
  tradeID             INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol              CHARACTER(20),
  orderId             INTEGER,
  orderListId         INTEGER,
  clientOrderId       VARCHAR(50),
  price               FLOAT,
  origQty             FLOAT,
  executedQty         FLOAT,
  cummulativeQuoteQty FLOAT,
  status              CHARACTER(20),
  timeInForce         CHARACTER(20),
  type                CHARACTER(20),
  side                CHARACTER(20),
  stopPrice           FLOAT,
  icebergQty          FLOAT,
  time                INTEGER,
  updateTime          INTEGER,
  isWorking           BOOLEAN,
  origQuoteOrderQty   FLOAT,
  UNIQUE(orderId)
);
CREATE INDEX IF NOT EXISTS idx_trade_time ON trade(time);

CREATE TABLE IF NOT EXISTS pair (
  pairID     INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol     CHARACTER(20) NOT NULL,
  baseAsset  CHARACTER(20) NOT NULL,
  quoteAsset CHARACTER(20) NOT NULL,
  UNIQUE(symbol)
);

CREATE TABLE IF NOT EXISTS candle (
  candleID INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol   CHARACTER(20) NOT NULL,
  openTime INTEGER NOT NULL,
  open     FLOAT NOT NULL,
  close    FLOAT NOT NULL,
  UNIQUE(symbol, openTime)
);
`)
	return err
}

// HasTable 表是否存在
func (r *Repo) HasTable(ctx context.Context, table string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// QueryRows 通用分页查询，table 必须先经过 HasTable 校验
func (r *Repo) QueryRows(ctx context.Context, table string, q port.RowQuery) ([]port.Row, error) {
	query := "SELECT * FROM " + storage.QuoteIdent(table)
	var args []any
	if q.ID != nil {
		query += " WHERE " + storage.QuoteIdent(storage.IDColumn(table)) + " = ?"
		args = append(args, *q.ID)
	}
	query += " ORDER BY " + storage.OrderClause(table) + " LIMIT ? OFFSET ?"
	args = append(args, storage.ClampLimit(q.Limit, storage.DefaultMaxRows), max(q.Offset, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	return storage.ScanRows(rows)
}

var _ port.LedgerRepository = (*Repo)(nil)
