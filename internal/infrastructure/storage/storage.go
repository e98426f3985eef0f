// Package storage holds the pieces shared by the SQL ledger stores.
package storage

import (
	"database/sql"
	"errors"
	"strings"

	"xgains/internal/application/port"
)

// ErrNoStorage 没有可用的存储
var ErrNoStorage = errors.New("no storage configured")

// DefaultMaxRows 通用查询单次最多返回的行数
const DefaultMaxRows = 1000

// Table names
const (
	TableTransaction = "transaction"
	TableTrade       = "trade"
	TablePair        = "pair"
	TableCandle      = "candle"
)

// orderColumns 每张表的时间排序列，未知表按主键排序
var orderColumns = map[string]string{
	TableTransaction: "timestamp",
	TableTrade:       "time",
	TablePair:        "pairID",
	TableCandle:      "openTime",
}

// QuoteIdent quotes a table or column name for SQLite and Postgres.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// IDColumn 行 id 列名，约定为 <table>ID
func IDColumn(table string) string {
	return table + "ID"
}

// OrderClause returns the ORDER BY expression used by the generic row
// query: ascending time, then surrogate key.
func OrderClause(table string) string {
	id := QuoteIdent(IDColumn(table))
	if col, ok := orderColumns[table]; ok && col != IDColumn(table) {
		return QuoteIdent(col) + " ASC, " + id + " ASC"
	}
	return id + " ASC"
}

// ClampLimit 把 limit 限制在 (0, max]
func ClampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

// ScanRows reads every row into a column-name keyed map. Text columns that
// the driver hands back as []byte are converted to string so they encode
// as JSON strings.
func ScanRows(rows *sql.Rows) ([]port.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]port.Row, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(port.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
