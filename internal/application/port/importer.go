package port

import (
	"io"

	"xgains/internal/domain/model"
)

// ParseResult 一个导出文件解析后的流水
type ParseResult struct {
	Transactions []model.Transaction
	Skipped      int
}

// StatementParser 把交易所导出的 CSV 转换成账本流水
// batch 写入 Transaction.Type，作为批次标识
type StatementParser interface {
	Parse(r io.Reader, batch string) (ParseResult, error)
}
