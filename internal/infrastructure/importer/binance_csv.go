// Package importer parses the Binance "Buy Crypto" and "Sell Crypto"
// history exports into ledger transactions.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
)

var (
	nonNumeric = regexp.MustCompile(`[^\d.-]`)
	assetNoise = regexp.MustCompile(`[\d .-]`)
)

// sellExportOffset 卖出导出的时间比 UTC 慢一小时
const sellExportOffset = time.Hour

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
}

// Formats 已支持的导出格式
const (
	FormatBuy  = "buy"
	FormatSell = "sell"
)

// BuyHistoryParser Buy Crypto 导出：date, _, _, price, _, amountAndAsset, ...
// refId 只在接受的行上递增，从 1 开始
type BuyHistoryParser struct{}

// SellHistoryParser Sell Crypto 导出：date, _, amountAndAsset, price, ...
// refId 为行号（从 0 开始，含表头）
type SellHistoryParser struct{}

// Parsers 按格式名注册
func Parsers() map[string]port.StatementParser {
	return map[string]port.StatementParser{
		FormatBuy:  BuyHistoryParser{},
		FormatSell: SellHistoryParser{},
	}
}

func (BuyHistoryParser) Parse(r io.Reader, batch string) (port.ParseResult, error) {
	records, err := readAll(r)
	if err != nil {
		return port.ParseResult{}, err
	}

	res := port.ParseResult{Transactions: make([]model.Transaction, 0, len(records))}
	refID := int64(1)
	for i, rec := range records {
		if len(rec) < 6 {
			res.Skipped++
			continue
		}
		tx, ok := buildRow(rec[0], rec[5], rec[3], model.SideIn, 0)
		if !ok {
			log.Debug().Str("batch", batch).Int("row", i).Msg("row skipped")
			res.Skipped++
			continue
		}
		tx.Type = batch
		tx.RefID = refID
		res.Transactions = append(res.Transactions, tx)
		refID++
	}
	return res, nil
}

func (SellHistoryParser) Parse(r io.Reader, batch string) (port.ParseResult, error) {
	records, err := readAll(r)
	if err != nil {
		return port.ParseResult{}, err
	}

	res := port.ParseResult{Transactions: make([]model.Transaction, 0, len(records))}
	for i, rec := range records {
		if len(rec) < 4 {
			res.Skipped++
			continue
		}
		tx, ok := buildRow(rec[0], rec[2], rec[3], model.SideOut, sellExportOffset)
		if !ok {
			log.Debug().Str("batch", batch).Int("row", i).Msg("row skipped")
			res.Skipped++
			continue
		}
		tx.Type = batch
		tx.RefID = int64(i)
		res.Transactions = append(res.Transactions, tx)
	}
	return res, nil
}

func readAll(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV records: %w", err)
	}
	return records, nil
}

// buildRow 空数量或空价格的行（含表头）返回 false
func buildRow(date, amountAndAsset, priceField string, side model.Side, offset time.Duration) (model.Transaction, bool) {
	amount, asset := SplitAmountAsset(amountAndAsset)
	priceStr := nonNumeric.ReplaceAllString(priceField, "")
	if amount == "" || priceStr == "" {
		return model.Transaction{}, false
	}
	amt, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return model.Transaction{}, false
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return model.Transaction{}, false
	}
	ts, err := ParseDate(date)
	if err != nil {
		return model.Transaction{}, false
	}
	return model.Transaction{
		Asset:     asset,
		Side:      side,
		Amount:    amt,
		Price:     price,
		Timestamp: ts.Add(offset).UnixMilli(),
	}, true
}

// SplitAmountAsset "0.0123 BTC" -> ("0.0123", "BTC")
func SplitAmountAsset(field string) (amount, asset string) {
	return nonNumeric.ReplaceAllString(field, ""), assetNoise.ReplaceAllString(field, "")
}

// ParseDate 导出里的时间按 UTC 解析
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
