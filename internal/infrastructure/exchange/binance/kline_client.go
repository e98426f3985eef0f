package binance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
	"xgains/internal/infrastructure/exchange"
)

var _ port.CandleFetcher = (*APIClient)(nil)

// FetchCandle 拉取 symbol 在 minute 这一分钟的 1m K 线
//
// GET /api/v3/klines?symbol=&interval=1m&startTime=&limit=1
// found is false when the exchange has no candle opening in that minute.
func (c *APIClient) FetchCandle(ctx context.Context, symbol string, minute time.Time) (model.Candle, bool, error) {
	minute = minute.UTC().Truncate(time.Minute)
	params := url.Values{}
	params.Set("symbol", strings.ToUpper(symbol))
	params.Set("interval", "1m")
	params.Set("startTime", strconv.FormatInt(minute.UnixMilli(), 10))
	params.Set("limit", "1")

	body, err := c.publicRequest(ctx, "/api/v3/klines", params)
	if err != nil {
		return model.Candle{}, false, fmt.Errorf("klines %s: %w", symbol, err)
	}

	var rows [][]any
	if err := exchange.ParseJSON(body, &rows); err != nil {
		return model.Candle{}, false, fmt.Errorf("klines %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		log.Debug().Str("symbol", symbol).Time("minute", minute).Msg("no candle found")
		return model.Candle{}, false, nil
	}

	candle, err := parseKlineRow(symbol, rows[0])
	if err != nil {
		return model.Candle{}, false, fmt.Errorf("klines %s: %w", symbol, err)
	}
	// startTime 之后的第一根可能属于更晚的分钟（停牌、未上市）
	if !candle.OpenTime.Equal(minute) {
		log.Debug().Str("symbol", symbol).Time("minute", minute).Time("open_time", candle.OpenTime).Msg("first candle is outside the minute")
		return model.Candle{}, false, nil
	}
	return candle, true, nil
}

// parseKlineRow [openTime, open, high, low, close, ...]
func parseKlineRow(symbol string, row []any) (model.Candle, error) {
	if len(row) < 5 {
		return model.Candle{}, fmt.Errorf("short kline row: %d fields", len(row))
	}
	openMs, ok := row[0].(float64)
	if !ok {
		return model.Candle{}, fmt.Errorf("bad open time %v", row[0])
	}
	open, ok1 := row[1].(string)
	closePx, ok2 := row[4].(string)
	if !ok1 || !ok2 {
		return model.Candle{}, fmt.Errorf("bad prices %v %v", row[1], row[4])
	}
	return model.Candle{
		Symbol:   strings.ToUpper(symbol),
		OpenTime: time.UnixMilli(int64(openMs)).UTC(),
		Open:     parseFloat(open),
		Close:    parseFloat(closePx),
	}, nil
}
