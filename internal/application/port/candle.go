package port

import (
	"context"
	"time"

	"xgains/internal/domain/model"
)

// CandleCache 一分钟 K 线缓存
type CandleCache interface {
	GetCandle(ctx context.Context, symbol string, minute time.Time) (model.Candle, bool, error)
	PutCandle(ctx context.Context, candle model.Candle) error
}

// CandleFetcher 从交易所拉取某一分钟的 K 线
type CandleFetcher interface {
	FetchCandle(ctx context.Context, symbol string, minute time.Time) (model.Candle, bool, error)
}
