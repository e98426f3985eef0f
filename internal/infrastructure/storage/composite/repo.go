package composite

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
)

// CandleCache 按顺序查询多层缓存（内存 → Redis → 数据库）
// 命中后回填前面未命中的层；写入时写所有层
type CandleCache struct {
	layers []port.CandleCache
}

func New(layers ...port.CandleCache) *CandleCache {
	// nil layers are allowed; filter in constructor
	out := make([]port.CandleCache, 0, len(layers))
	for _, l := range layers {
		if l != nil {
			out = append(out, l)
		}
	}
	return &CandleCache{layers: out}
}

func (r *CandleCache) GetCandle(ctx context.Context, symbol string, minute time.Time) (model.Candle, bool, error) {
	for i, layer := range r.layers {
		c, found, err := layer.GetCandle(ctx, symbol, minute)
		if err != nil {
			// 某一层故障不影响其它层
			log.Warn().Err(err).Str("symbol", symbol).Int("layer", i).Msg("candle cache read failed")
			continue
		}
		if !found {
			continue
		}
		for _, upper := range r.layers[:i] {
			if err := upper.PutCandle(ctx, c); err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("candle cache backfill failed")
			}
		}
		return c, true, nil
	}
	return model.Candle{}, false, nil
}

func (r *CandleCache) PutCandle(ctx context.Context, c model.Candle) error {
	var firstErr error
	for _, layer := range r.layers {
		if err := layer.PutCandle(ctx, c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.CandleCache = (*CandleCache)(nil)
