package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
	domainsvc "xgains/internal/domain/service"
)

// CandleSource 先查缓存，未命中再向交易所拉取，并回写缓存
type CandleSource struct {
	cache   port.CandleCache
	fetcher port.CandleFetcher
}

func NewCandleSource(cache port.CandleCache, fetcher port.CandleFetcher) *CandleSource {
	return &CandleSource{cache: cache, fetcher: fetcher}
}

func (s *CandleSource) Candle(ctx context.Context, symbol string, minute time.Time) (model.Candle, bool, error) {
	if s.cache != nil {
		c, found, err := s.cache.GetCandle(ctx, symbol, minute)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("candle cache read failed")
		} else if found {
			return c, true, nil
		}
	}

	if s.fetcher == nil {
		return model.Candle{}, false, nil
	}
	c, found, err := s.fetcher.FetchCandle(ctx, symbol, minute)
	if err != nil || !found {
		return model.Candle{}, false, err
	}

	// 只缓存有效价格，缺失的分钟下次仍会重新查询
	if s.cache != nil && c.Mid() > 0 {
		if err := s.cache.PutCandle(ctx, c); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("candle cache write failed")
		}
	}
	return c, true, nil
}

var _ domainsvc.CandleSource = (*CandleSource)(nil)
