package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"xgains/internal/domain/model"
)

// CandleSource 查询某交易对在某一分钟的 K 线
// found=false 表示该分钟没有 K 线；err 表示查询失败（网络、限流耗尽等）
type CandleSource interface {
	Candle(ctx context.Context, symbol string, minute time.Time) (candle model.Candle, found bool, err error)
}

// PriceResolver 把任意资产在任意历史时刻折算成法币价格
//
// Pairs are scanned in the order they are given and the first path that
// prices successfully wins. This is a first-match policy, not best-price:
// a later pair is never queried once an earlier one has produced a price.
type PriceResolver struct {
	fiat   string
	source CandleSource
}

// NewPriceResolver 创建价格解析器
func NewPriceResolver(fiat string, source CandleSource) *PriceResolver {
	return &PriceResolver{fiat: fiat, source: source}
}

// Fiat 返回计价法币
func (r *PriceResolver) Fiat() string { return r.fiat }

// Resolve returns the fiat price of one unit of asset at ts. ok is false
// when no direct or one-hop path through pairs could be priced; callers
// must skip in that case and never substitute zero.
func (r *PriceResolver) Resolve(ctx context.Context, asset string, ts time.Time, pairs []model.TradingPair) (float64, bool) {
	if asset == r.fiat {
		return 1, true
	}
	minute := SnapToMinute(ts)
	fiatPairs := r.fiatPairs(pairs)

	if price, ok := r.direct(ctx, asset, minute, fiatPairs); ok {
		return price, true
	}

	log.Debug().Str("asset", asset).Msg("no direct fiat pair, trying transitory assets")
	for _, fp := range fiatPairs {
		transitory := fp.Other(r.fiat)
		if transitory == asset {
			continue
		}
		bridge, found := findPair(pairs, asset, transitory)
		if !found {
			continue
		}
		priceInX, ok := r.legPrice(ctx, asset, bridge, minute)
		if !ok {
			continue
		}
		for _, xp := range fiatPairs {
			switch transitory {
			case xp.QuoteAsset:
				// fiat/X：X 的价格要倒数
				p, ok := r.mid(ctx, r.fiat+transitory, minute)
				if !ok {
					continue
				}
				return priceInX / p, true
			case xp.BaseAsset:
				p, ok := r.mid(ctx, transitory+r.fiat, minute)
				if !ok {
					continue
				}
				return priceInX * p, true
			}
		}
	}

	log.Info().Str("asset", asset).Time("at", minute).Msg("no price found")
	return 0, false
}

// direct 直接用法币交易对定价
func (r *PriceResolver) direct(ctx context.Context, asset string, minute time.Time, fiatPairs []model.TradingPair) (float64, bool) {
	for _, fp := range fiatPairs {
		if !fp.Has(asset) {
			continue
		}
		if p, ok := r.legPrice(ctx, asset, fp, minute); ok {
			return p, true
		}
	}
	return 0, false
}

// legPrice prices asset in units of the other leg of pair.
func (r *PriceResolver) legPrice(ctx context.Context, asset string, pair model.TradingPair, minute time.Time) (float64, bool) {
	switch asset {
	case pair.BaseAsset:
		return r.mid(ctx, pair.BaseAsset+pair.QuoteAsset, minute)
	case pair.QuoteAsset:
		p, ok := r.mid(ctx, pair.BaseAsset+pair.QuoteAsset, minute)
		if !ok {
			return 0, false
		}
		return 1 / p, true
	}
	return 0, false
}

func (r *PriceResolver) mid(ctx context.Context, symbol string, minute time.Time) (float64, bool) {
	log.Debug().Str("pair", symbol).Time("minute", minute).Msg("requesting pair")
	c, found, err := r.source.Candle(ctx, symbol, minute)
	if err != nil {
		log.Warn().Err(err).Str("pair", symbol).Msg("candle lookup failed")
		return 0, false
	}
	if !found {
		log.Debug().Str("pair", symbol).Msg("no candle found")
		return 0, false
	}
	p := c.Mid()
	if p <= 0 {
		return 0, false
	}
	return p, true
}

func (r *PriceResolver) fiatPairs(pairs []model.TradingPair) []model.TradingPair {
	out := make([]model.TradingPair, 0, len(pairs))
	for _, p := range pairs {
		if p.Has(r.fiat) {
			out = append(out, p)
		}
	}
	return out
}

func findPair(pairs []model.TradingPair, a, b string) (model.TradingPair, bool) {
	for _, p := range pairs {
		if (p.BaseAsset == a && p.QuoteAsset == b) || (p.BaseAsset == b && p.QuoteAsset == a) {
			return p, true
		}
	}
	return model.TradingPair{}, false
}

// SnapToMinute 向下取整到分钟起点（UTC）
func SnapToMinute(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Minute)
}
