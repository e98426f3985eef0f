package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
)

// CandleCache 进程内 K 线缓存，过期时间可配置
type CandleCache struct {
	c *gocache.Cache
}

// New ttl<=0 时使用 15 分钟
func New(ttl time.Duration) *CandleCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CandleCache{c: gocache.New(ttl, 2*ttl)}
}

func cacheKey(symbol string, minute time.Time) string {
	return fmt.Sprintf("%s:%d", strings.ToUpper(symbol), minute.UTC().Truncate(time.Minute).UnixMilli())
}

func (m *CandleCache) GetCandle(_ context.Context, symbol string, minute time.Time) (model.Candle, bool, error) {
	v, ok := m.c.Get(cacheKey(symbol, minute))
	if !ok {
		return model.Candle{}, false, nil
	}
	return v.(model.Candle), true, nil
}

func (m *CandleCache) PutCandle(_ context.Context, candle model.Candle) error {
	m.c.SetDefault(cacheKey(candle.Symbol, candle.OpenTime), candle)
	return nil
}

// Len 当前缓存条目数
func (m *CandleCache) Len() int { return m.c.ItemCount() }

var _ port.CandleCache = (*CandleCache)(nil)
