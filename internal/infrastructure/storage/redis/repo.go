package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// CandleCache 多进程共享的 K 线缓存
// Hash: <prefix>:candle:<SYMBOL>, field = openTime(ms) -> json
type CandleCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

type cachedCandle struct {
	Open  float64 `json:"o"`
	Close float64 `json:"c"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *CandleCache {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "xgains"
	}
	return &CandleCache{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *CandleCache) key(symbol string) string {
	return fmt.Sprintf("%s:candle:%s", c.prefix, strings.ToUpper(symbol))
}

func (c *CandleCache) GetCandle(ctx context.Context, symbol string, minute time.Time) (model.Candle, bool, error) {
	minute = minute.UTC().Truncate(time.Minute)
	field := strconv.FormatInt(minute.UnixMilli(), 10)

	raw, err := c.rdb.HGet(ctx, c.key(symbol), field).Result()
	if errors.Is(err, redis.Nil) {
		return model.Candle{}, false, nil
	}
	if err != nil {
		return model.Candle{}, false, err
	}

	var cc cachedCandle
	if err := json.Unmarshal([]byte(raw), &cc); err != nil {
		return model.Candle{}, false, fmt.Errorf("decode candle %s: %w", field, err)
	}
	return model.Candle{Symbol: symbol, OpenTime: minute, Open: cc.Open, Close: cc.Close}, true, nil
}

func (c *CandleCache) PutCandle(ctx context.Context, candle model.Candle) error {
	if candle.Mid() <= 0 {
		return nil
	}
	b, _ := json.Marshal(cachedCandle{Open: candle.Open, Close: candle.Close})
	field := strconv.FormatInt(candle.OpenTime.UTC().UnixMilli(), 10)

	key := c.key(candle.Symbol)
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, field, string(b))
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

var _ port.CandleCache = (*CandleCache)(nil)
