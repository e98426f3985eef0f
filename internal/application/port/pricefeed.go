package port

import (
	"context"

	"xgains/internal/domain/model"
)

// KlineFeed 实时 K 线推送，只发送已收盘的一分钟 K 线
type KlineFeed interface {
	Name() string
	Subscribe(ctx context.Context, symbols []string) (<-chan model.Candle, error)
}
