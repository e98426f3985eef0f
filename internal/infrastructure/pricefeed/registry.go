package pricefeed

import (
	"sort"

	"xgains/internal/application/port"

	"github.com/rs/zerolog/log"
)

// Factory 根据 WebSocket 地址创建 K 线源
type Factory func(wsURL string) port.KlineFeed

var registry = make(map[string]Factory)

// Register 由各交易所包的 init() 调用
func Register(exchangeName string, factory Factory) {
	if factory == nil {
		log.Warn().Str("exchange", exchangeName).Msg("invalid kline feed factory")
		return
	}
	if _, exists := registry[exchangeName]; exists {
		log.Warn().Str("exchange", exchangeName).Msg("kline feed factory already registered, overwriting")
	}
	registry[exchangeName] = factory
	log.Debug().Str("exchange", exchangeName).Msg("kline feed factory registered")
}

func Get(exchangeName string) (Factory, bool) {
	factory, ok := registry[exchangeName]
	return factory, ok
}

// Names 已注册的交易所，按名称排序
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
