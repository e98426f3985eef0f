package binance

import (
	"xgains/internal/application/port"
	"xgains/internal/infrastructure/pricefeed"
)

func init() {
	pricefeed.Register("binance", func(wsURL string) port.KlineFeed {
		return NewKlineStream(wsURL)
	})
}
