package binance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
	"xgains/internal/infrastructure/exchange"
)

// DefaultWSURL Binance 现货行情 WebSocket 地址
const DefaultWSURL = "wss://stream.binance.com:9443"

var _ port.KlineFeed = (*KlineStream)(nil)

// KlineStream 订阅 <symbol>@kline_1m 组合流，只转发已收盘的 K 线
type KlineStream struct {
	wsURL string
}

// NewKlineStream 创建 K 线订阅
func NewKlineStream(wsURL string) *KlineStream {
	wsURL = strings.TrimSpace(wsURL)
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &KlineStream{wsURL: wsURL}
}

func (s *KlineStream) Name() string { return "binance" }

type klineCombined struct {
	Stream string     `json:"stream"`
	Data   klineEvent `json:"data"`
}

type klineEvent struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Kline  struct {
		OpenTime int64  `json:"t"`
		Interval string `json:"i"`
		Open     string `json:"o"`
		Close    string `json:"c"`
		Closed   bool   `json:"x"`
	} `json:"k"`
}

// Subscribe 返回的 channel 在 ctx 结束后关闭
func (s *KlineStream) Subscribe(ctx context.Context, symbols []string) (<-chan model.Candle, error) {
	wsURL, err := buildKlineURL(s.wsURL, symbols)
	if err != nil {
		return nil, err
	}

	out := make(chan model.Candle, 256)
	go s.run(ctx, wsURL, out)
	return out, nil
}

func buildKlineURL(base string, symbols []string) (string, error) {
	if base == "" {
		return "", errors.New("binance ws_url empty")
	}

	streams := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToLower(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		streams = append(streams, fmt.Sprintf("%s@kline_1m", sym))
	}
	if len(streams) == 0 {
		return "", errors.New("no valid symbols")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

func (s *KlineStream) run(ctx context.Context, wsURL string, out chan<- model.Candle) {
	defer close(out)

	backoff := exchange.InitialBackoff
	helper := &exchange.WSHelper{URL: wsURL}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Warn().Str("feed", s.Name()).Str("url", wsURL).Msg("ws connecting")
		conn, err := helper.DialWS(ctx)
		if err != nil {
			log.Error().Str("feed", s.Name()).Err(err).Msg("ws dial failed")
			if !sleepBackoff(ctx, &backoff) {
				return
			}
			continue
		}

		backoff = exchange.InitialBackoff
		log.Info().Str("feed", s.Name()).Msg("ws connected")

		err = helper.ReadWithPing(ctx, conn, func(b []byte) {
			candle, ok := decodeKline(b)
			if !ok {
				return
			}
			select {
			case out <- candle:
			case <-ctx.Done():
			}
		})
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		log.Warn().Str("feed", s.Name()).Err(err).Msg("ws disconnected, reconnecting")
		if !sleepBackoff(ctx, &backoff) {
			return
		}
	}
}

// decodeKline 解析一条组合流消息，未收盘或格式不对返回 false
func decodeKline(b []byte) (model.Candle, bool) {
	var msg klineCombined
	if err := exchange.ParseJSON(b, &msg); err != nil {
		log.Error().Err(err).Msg("kline message")
		return model.Candle{}, false
	}
	k := msg.Data.Kline
	if msg.Data.Event != "kline" || !k.Closed || msg.Data.Symbol == "" {
		return model.Candle{}, false
	}
	return model.Candle{
		Symbol:   strings.ToUpper(msg.Data.Symbol),
		OpenTime: time.UnixMilli(k.OpenTime).UTC(),
		Open:     parseFloat(k.Open),
		Close:    parseFloat(k.Close),
	}, true
}

func sleepBackoff(ctx context.Context, backoff *time.Duration) bool {
	t := time.NewTimer(*backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
	}
	*backoff = exchange.MinDuration(*backoff*2, exchange.MaxBackoff)
	return true
}
