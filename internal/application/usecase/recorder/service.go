package recorder

import (
	"context"
	"errors"
	"time"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"

	"github.com/rs/zerolog/log"
)

type ServiceDeps struct {
	Feeds         []port.KlineFeed
	Symbols       []string
	PrintEveryMin int
	Cache         port.CandleCache
	Sink          port.Sink
	Color         bool
}

// Service 订阅实时 K 线并写入缓存，历史定价时可直接命中
type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter
}

func NewService(deps ServiceDeps) *Service {
	if deps.PrintEveryMin <= 0 {
		deps.PrintEveryMin = 5
	}
	return &Service{
		deps: deps,
		st:   NewState(deps.Symbols),
		fmt:  NewFormatter(deps.Color),
	}
}

// State 当前记录状态
func (s *Service) State() *State { return s.st }

func (s *Service) Run(ctx context.Context) error {
	if len(s.deps.Feeds) == 0 {
		return errors.New("no feeds")
	}
	if len(s.st.Symbols()) == 0 {
		return errors.New("no symbols to record")
	}

	merged := make(chan model.Candle, 256)

	// start feeds
	for _, feed := range s.deps.Feeds {
		ch, err := feed.Subscribe(ctx, s.st.Symbols())
		if err != nil {
			return err
		}
		go func(name string, in <-chan model.Candle) {
			for {
				select {
				case <-ctx.Done():
					return
				case c, ok := <-in:
					if !ok {
						return
					}
					select {
					case merged <- c:
					case <-ctx.Done():
						return
					}
				}
			}
		}(feed.Name(), ch)

		log.Info().Str("feed", feed.Name()).Strs("symbols", s.st.Symbols()).Msg("feed started")
	}

	snapTicker := time.NewTicker(time.Duration(s.deps.PrintEveryMin) * time.Minute)
	defer snapTicker.Stop()

	_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, RenderLive))

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case now := <-snapTicker.C:
			_ = s.deps.Sink.WriteSnapshot(now, s.fmt.Render(s.st, RenderSnapshot))

		case c := <-merged:
			if !s.st.Apply(c) {
				continue
			}
			if c.Mid() > 0 && s.deps.Cache != nil {
				if err := s.deps.Cache.PutCandle(ctx, c); err != nil {
					log.Warn().Err(err).Str("symbol", c.Symbol).Msg("store candle failed")
				}
			}
			_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, RenderLive))
		}
	}
}
