package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"xgains/internal/application/port"
)

// PairService 同步交易所的交易对列表
type PairService struct {
	repo   port.LedgerRepository
	market port.MarketClient
}

func NewPairService(repo port.LedgerRepository, market port.MarketClient) *PairService {
	return &PairService{repo: repo, market: market}
}

// SyncPairs stores every pair the exchange lists. Pairs already known keep
// their original position so resolver iteration order stays stable.
func (s *PairService) SyncPairs(ctx context.Context) (int, error) {
	pairs, err := s.market.TradingPairs(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range pairs {
		if err := s.repo.AddPair(ctx, p); err != nil {
			return 0, fmt.Errorf("add pair %s: %w", p.Symbol, err)
		}
	}
	log.Info().Int("pairs", len(pairs)).Msg("pairs synced")
	return len(pairs), nil
}
