package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"xgains/internal/application/port"
	domainsvc "xgains/internal/domain/service"
)

// PriceService 用仓储里的交易对列表解析历史法币价格
type PriceService struct {
	repo     port.LedgerRepository
	resolver *domainsvc.PriceResolver
}

func NewPriceService(repo port.LedgerRepository, resolver *domainsvc.PriceResolver) *PriceService {
	return &PriceService{repo: repo, resolver: resolver}
}

// Fiat 计价法币
func (s *PriceService) Fiat() string { return s.resolver.Fiat() }

// PriceAt returns the fiat price of asset at ts. found is false when no
// path could be priced; err is only set when the pair list cannot be read.
func (s *PriceService) PriceAt(ctx context.Context, asset string, ts time.Time) (price float64, found bool, err error) {
	pairs, err := s.repo.ListPairs(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("list pairs: %w", err)
	}
	price, found = s.resolver.Resolve(ctx, asset, ts, pairs)
	if !found {
		log.Info().Str("asset", asset).Time("at", ts).Msg("no price found")
	}
	return price, found, nil
}
