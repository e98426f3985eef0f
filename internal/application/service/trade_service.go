package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
	domainsvc "xgains/internal/domain/service"
)

// TradeTransactionType 由交易所订单生成的流水批次名
const TradeTransactionType = "trade"

// TradeReport 同步统计
type TradeReport struct {
	Fetched   int `json:"fetched"`
	NewTrades int `json:"newTrades"`
	Converted int `json:"converted"`
	Unpriced  int `json:"unpriced"`
}

// TradeService 镜像交易所订单并转换成账本流水
type TradeService struct {
	repo     port.LedgerRepository
	client   port.OrderHistoryClient
	resolver *domainsvc.PriceResolver
}

func NewTradeService(repo port.LedgerRepository, client port.OrderHistoryClient, resolver *domainsvc.PriceResolver) *TradeService {
	return &TradeService{repo: repo, client: client, resolver: resolver}
}

// SyncTrades 拉取 symbols 的全部订单写入 trade 表，然后转换成流水
func (s *TradeService) SyncTrades(ctx context.Context, symbols []string) (TradeReport, error) {
	var report TradeReport
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		trades, err := s.client.AllOrders(ctx, sym)
		if err != nil {
			return report, err
		}
		report.Fetched += len(trades)
		for i := range trades {
			inserted, err := s.repo.AddTrade(ctx, &trades[i])
			if err != nil {
				return report, fmt.Errorf("add trade %d: %w", trades[i].OrderID, err)
			}
			if inserted {
				report.NewTrades++
			}
		}
		log.Info().Str("symbol", sym).Int("orders", len(trades)).Msg("orders synced")
	}

	converted, unpriced, err := s.ConvertTrades(ctx)
	report.Converted, report.Unpriced = converted, unpriced
	return report, err
}

// ConvertTrades turns every filled trade into a base leg and a quote leg
// priced in fiat at the trade time. A trade is skipped when either leg has
// no price. Already converted trades are ignored by the natural key.
func (s *TradeService) ConvertTrades(ctx context.Context) (converted, unpriced int, err error) {
	trades, err := s.repo.ListTrades(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list trades: %w", err)
	}
	pairs, err := s.repo.ListPairs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list pairs: %w", err)
	}
	bySymbol := make(map[string]model.TradingPair, len(pairs))
	for _, p := range pairs {
		bySymbol[p.Symbol] = p
	}

	for _, tr := range trades {
		if tr.ExecutedQty <= 0 {
			continue
		}
		pair, ok := bySymbol[tr.Symbol]
		if !ok {
			log.Warn().Str("symbol", tr.Symbol).Int64("order", tr.OrderID).Msg("unknown pair, run sync-pairs first")
			unpriced++
			continue
		}

		legs, ok := s.legs(ctx, tr, pair, pairs)
		if !ok {
			log.Warn().Str("symbol", tr.Symbol).Int64("order", tr.OrderID).Msg("trade skipped, no fiat price")
			unpriced++
			continue
		}
		added := false
		for i := range legs {
			inserted, err := s.repo.AddTransaction(ctx, &legs[i])
			if err != nil {
				return converted, unpriced, fmt.Errorf("add transaction for order %d: %w", tr.OrderID, err)
			}
			added = added || inserted
		}
		if added {
			converted++
		}
	}
	return converted, unpriced, nil
}

// legs BUY: base IN / quote OUT；SELL 相反
func (s *TradeService) legs(ctx context.Context, tr model.Trade, pair model.TradingPair, pairs []model.TradingPair) ([]model.Transaction, bool) {
	at := time.UnixMilli(tr.Time).UTC()
	basePrice, ok := s.resolver.Resolve(ctx, pair.BaseAsset, at, pairs)
	if !ok {
		return nil, false
	}
	quotePrice, ok := s.resolver.Resolve(ctx, pair.QuoteAsset, at, pairs)
	if !ok {
		return nil, false
	}

	baseSide, quoteSide := model.SideIn, model.SideOut
	if strings.EqualFold(tr.Side, "SELL") {
		baseSide, quoteSide = model.SideOut, model.SideIn
	}
	return []model.Transaction{
		{
			Type:      TradeTransactionType,
			RefID:     tr.OrderID,
			Asset:     pair.BaseAsset,
			Side:      baseSide,
			Amount:    tr.ExecutedQty,
			Price:     basePrice,
			Timestamp: tr.Time,
		},
		{
			Type:      TradeTransactionType,
			RefID:     tr.OrderID,
			Asset:     pair.QuoteAsset,
			Side:      quoteSide,
			Amount:    tr.CummulativeQuoteQty,
			Price:     quotePrice,
			Timestamp: tr.Time,
		},
	}, true
}
