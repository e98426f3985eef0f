package service

import (
	"context"
	"errors"
	"testing"

	"xgains/internal/domain/model"
	domainsvc "xgains/internal/domain/service"
)

type fakeOrders struct {
	bySymbol map[string][]model.Trade
	err      error
}

func (f *fakeOrders) AllOrders(_ context.Context, symbol string) ([]model.Trade, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bySymbol[symbol], nil
}

type fakeMarket struct {
	pairs []model.TradingPair
}

func (f *fakeMarket) TradingPairs(context.Context) ([]model.TradingPair, error) { return f.pairs, nil }

func tradeFixture() (*TradeService, *mockRepository, *fakeOrders) {
	repo := newMockRepository()
	repo.pairs = []model.TradingPair{
		{Symbol: "ETHBTC", BaseAsset: "ETH", QuoteAsset: "BTC"},
		{Symbol: "BTCEUR", BaseAsset: "BTC", QuoteAsset: "EUR"},
	}
	candles := &fixedCandles{mids: map[string][2]float64{
		"BTCEUR": {40000, 40000},
		"ETHBTC": {0.05, 0.05},
	}}
	orders := &fakeOrders{bySymbol: map[string][]model.Trade{
		"ETHBTC": {
			{Symbol: "ETHBTC", OrderID: 1, Side: "BUY", ExecutedQty: 2, CummulativeQuoteQty: 0.1, Time: 1_600_000_000_000},
			{Symbol: "ETHBTC", OrderID: 2, Side: "SELL", ExecutedQty: 1, CummulativeQuoteQty: 0.05, Time: 1_600_000_060_000},
			{Symbol: "ETHBTC", OrderID: 3, Side: "BUY", ExecutedQty: 0, Status: "CANCELED", Time: 1_600_000_120_000},
		},
	}}
	return NewTradeService(repo, orders, domainsvc.NewPriceResolver("EUR", candles)), repo, orders
}

func TestSyncTradesMirrorsAndConverts(t *testing.T) {
	svc, repo, _ := tradeFixture()

	report, err := svc.SyncTrades(context.Background(), []string{"ethbtc", " "})
	if err != nil {
		t.Fatalf("SyncTrades: %v", err)
	}
	if report.Fetched != 3 || report.NewTrades != 3 || report.Converted != 2 || report.Unpriced != 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if len(repo.txs) != 4 {
		t.Fatalf("expected 4 ledger legs, got %d: %+v", len(repo.txs), repo.txs)
	}

	buyBase, buyQuote := repo.txs[0], repo.txs[1]
	if buyBase.Asset != "ETH" || buyBase.Side != model.SideIn || buyBase.Amount != 2 || buyBase.Price != 2000 {
		t.Errorf("unexpected base leg %+v", buyBase)
	}
	if buyQuote.Asset != "BTC" || buyQuote.Side != model.SideOut || buyQuote.Amount != 0.1 || buyQuote.Price != 40000 {
		t.Errorf("unexpected quote leg %+v", buyQuote)
	}
	if buyBase.Type != TradeTransactionType || buyBase.RefID != 1 {
		t.Errorf("unexpected identity %+v", buyBase)
	}

	sellBase := repo.txs[2]
	if sellBase.Side != model.SideOut || sellBase.RefID != 2 {
		t.Errorf("sell must move base out, got %+v", sellBase)
	}

	// 再次同步不会重复
	again, err := svc.SyncTrades(context.Background(), []string{"ETHBTC"})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if again.NewTrades != 0 || again.Converted != 0 || len(repo.txs) != 4 {
		t.Errorf("second sync must be idempotent: %+v, %d legs", again, len(repo.txs))
	}
}

func TestConvertTradesSkipsUnpriced(t *testing.T) {
	repo := newMockRepository()
	repo.pairs = []model.TradingPair{{Symbol: "XYZABC", BaseAsset: "XYZ", QuoteAsset: "ABC"}}
	repo.trades = []model.Trade{
		{Symbol: "XYZABC", OrderID: 9, Side: "BUY", ExecutedQty: 1, CummulativeQuoteQty: 1, Time: 1},
		{Symbol: "UNKNOWN", OrderID: 10, Side: "BUY", ExecutedQty: 1, CummulativeQuoteQty: 1, Time: 1},
	}
	svc := NewTradeService(repo, &fakeOrders{}, domainsvc.NewPriceResolver("EUR", &fixedCandles{}))

	converted, unpriced, err := svc.ConvertTrades(context.Background())
	if err != nil {
		t.Fatalf("ConvertTrades: %v", err)
	}
	if converted != 0 || unpriced != 2 || len(repo.txs) != 0 {
		t.Errorf("expected nothing converted, got converted=%d unpriced=%d txs=%d", converted, unpriced, len(repo.txs))
	}
}

func TestSyncTradesPropagatesClientError(t *testing.T) {
	svc, _, orders := tradeFixture()
	orders.err = errors.New("signature invalid")
	if _, err := svc.SyncTrades(context.Background(), []string{"ETHBTC"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSyncPairsKeepsDiscoveryOrder(t *testing.T) {
	repo := newMockRepository()
	repo.pairs = []model.TradingPair{{Symbol: "BTCEUR", BaseAsset: "BTC", QuoteAsset: "EUR"}}
	market := &fakeMarket{pairs: []model.TradingPair{
		{Symbol: "ETHBTC", BaseAsset: "ETH", QuoteAsset: "BTC"},
		{Symbol: "BTCEUR", BaseAsset: "BTC", QuoteAsset: "EUR"},
	}}

	n, err := NewPairService(repo, market).SyncPairs(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("SyncPairs: n=%d err=%v", n, err)
	}
	if len(repo.pairs) != 2 || repo.pairs[0].Symbol != "BTCEUR" || repo.pairs[1].Symbol != "ETHBTC" {
		t.Errorf("existing pairs must keep their position: %+v", repo.pairs)
	}
}
