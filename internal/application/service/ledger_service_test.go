package service

import (
	"context"
	"errors"
	"testing"

	"xgains/internal/application/port"
	"xgains/internal/domain/gains"
	"xgains/internal/domain/model"
	domainsvc "xgains/internal/domain/service"
)

func newLedgerFixture() (*LedgerService, *mockRepository) {
	repo := newMockRepository()
	svc := NewLedgerService(
		map[string]port.LedgerRepository{"binance": repo},
		domainsvc.NewLedgerReconciler(gains.NewFIFO()),
		"EUR",
		1000,
	)
	return svc, repo
}

func TestLedgerQueryUnknownEndpointAndTable(t *testing.T) {
	svc, repo := newLedgerFixture()
	repo.tables["trade"] = nil

	if _, err := svc.Query(context.Background(), "kraken", "trade", port.RowQuery{}); !errors.Is(err, ErrEndpointNotFound) {
		t.Errorf("expected ErrEndpointNotFound, got %v", err)
	}
	if _, err := svc.Query(context.Background(), "binance", "nope", port.RowQuery{}); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestLedgerQueryClampsLimit(t *testing.T) {
	svc, repo := newLedgerFixture()
	repo.tables["trade"] = []port.Row{{"tradeID": int64(1)}}

	if _, err := svc.Query(context.Background(), "binance", "trade", port.RowQuery{Limit: 2000, Offset: -3}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if repo.lastQuery.Limit != 1000 || repo.lastQuery.Offset != 0 {
		t.Errorf("expected limit 1000 offset 0, got %+v", repo.lastQuery)
	}

	if _, err := svc.Query(context.Background(), "binance", "trade", port.RowQuery{}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if repo.lastQuery.Limit != 1000 {
		t.Errorf("missing limit must default to max rows, got %d", repo.lastQuery.Limit)
	}
}

func TestLedgerQueryRawRowsForOtherTables(t *testing.T) {
	svc, repo := newLedgerFixture()
	repo.tables["pair"] = []port.Row{{"symbol": "BTCEUR"}}

	res, err := svc.Query(context.Background(), "binance", "pair", port.RowQuery{Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	rows, ok := res.([]port.Row)
	if !ok || len(rows) != 1 {
		t.Fatalf("expected raw rows, got %#v", res)
	}
}

func TestLedgerQueryTransactionIncludesWindowedGains(t *testing.T) {
	svc, repo := newLedgerFixture()
	ctx := context.Background()
	for _, tx := range []model.Transaction{
		{Type: "b", RefID: 1, Asset: "BTC", Side: model.SideIn, Amount: 1, Price: 10, Timestamp: 100},
		{Type: "b", RefID: 1, Asset: "EUR", Side: model.SideOut, Amount: 10, Price: 1, Timestamp: 100},
		{Type: "s", RefID: 0, Asset: "BTC", Side: model.SideOut, Amount: 0.5, Price: 20, Timestamp: 200},
		{Type: "s", RefID: 1, Asset: "BTC", Side: model.SideOut, Amount: 1, Price: 30, Timestamp: 300},
	} {
		tx := tx
		_, _ = repo.AddTransaction(ctx, &tx)
	}
	// 请求窗口只包含最后一笔卖出
	repo.tables["transaction"] = []port.Row{{"transactionID": int64(4), "timestamp": int64(300), "asset": "BTC"}}

	res, err := svc.Query(ctx, "binance", "transaction", port.RowQuery{Limit: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	view, ok := res.(*TransactionView)
	if !ok {
		t.Fatalf("expected TransactionView, got %T", res)
	}
	if len(view.Transactions) != 1 {
		t.Errorf("expected 1 row, got %d", len(view.Transactions))
	}
	if len(view.Gains) == 0 {
		t.Fatal("expected gains for the sale at 300")
	}
	for _, g := range view.Gains {
		if g.Sale.Date.UnixMilli() != 300 {
			t.Errorf("gain outside window: %+v", g)
		}
		if g.Symbol == "EUR" {
			t.Error("fiat must not enter the reconciled history")
		}
	}
	if len(view.Costs) != 1 || view.Costs[0].Date.UnixMilli() != 300 {
		t.Fatalf("expected one cost basis at 300, got %+v", view.Costs)
	}
}
