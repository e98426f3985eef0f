package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"xgains/internal/application/port"
	"xgains/internal/application/service"
	"xgains/internal/domain/gains"
	"xgains/internal/domain/model"
	domainsvc "xgains/internal/domain/service"
	sqliterepo "xgains/internal/infrastructure/storage/sqlite"
)

type stubPrices struct {
	prices map[string]float64
	asked  time.Time
}

func (s *stubPrices) Fiat() string { return "EUR" }

func (s *stubPrices) PriceAt(_ context.Context, asset string, ts time.Time) (float64, bool, error) {
	s.asked = ts
	px, ok := s.prices[asset]
	return px, ok, nil
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *stubPrices) {
	t.Helper()
	repo, err := sqliterepo.New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	txs := []model.Transaction{
		{Type: "buy", RefID: 1, Asset: "BTC", Side: model.SideIn, Amount: 1, Price: 100, Timestamp: 1000},
		{Type: "sell", RefID: 1, Asset: "BTC", Side: model.SideOut, Amount: 1, Price: 150, Timestamp: 2000},
		{Type: "buy", RefID: 2, Asset: "EUR", Side: model.SideOut, Amount: 100, Price: 1, Timestamp: 1000},
	}
	for i := range txs {
		if _, err := repo.AddTransaction(ctx, &txs[i]); err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
	}
	if err := repo.AddPair(ctx, model.TradingPair{Symbol: "BTCEUR", BaseAsset: "BTC", QuoteAsset: "EUR"}); err != nil {
		t.Fatalf("AddPair: %v", err)
	}

	ledger := service.NewLedgerService(
		map[string]port.LedgerRepository{"main": repo},
		domainsvc.NewLedgerReconciler(gains.NewFIFO()),
		"EUR",
		1000,
	)
	prices := &stubPrices{prices: map[string]float64{"BTC": 40000}}
	srv := httptest.NewServer(NewServer(ledger, prices, opts).Router())
	t.Cleanup(srv.Close)
	return srv, prices
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

type txView struct {
	Transactions []map[string]any  `json:"transactions"`
	Gains        []json.RawMessage `json:"gains"`
	Costs        []json.RawMessage `json:"costs"`
}

func TestTransactionTableIncludesGains(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	var view txView
	if code := getJSON(t, srv.URL+"/db/main/transaction", &view); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(view.Transactions) != 3 {
		t.Errorf("expected 3 rows, got %d", len(view.Transactions))
	}
	if len(view.Gains) != 1 || len(view.Costs) != 1 {
		t.Errorf("expected one gain and one cost, got %d/%d", len(view.Gains), len(view.Costs))
	}
}

func TestTransactionWindowFiltersGains(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	// 第一行是买入，窗口内没有卖出
	var view txView
	if code := getJSON(t, srv.URL+"/db/main/transaction?limit=1", &view); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(view.Transactions) != 1 {
		t.Fatalf("expected 1 row, got %d", len(view.Transactions))
	}
	if len(view.Gains) != 0 || len(view.Costs) != 0 {
		t.Errorf("gains outside the window leaked: %d/%d", len(view.Gains), len(view.Costs))
	}
}

func TestOtherTablesReturnRawRows(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	var rows []map[string]any
	if code := getJSON(t, srv.URL+"/db/main/pair?limit=2000&offset=", &rows); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(rows) != 1 || rows[0]["symbol"] != "BTCEUR" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestIDFilter(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	var view txView
	if code := getJSON(t, srv.URL+"/db/main/transaction?id=2", &view); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(view.Transactions) != 1 || view.Transactions[0]["asset"] != "BTC" {
		t.Errorf("unexpected rows %v", view.Transactions)
	}
}

func TestErrors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	cases := []struct {
		path   string
		status int
		msg    string
	}{
		{"/db/nope/transaction", http.StatusNotFound, "endpoint does not exist"},
		{"/db/main/nope", http.StatusNotFound, "table does not exist"},
		{"/db/main/transaction?id=abc", http.StatusBadRequest, "id is not a number"},
		{"/db/main/transaction?offset=x", http.StatusBadRequest, "offset is not a number"},
		{"/db/main/transaction?limit=1.5", http.StatusBadRequest, "limit is not a number"},
		// endpoint 检查先于参数
		{"/db/nope/transaction?id=abc", http.StatusNotFound, "endpoint does not exist"},
		{"/price/BTC?timestamp=soon", http.StatusBadRequest, "timestamp is not a number"},
		{"/price/DOGE?timestamp=0", http.StatusNotFound, "no price found"},
	}
	for _, tc := range cases {
		var body map[string]string
		code := getJSON(t, srv.URL+tc.path, &body)
		if code != tc.status || body["error"] != tc.msg {
			t.Errorf("%s: got %d %q, want %d %q", tc.path, code, body["error"], tc.status, tc.msg)
		}
	}
}

func TestPrice(t *testing.T) {
	srv, prices := newTestServer(t, Options{})

	var resp priceResponse
	if code := getJSON(t, srv.URL+"/price/btc?timestamp=1614600000000", &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Asset != "BTC" || resp.Price != 40000 || resp.Timestamp != 1614600000000 {
		t.Errorf("unexpected response %+v", resp)
	}
	if prices.asked.UnixMilli() != 1614600000000 {
		t.Errorf("resolver asked for %v", prices.asked)
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	if code := getJSON(t, srv.URL+"/db/main/pair", nil); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := getJSON(t, srv.URL+"/db/main/pair", nil); code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", code)
	}
}

func TestParseRowQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/db/main/transaction?id=7&offset=-3&limit=", nil)
	q, _, ok := parseRowQuery(r)
	if !ok {
		t.Fatal("expected valid query")
	}
	if q.ID == nil || *q.ID != 7 || q.Offset != -3 || q.Limit != 0 {
		t.Errorf("unexpected query %+v", q)
	}
}
