package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"xgains/internal/domain/model"
	"xgains/internal/infrastructure/config"
	"xgains/internal/infrastructure/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.App.FiatCurrency = "EUR"
	cfg.App.Ledger = "main"
	cfg.Server.MaxRows = 1000
	cfg.Cache.MemoryTTLMinutes = 15
	cfg.Binance.RestURL = "http://127.0.0.1:1"
	cfg.Binance.MaxRetries = 1
	cfg.Endpoints = []config.Endpoint{
		{Name: "main", Driver: config.DriverSQLite, Path: filepath.Join(dir, "main.db")},
		{Name: "archive", Driver: config.DriverSQLite, Path: filepath.Join(dir, "archive.db")},
	}
	return cfg
}

func TestContainerWithSQLite(t *testing.T) {
	c, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	for _, name := range []string{"main", "archive"} {
		if _, ok := c.Endpoint(name); !ok {
			t.Errorf("expected endpoint %s", name)
		}
	}
	if c.App().Ledger() == nil {
		t.Fatal("expected default ledger")
	}
	if len(c.KlineFeeds()) == 0 {
		t.Error("expected binance kline feed to be registered")
	}
}

func TestCandleCacheReachesLedgerTable(t *testing.T) {
	c, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	minute := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	candle := model.Candle{Symbol: "BTCEUR", OpenTime: minute, Open: 1, Close: 3}
	if err := c.CandleCache().PutCandle(ctx, candle); err != nil {
		t.Fatalf("PutCandle: %v", err)
	}

	repo, _ := c.Endpoint("main")
	store, ok := repo.(interface {
		GetCandle(context.Context, string, time.Time) (model.Candle, bool, error)
	})
	if !ok {
		t.Fatal("sqlite ledger should store candles")
	}
	got, found, err := store.GetCandle(ctx, "BTCEUR", minute)
	if err != nil || !found {
		t.Fatalf("GetCandle: found=%v err=%v", found, err)
	}
	if got.Mid() != 2 {
		t.Errorf("expected mid 2, got %v", got.Mid())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestMissingLedgerIsRejected(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.Ledger = "ghost"
	if _, err := New(cfg); !errors.Is(err, storage.ErrNoStorage) {
		t.Fatalf("expected ErrNoStorage, got %v", err)
	}
}
