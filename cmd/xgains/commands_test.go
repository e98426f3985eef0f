package main

import (
	"testing"
	"time"
)

func TestParseMoment(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := parseMoment("", now)
	if err != nil || !got.Equal(now) {
		t.Errorf("empty: got %v %v", got, err)
	}

	got, err = parseMoment("1614600000000", now)
	if err != nil || got.UnixMilli() != 1614600000000 {
		t.Errorf("ms: got %v %v", got, err)
	}

	got, err = parseMoment("2021-03-01T12:00:00Z", now)
	if err != nil || !got.Equal(time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("rfc3339: got %v %v", got, err)
	}

	if _, err := parseMoment("yesterday", now); err == nil {
		t.Error("expected error for bad time")
	}
}

func TestBatchName(t *testing.T) {
	if got := batchName("/tmp/exports/BuyHistory.csv"); got != "BuyHistory.csv" {
		t.Errorf("batchName = %q", got)
	}
}

func TestSplitSymbols(t *testing.T) {
	got := splitSymbols(" btceur, ,ETHBTC")
	if len(got) != 2 || got[0] != "BTCEUR" || got[1] != "ETHBTC" {
		t.Errorf("splitSymbols = %v", got)
	}
}
