package composite

import (
	"context"
	"errors"
	"testing"
	"time"

	"xgains/internal/domain/model"
)

type mapCache struct {
	data    map[string]model.Candle
	puts    int
	failGet bool
	failPut bool
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string]model.Candle)} }

func (m *mapCache) GetCandle(_ context.Context, symbol string, minute time.Time) (model.Candle, bool, error) {
	if m.failGet {
		return model.Candle{}, false, errors.New("down")
	}
	c, ok := m.data[symbol+minute.UTC().Format(time.RFC3339)]
	return c, ok, nil
}

func (m *mapCache) PutCandle(_ context.Context, c model.Candle) error {
	m.puts++
	if m.failPut {
		return errors.New("down")
	}
	m.data[c.Symbol+c.OpenTime.UTC().Format(time.RFC3339)] = c
	return nil
}

func TestCompositeBackfillsUpperLayers(t *testing.T) {
	minute := time.Unix(120, 0).UTC()
	top, mid, bottom := newMapCache(), newMapCache(), newMapCache()
	_ = bottom.PutCandle(context.Background(), model.Candle{Symbol: "X", OpenTime: minute, Open: 1, Close: 3})

	cc := New(top, nil, mid, bottom)
	c, found, err := cc.GetCandle(context.Background(), "X", minute)
	if err != nil || !found || c.Mid() != 2 {
		t.Fatalf("expected hit from bottom layer, got %+v found=%v err=%v", c, found, err)
	}
	if _, ok, _ := top.GetCandle(context.Background(), "X", minute); !ok {
		t.Error("top layer not backfilled")
	}
	if _, ok, _ := mid.GetCandle(context.Background(), "X", minute); !ok {
		t.Error("middle layer not backfilled")
	}
}

func TestCompositeSkipsFailingLayer(t *testing.T) {
	minute := time.Unix(120, 0).UTC()
	broken, ok := newMapCache(), newMapCache()
	broken.failGet = true
	_ = ok.PutCandle(context.Background(), model.Candle{Symbol: "X", OpenTime: minute, Open: 2, Close: 2})

	c, found, err := New(broken, ok).GetCandle(context.Background(), "X", minute)
	if err != nil || !found || c.Mid() != 2 {
		t.Fatalf("expected hit past failing layer, got %+v found=%v err=%v", c, found, err)
	}
}

func TestCompositePutWritesAllAndReturnsFirstError(t *testing.T) {
	a, b := newMapCache(), newMapCache()
	a.failPut = true
	err := New(a, b).PutCandle(context.Background(), model.Candle{Symbol: "X", OpenTime: time.Unix(60, 0)})
	if err == nil {
		t.Fatal("expected error from failing layer")
	}
	if b.puts != 1 {
		t.Error("second layer must still be written")
	}
}
