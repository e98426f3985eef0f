package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"xgains/internal/application/port"
	"xgains/internal/domain/model"
)

var _ port.CandleCache = (*Repo)(nil)

// GetCandle 读取持久化的一分钟 K 线
func (r *Repo) GetCandle(ctx context.Context, symbol string, minute time.Time) (model.Candle, bool, error) {
	minute = minute.UTC().Truncate(time.Minute)
	c := model.Candle{Symbol: symbol, OpenTime: minute}
	err := r.db.QueryRowContext(ctx,
		`SELECT open, close FROM candle WHERE symbol=? AND openTime=?`, symbol, minute.UnixMilli()).
		Scan(&c.Open, &c.Close)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Candle{}, false, nil
	}
	if err != nil {
		return model.Candle{}, false, err
	}
	return c, true, nil
}

// PutCandle 写入或覆盖
func (r *Repo) PutCandle(ctx context.Context, c model.Candle) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO candle(symbol, openTime, open, close) VALUES(?, ?, ?, ?)
		ON CONFLICT(symbol, openTime) DO UPDATE SET open=excluded.open, close=excluded.close
	`, c.Symbol, c.OpenTime.UTC().UnixMilli(), c.Open, c.Close)
	return err
}
