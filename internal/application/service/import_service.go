package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog/log"

	"xgains/internal/application/port"
)

// ErrUnknownFormat 未注册的导入格式
var ErrUnknownFormat = errors.New("unknown import format")

// ImportReport 一次导入的统计
type ImportReport struct {
	Batch      string `json:"batch"`
	Parsed     int    `json:"parsed"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
}

// ImportService 把导出文件写入账本，重复导入不会产生重复行
type ImportService struct {
	repo    port.LedgerRepository
	parsers map[string]port.StatementParser
}

func NewImportService(repo port.LedgerRepository, parsers map[string]port.StatementParser) *ImportService {
	return &ImportService{repo: repo, parsers: parsers}
}

// Formats 已注册的格式名
func (s *ImportService) Formats() []string {
	out := make([]string, 0, len(s.parsers))
	for name := range s.parsers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *ImportService) Import(ctx context.Context, format, batch string, r io.Reader) (ImportReport, error) {
	report := ImportReport{Batch: batch}
	parser, ok := s.parsers[format]
	if !ok {
		return report, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	res, err := parser.Parse(r, batch)
	if err != nil {
		return report, fmt.Errorf("parse %s: %w", batch, err)
	}
	report.Parsed = len(res.Transactions)
	report.Skipped = res.Skipped

	for i := range res.Transactions {
		inserted, err := s.repo.AddTransaction(ctx, &res.Transactions[i])
		if err != nil {
			return report, fmt.Errorf("insert row %d: %w", res.Transactions[i].RefID, err)
		}
		if inserted {
			report.Inserted++
		} else {
			report.Duplicates++
		}
	}

	log.Info().
		Str("batch", batch).
		Str("format", format).
		Int("inserted", report.Inserted).
		Int("duplicates", report.Duplicates).
		Int("skipped", report.Skipped).
		Msg("import done")
	return report, nil
}
