package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	domrepo "TradeCore/internal/domain/repository"
	pkgch "TradeCore/pkg/clickhouse"
	applogger "TradeCore/pkg/logger"
)

// CHReturnsStore implements ReturnsProvider backed by a ClickHouse table of
// daily returns, one row per (ticker, day). Series are returned oldest-first.
type CHReturnsStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHReturnsStore(ch *pkgch.Client, table string) *CHReturnsStore {
	return &CHReturnsStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHReturnsStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHReturnsStore) Returns(ctx context.Context, ticker string, days int) ([]float64, error) {
	start := time.Now()
	const qtpl = `
        SELECT ret
        FROM %s
        WHERE ticker = ? AND day >= today() - ?
        ORDER BY day ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker, days)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse returns query error",
				applogger.String("ticker", ticker),
				applogger.Int("days", days),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get returns: %w", err)
	}
	defer rows.Close()

	out := make([]float64, 0, days)
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan return: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse returns ok",
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHReturnsStore) ReturnsMatrix(ctx context.Context, tickers []string, days int) (map[string][]float64, error) {
	if len(tickers) == 0 {
		return map[string][]float64{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tickers)), ",")
	const qtpl = `
        SELECT ticker, ret
        FROM %s
        WHERE ticker IN (%s) AND day >= today() - ?
        ORDER BY ticker, day ASC
    `
	q := fmt.Sprintf(qtpl, s.table, placeholders)

	args := make([]interface{}, 0, len(tickers)+1)
	for _, t := range tickers {
		args = append(args, t)
	}
	args = append(args, days)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse returns matrix query error",
				applogger.Int("tickers", len(tickers)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get returns matrix: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float64, len(tickers))
	for rows.Next() {
		var ticker string
		var r float64
		if err := rows.Scan(&ticker, &r); err != nil {
			return nil, fmt.Errorf("scan return: %w", err)
		}
		out[ticker] = append(out[ticker], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHReturnsStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHReturnsStore) Close() error {
	return nil // connection managed by pkg/clickhouse
}

var _ domrepo.ReturnsProvider = (*CHReturnsStore)(nil)
