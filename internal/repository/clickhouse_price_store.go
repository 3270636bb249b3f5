package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"EquityPulse/internal/domain/models"
	domrepo "EquityPulse/internal/domain/repository"
	pkgch "EquityPulse/pkg/clickhouse"
	applogger "EquityPulse/pkg/logger"
)

const defaultBarLimit = 10000

// CHPriceStore implements PriceStore backed by a ClickHouse daily bar
// table. Reads come back oldest first, ready for indicator math.
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client, table string) *CHPriceStore {
	return &CHPriceStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceStore) GetBars(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Bar, error) {
	start := time.Now()
	if limit <= 0 {
		limit = defaultBarLimit
	}
	const qtpl = `
        SELECT day, symbol, open, high, low, close, volume
        FROM %s
        WHERE symbol = ? AND day >= ? AND day <= ?
        ORDER BY day ASC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_bars query error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 1024)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Day, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse get_bars scan error",
					applogger.String("table", s.table),
					applogger.String("symbol", symbol),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_bars rows error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_bars ok",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHPriceStore) GetLatestBars(ctx context.Context, symbol string, n int) ([]models.Bar, error) {
	start := time.Now()
	if n <= 0 {
		n = defaultBarLimit
	}
	const qtpl = `
        SELECT day, symbol, open, high, low, close, volume
        FROM %s
        WHERE symbol = ?
        ORDER BY day DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_bars query error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Bar, 0, n)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Day, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse latest_bars scan error",
					applogger.String("table", s.table),
					applogger.String("symbol", symbol),
					applogger.Int("limit", n),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		tmp = append(tmp, b)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_bars rows error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse latest_bars ok",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("limit", n),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func (s *CHPriceStore) GetCloses(ctx context.Context, symbol string, n int) ([]float64, error) {
	bars, err := s.GetLatestBars(ctx, symbol, n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(bars))
	for _, b := range bars {
		out = append(out, b.Close)
	}
	return out, nil
}

func (s *CHPriceStore) StoreBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	// Multi-row VALUES insert, chunked to bound statement size.
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			if b.Symbol == "" || b.Day.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Day, b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (day, symbol, open, high, low, close, volume) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

var _ domrepo.PriceStore = (*CHPriceStore)(nil)
