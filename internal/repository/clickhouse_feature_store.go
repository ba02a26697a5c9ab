package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"
	pkgch "AstraMind/pkg/clickhouse"
	applogger "AstraMind/pkg/logger"
)

// CandleTables names the ClickHouse table behind each timeframe.
type CandleTables struct {
	Short string
	Mid   string
	Long  string
}

// DefaultCandleTables returns the astramind candle tables.
func DefaultCandleTables() CandleTables {
	return CandleTables{
		Short: "astramind.candles_1s",
		Mid:   "astramind.candles_1m",
		Long:  "astramind.candles_5m",
	}
}

func (t CandleTables) forTimeframe(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1s:
		return t.Short, nil
	case domrepo.TF1m:
		return t.Mid, nil
	case domrepo.TF5m:
		return t.Long, nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}

// CHFeatureStore implements FeatureStore backed by ClickHouse.
type CHFeatureStore struct {
	db     *sql.DB
	tables CandleTables
	l      *applogger.Logger
}

func NewCHFeatureStore(ch *pkgch.Client, tables CandleTables, l *applogger.Logger) *CHFeatureStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHFeatureStore{db: ch.DB(), tables: tables, l: l}
}

// GetLatestNCandles returns up to n most recent candles in ascending time order.
func (s *CHFeatureStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", n)
	}
	table, err := s.tables.forTimeframe(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
        SELECT bucket, symbol, open, high, low, close, volume
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `, table)
	out, err := s.query(ctx, "latest_candles", table, tf, q, symbol, n)
	if err != nil {
		return nil, err
	}
	reverseCandles(out)
	return out, nil
}

func (s *CHFeatureStore) query(ctx context.Context, op, table string, tf domrepo.Timeframe, q string, args ...interface{}) ([]models.Candle, error) {
	start := time.Now()
	log := s.l.With(
		applogger.String("op", op),
		applogger.String("table", table),
		applogger.String("tf", string(tf)),
	)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		log.Error("clickhouse query error", applogger.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 128)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			log.Error("clickhouse scan error", applogger.Error(err))
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		log.Error("clickhouse rows error", applogger.Error(err))
		return nil, fmt.Errorf("rows: %w", err)
	}
	log.Debug("clickhouse query ok",
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func reverseCandles(c []models.Candle) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}
