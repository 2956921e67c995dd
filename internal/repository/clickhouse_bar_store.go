package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"RegimeAPI/internal/domain/models"
	domrepo "RegimeAPI/internal/domain/repository"
	pkgch "RegimeAPI/pkg/clickhouse"
	applogger "RegimeAPI/pkg/logger"
)

// CHBarStore implements BarSource over a raw OHLCV table in ClickHouse,
// resampling to the requested granularity at query time.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, table string) *CHBarStore {
	return &CHBarStore{db: ch.DB(), table: table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHBarStore) Name() string { return "clickhouse" }

// SchemaStatements returns the DDL for the source table.
func (s *CHBarStore) SchemaStatements() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol LowCardinality(String),
            ts     DateTime64(3, 'UTC'),
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            volume Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, ts)
    `, s.table)}
}

func (s *CHBarStore) GetBars(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.Bar, error) {
	start := time.Now()
	q, err := chBarsQuery(s.table, g)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse get_bars query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.String("granularity", g.String()),
			applogger.Error(err),
		)
		return nil, models.Wrap(models.ErrProviderUnavailable, err, "clickhouse query")
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 256)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Wrap(models.ErrProviderUnavailable, err, "clickhouse rows")
	}
	s.l.Debug("clickhouse get_bars ok",
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.String("granularity", g.String()),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func chInterval(g models.Granularity) (string, error) {
	switch g {
	case models.OneMinute:
		return "1 MINUTE", nil
	case models.FiveMinutes:
		return "5 MINUTE", nil
	case models.FifteenMinutes:
		return "15 MINUTE", nil
	case models.ThirtyMinutes:
		return "30 MINUTE", nil
	case models.OneHour:
		return "1 HOUR", nil
	case models.OneDay:
		return "1 DAY", nil
	case models.OneWeek:
		return "1 WEEK", nil
	case models.OneMonth:
		return "1 MONTH", nil
	default:
		return "", models.Errorf(models.ErrInvalidGranularity, "unsupported granularity %q", g)
	}
}

func chBarsQuery(table string, g models.Granularity) (string, error) {
	iv, err := chInterval(g)
	if err != nil {
		return "", err
	}
	const qtpl = `
        SELECT toDateTime64(toStartOfInterval(ts, INTERVAL %s), 3, 'UTC') AS bucket,
               argMin(open, ts), max(high), min(low), argMax(close, ts), sum(volume)
        FROM %s
        WHERE symbol = ? AND ts >= ? AND ts < ?
        GROUP BY bucket
        ORDER BY bucket ASC
    `
	return fmt.Sprintf(qtpl, iv, table), nil
}

var _ domrepo.BarSource = (*CHBarStore)(nil)
